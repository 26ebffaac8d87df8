package application

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxFileSize is the upload limit advertised by the documents step.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

const (
	acceptImage = "image/*"
	acceptPDF   = "application/pdf"
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileType     = errors.New("file type not allowed")
	ErrEmptyFile    = errors.New("empty file")

	// accepted content types per document field
	accepts = map[string][]string{
		FieldPassportPhoto:   {acceptImage},
		FieldNationalIDCopy:  {acceptImage, acceptPDF},
		FieldAdmissionLetter: {acceptImage, acceptPDF},
	}
)

// File is an uploaded document, held in memory only.
type File struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Content     []byte `json:"-"`
}

// NewFile reads at most maxSize bytes from r.
// The content type is sniffed from the content, falling back on the file extension.
func NewFile(filename string, r io.Reader, maxSize int64) (*File, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	content, err := ioutil.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(content)) > maxSize {
		return nil, ErrFileTooLarge
	}

	ct := http.DetectContentType(content)
	if ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
			ct = byExt
		}
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	return &File{
		Filename:    filepath.Base(filename),
		ContentType: ct,
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}

// Reader returns a fresh reader over the file content.
func (f *File) Reader() io.Reader {
	return bytes.NewReader(f.Content)
}

// Accepts reports whether the document field `name` takes files of the given content type.
func Accepts(name, contentType string) bool {
	for _, pattern := range accepts[name] {
		if strings.HasSuffix(pattern, "/*") {
			if strings.HasPrefix(contentType, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		} else if contentType == pattern {
			return true
		}
	}
	return false
}

// checkFile checks `f` against the accepted types & size of the document field `name`.
// It returns a user facing message, empty when the file is acceptable.
func checkFile(name string, f *File, maxSize int64) string {
	label := fieldLabels[name]
	if maxSize > 0 && f.Size > maxSize {
		return fmt.Sprintf("%s must not exceed %dMB", label, maxSize/(1024*1024))
	}
	if !Accepts(name, f.ContentType) {
		if len(accepts[name]) == 1 {
			return label + " must be an image"
		}
		return label + " must be an image or a PDF"
	}
	return ""
}
