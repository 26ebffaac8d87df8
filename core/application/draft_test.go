package application

import (
	"bytes"
	"io/ioutil"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_GetSet(t *testing.T) {
	var d Draft
	for _, name := range FieldNames {
		if _, err := d.File(name); err == nil {
			continue
		}
		require.NoError(t, d.Set(name, name+"-value"), name)
		got, err := d.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name+"-value", got)
	}
	assert.Equal(t, "firstName-value", d.FirstName)
	assert.Equal(t, "nextOfKinRelationship-value", d.NextOfKinRelationship)

	_, err := d.Get("lol")
	assert.Equal(t, ErrUnknownField, errors.Cause(err))
	_, err = d.File("lol")
	assert.Equal(t, ErrUnknownField, errors.Cause(err))
	_, err = d.File(FieldCourse)
	assert.Equal(t, ErrNotAFile, errors.Cause(err))
	_, err = d.Get(FieldAdmissionLetter)
	assert.Equal(t, ErrNotText, errors.Cause(err))
}

func TestDraft_IsEmpty(t *testing.T) {
	var d Draft
	assert.True(t, d.IsEmpty())
	require.NoError(t, d.SetFile(FieldPassportPhoto, &File{Filename: "p.png"}))
	assert.False(t, d.IsEmpty())
	assert.False(t, FilledDraft().IsEmpty())
}

func TestPayload_WriteMultipart(t *testing.T) {
	d := FilledDraft()
	var body bytes.Buffer

	ct, err := d.Payload().WriteMultipart(&body)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(&body, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	defer func() { _ = form.RemoveAll() }()

	assert.Len(t, form.Value, 17)
	assert.Equal(t, []string{"Amina"}, form.Value[FieldFirstName])
	assert.Equal(t, []string{"S110/2099/23"}, form.Value[FieldAdmissionNumber])

	require.Len(t, form.File, 3)
	fh := form.File[FieldPassportPhoto][0]
	assert.Equal(t, "photo.png", fh.Filename)
	assert.Equal(t, "image/png", fh.Header.Get("Content-Type"))
	f, err := fh.Open()
	require.NoError(t, err)
	content, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, d.PassportPhoto.Content, content)
}

func TestNewFile(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("x", 16)

	tests := []struct {
		name     string
		filename string
		content  string
		maxSize  int64
		wantCT   string
		wantErr  error
	}{
		{name: "png", filename: "dir/photo.png", content: png, wantCT: "image/png"},
		{name: "pdf", filename: "letter.pdf", content: "%PDF-1.4 ...", wantCT: "application/pdf"},
		{name: "by extension", filename: "scan.jpg", content: "\x00\x01\x02", wantCT: "image/jpeg"},
		{name: "empty", filename: "empty.png", wantErr: ErrEmptyFile},
		{name: "too large", filename: "photo.png", content: png, maxSize: 8, wantErr: ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFile(tt.filename, strings.NewReader(tt.content), tt.maxSize)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCT, f.ContentType)
			assert.Equal(t, int64(len(tt.content)), f.Size)
			assert.NotContains(t, f.Filename, "/")
		})
	}
}

func TestAccepts(t *testing.T) {
	assert.True(t, Accepts(FieldPassportPhoto, "image/jpeg"))
	assert.False(t, Accepts(FieldPassportPhoto, "application/pdf"))
	assert.True(t, Accepts(FieldNationalIDCopy, "application/pdf"))
	assert.True(t, Accepts(FieldAdmissionLetter, "image/png"))
	assert.False(t, Accepts(FieldAdmissionLetter, "text/plain"))
	assert.False(t, Accepts(FieldFirstName, "image/png"))
}

func TestSteps(t *testing.T) {
	for i, step := range Steps {
		assert.Equal(t, StepIndex(i+1), step.Index())
		assert.Equal(t, step, StepAt(step.Index()))
	}
	assert.Equal(t, StepPersonal, StepAt(0).Index())
	assert.Equal(t, StepReview, StepAt(9).Index())

	d := FilledDraft()
	for _, step := range Steps {
		assert.Empty(t, step.Validate(d), step.Title())
	}
	assert.Empty(t, ReviewStep{}.Validate(Draft{}))
}
