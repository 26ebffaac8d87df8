package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Sample uploads, sniffed as image/png and application/pdf.
var (
	PNGContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	PDFContent = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
)

// FileUpload builds a multipart/form-data body holding `content` in its "file" part.
func FileUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("FileUpload() failed: %v", err)
	}
	if _, err = part.Write(content); err != nil {
		t.Fatalf("FileUpload() failed: %v", err)
	}
	if err = mw.Close(); err != nil {
		t.Fatalf("FileUpload() failed: %v", err)
	}
	return &body, mw.FormDataContentType()
}

// StudentAPIRequest is an application received by a StudentAPIStub.
type StudentAPIRequest struct {
	Authorization string
	Values        map[string]string
	Files         map[string][]byte
}

// StudentAPIStub fakes the student portal REST API.
// Applications are answered with Status (201 by default).
type StudentAPIStub struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	requests []StudentAPIRequest
}

func NewStudentAPIStub(t *testing.T) *StudentAPIStub {
	stub := &StudentAPIStub{status: http.StatusCreated}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/student/apply-id", stub.applyID)
	stub.Server = httptest.NewServer(mux)
	t.Cleanup(stub.Close)
	return stub
}

func (stub *StudentAPIStub) SetStatus(status int) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.status = status
}

func (stub *StudentAPIStub) Requests() []StudentAPIRequest {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return append([]StudentAPIRequest(nil), stub.requests...)
}

func (stub *StudentAPIStub) applyID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"success": false})
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": err.Error()})
		return
	}

	req := StudentAPIRequest{
		Authorization: r.Header.Get("Authorization"),
		Values:        make(map[string]string),
		Files:         make(map[string][]byte),
	}
	for name, values := range r.MultipartForm.Value {
		req.Values[name] = values[0]
	}
	for name, fhs := range r.MultipartForm.File {
		f, err := fhs[0].Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": err.Error()})
			return
		}
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(f)
		_ = f.Close()
		req.Files[name] = buf.Bytes()
	}

	stub.mu.Lock()
	stub.requests = append(stub.requests, req)
	status := stub.status
	stub.mu.Unlock()

	if status >= 300 {
		writeJSON(w, status, map[string]interface{}{"success": false, "message": http.StatusText(status)})
		return
	}
	writeJSON(w, status, map[string]interface{}{"success": true, "message": "ID application received"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
