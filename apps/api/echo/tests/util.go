package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/idview/apps/api/echo"
	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/core/application"
	"github.com/trezcool/idview/core/session"
	"github.com/trezcool/idview/services/logger"
	"github.com/trezcool/idview/services/metrics"
	"github.com/trezcool/idview/services/studentapi"
	"github.com/trezcool/idview/storage/database/inmem"
	"github.com/trezcool/idview/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errInvalidToken = httpErr{Error: "invalid or expired jwt"}
	errNotFound     = httpErr{Error: "not found"}

	student = core.Person{ID: "S110/2099/23", Username: "amina", Email: "amina@students.gau.ac.ke"}
	other   = core.Person{ID: "S111/2099/23", Username: "juma", Email: "juma@students.gau.ac.ke"}
)

type testApp struct {
	Server  *Server
	Stub    *testutil.StudentAPIStub
	Metrics *metrics.Metrics
}

func setup(t *testing.T) testApp {
	conf := *core.Conf
	conf.TestMode = true
	conf.Server.DisableReqLogs = true

	stub := testutil.NewStudentAPIStub(t)
	client := studentapi.NewClient(stub.URL, time.Second)
	m := metrics.New("idview")
	svc := session.NewService(
		inmemdb.NewSessionRepository(inmemdb.Open()),
		m.Instrument(client),
		time.Hour,
		conf.Upload.MaxSize,
	)
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "API : ", log.LstdFlags), &conf)
	logger.Enable(false)

	server := NewServer(ServerDeps{
		Conf:       &conf,
		Logger:     logger,
		SessionSvc: svc,
		StudentAPI: client,
		Metrics:    m,
	})
	return testApp{Server: server, Stub: stub, Metrics: m}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func newUploadRequest(path, token string, body io.Reader, contentType string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPut, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, p core.Person) string {
	token, err := GenerateToken(GetStudentClaims(p))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// do serves a request and decodes a successful response into a SessionResponse.
func (app testApp) do(t *testing.T, method, path, token string, wantCode int, data ...[]byte) SessionResponse {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, data...)
	app.Server.ServeHTTP(rec, req)
	require.Equal(t, wantCode, rec.Code, rec.Body.String())

	var res SessionResponse
	if rec.Code < 300 && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}
	return res
}

func (app testApp) createWizard(t *testing.T, token string) SessionResponse {
	t.Helper()
	return app.do(t, http.MethodPost, "/v1/wizards", token, http.StatusCreated)
}

func (app testApp) upload(t *testing.T, id, field, filename string, content []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := testutil.FileUpload(t, filename, content)
	req, rec := newUploadRequest("/v1/wizards/"+id+"/files/"+field, token, body, ct)
	app.Server.ServeHTTP(rec, req)
	return rec
}

// fillStep fills and validates the current step of wizard `id`, which must be `step`.
func (app testApp) fillStep(t *testing.T, id, token string, step application.StepIndex) SessionResponse {
	t.Helper()
	var d application.Draft
	application.FillStep(&d, step)

	if step == application.StepDocuments {
		for field, up := range map[string]struct {
			filename string
			content  []byte
		}{
			application.FieldPassportPhoto:   {"photo.png", testutil.PNGContent},
			application.FieldNationalIDCopy:  {"id.pdf", testutil.PDFContent},
			application.FieldAdmissionLetter: {"letter.pdf", testutil.PDFContent},
		} {
			rec := app.upload(t, id, field, up.filename, up.content, token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}
	} else {
		fields := make(map[string]string)
		for _, name := range application.FieldNames {
			if v, err := d.Get(name); err == nil && v != "" {
				fields[name] = v
			}
		}
		app.do(t, http.MethodPatch, "/v1/wizards/"+id+"/fields", token, http.StatusOK, marshallObj(t, fields))
	}
	return app.do(t, http.MethodPost, "/v1/wizards/"+id+"/advance", token, http.StatusOK)
}

// walkToReview creates a wizard and fills every step up to the review one.
func (app testApp) walkToReview(t *testing.T, token string) string {
	t.Helper()
	id := app.createWizard(t, token).ID
	for step := application.FirstStep; step < application.LastStep; step++ {
		res := app.fillStep(t, id, token, step)
		require.Equal(t, step+1, res.State.Step)
	}
	return id
}
