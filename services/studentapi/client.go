package studentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/idview/core/application"
)

const (
	applyIDPath = "/student/apply-id"
	healthPath  = "/health"

	// DefaultTimeout matches the browser client of the student portal.
	DefaultTimeout = 10 * time.Second
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("application rejected")
	ErrUnavailable  = errors.New("student api unavailable")
)

type tokenKey struct{}

// WithToken returns a copy of ctx carrying the bearer token sent along every request made with it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token carried by ctx, if any.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client talks to the student portal REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ application.Submitter = (*Client)(nil)

// NewClient returns a client of the API served at baseURL. timeout <= 0 means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitApplication posts the payload as multipart/form-data to the ID application endpoint.
func (c *Client) SubmitApplication(ctx context.Context, p application.Payload) (application.Receipt, error) {
	var body bytes.Buffer
	contentType, err := p.WriteMultipart(&body)
	if err != nil {
		return application.Receipt{}, errors.Wrap(err, "encoding application")
	}

	req, err := c.newRequest(ctx, http.MethodPost, applyIDPath, &body)
	if err != nil {
		return application.Receipt{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var res response
	if err = c.do(req, &res); err != nil {
		return application.Receipt{}, err
	}
	if !res.Success {
		if res.Message == "" {
			return application.Receipt{}, ErrRejected
		}
		return application.Receipt{}, errors.Wrap(ErrRejected, res.Message)
	}
	return application.Receipt{Message: res.Message}, nil
}

// Health checks that the API is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s %s request", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := TokenFrom(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends req and decodes the JSON response body into out, unless out is nil.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.Wrap(ErrUnavailable, statusError(resp))
	}

	if out == nil {
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", req.Method, req.URL.Path)
	}
	return nil
}

func statusError(resp *http.Response) string {
	var res response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&res); err == nil && res.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, res.Message)
	}
	return fmt.Sprintf("%s %s: %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
}
