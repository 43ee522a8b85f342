// Package testutil holds the request builders and response assertions shared
// by the handler and middleware tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRequest builds a request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRequestWithBody builds a JSON request from a literal body.
func NewRequestWithBody(t *testing.T, method, path string, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest serves req and returns the recorded response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON decodes the recorded body into a T. The recorder is left
// readable so a failing assertion can still print the body.
func DecodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) *T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return &v
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// AssertError checks the status and the error code of an error envelope and
// returns its description.
func AssertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) string {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := DecodeJSON[errorBody](t, rec)
	assert.Equal(t, code, body.Error)
	return body.ErrorDescription
}
