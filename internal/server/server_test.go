package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docstore/internal/auth"
	"docstore/internal/backend"
	"docstore/internal/document"
	"docstore/internal/server"

	"github.com/stretchr/testify/require"
)

const (
	testTable  = "docs-table"
	testBucket = "docs-bucket"
	testUser   = "docs"
	testPass   = "secret"
)

type ServerOption func(*server.Server)

func WithAuthentication() ServerOption {
	return func(s *server.Server) {
		s.Authenticator = auth.NewBasicAuthEngine(testUser, testPass)
	}
}

// NewTestServer creates a Server backed by a temporary sqlite table and
// local object store and returns it along with an httptest.Server wrapping
// its handler.
func NewTestServer(t *testing.T, opts ...ServerOption) (*backend.SQLTable, *httptest.Server) {
	t.Helper()

	dataDir := t.TempDir()

	table, err := backend.OpenSQLTable(t.Context(), backend.DialectSQLite, dataDir+"/metadata.sqlite")
	require.NoError(t, err, "OpenSQLTable error")
	objects := backend.NewLocalFileStorage(dataDir)

	srv := &server.Server{
		Create: &document.CreateHandler{
			Table:      table,
			Objects:    objects,
			TableName:  testTable,
			BucketName: testBucket,
		},
		Get: &document.GetHandler{
			Objects:    objects,
			BucketName: testBucket,
		},
		NewRequestID: func() string { return "req-0001" },
	}
	for _, opt := range opts {
		opt(srv)
	}

	httpSrv := httptest.NewServer(srv.Handler())

	t.Cleanup(func() { _ = table.Close() })
	t.Cleanup(httpSrv.Close)

	return table, httpSrv
}

type RequestOption func(*http.Request)

func WithBasicAuth(user string, pass string) RequestOption {
	return func(req *http.Request) {
		req.SetBasicAuth(user, pass)
	}
}

func DoMethod(t *testing.T, method string, url string, body []byte, opts ...RequestOption) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, bytes.NewReader(body))
	require.NoError(t, err, "creating "+method+" request")
	// Keep the transport from transparently inflating gzip bodies.
	req.Header.Set("Accept-Encoding", "gzip")
	for _, opt := range opts {
		opt(req)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoErrorf(t, err, "%s %s error", method, url)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func ReadBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "reading body")
	return body
}

const validPayload = `{"docsData": {
	"headers": {"id": "abc", "owner": "senorics", "filename": "my-eqe-file.sif", "size": "1024", "content_type": "text/x.senorics.interchange"},
	"body": {"document": "hello"}
}}`

func TestCreateAndFetchOverHTTP(t *testing.T) {
	t.Parallel()

	table, httpSrv := NewTestServer(t)

	resp := DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(validPayload))
	body := ReadBody(t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Equal(t, "req-0001", resp.Header.Get(server.RequestIDHeader))
	require.True(t, strings.HasPrefix(string(body), "id:abc,\n"), string(body))

	item, err := table.GetItem(t.Context(), testTable, "abc")
	require.NoError(t, err)
	require.Equal(t, "senorics", item["owner"].Value)
	require.Equal(t, testBucket+"/abc", item["uri"].Value)

	// The stored body lives under "<id>/content".
	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/documents/abc/content", nil)
	raw := ReadBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	content, err := document.Gunzip(raw)
	require.NoError(t, err)
	require.Equal(t, `{"document":"hello"}`, string(content))

	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/documents/abc/metadata.json", nil)
	raw = ReadBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	plain, err := document.Gunzip(raw)
	require.NoError(t, err)
	var meta document.Metadata
	require.NoError(t, json.Unmarshal(plain, &meta))
	require.Equal(t, "abc", meta.ID)
	require.Equal(t, item["sha256"].Value, meta.SHA256)
}

func TestCreateWithoutIDUsesRequestID(t *testing.T) {
	t.Parallel()

	table, httpSrv := NewTestServer(t)

	payload := `{"docsData": {"headers": {"owner": "o"}, "body": {"document": "x"}}}`
	resp := DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(payload))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err := table.GetItem(t.Context(), testTable, "req-0001")
	require.NoError(t, err)
}

func TestCreateValidationOverHTTP(t *testing.T) {
	t.Parallel()

	_, httpSrv := NewTestServer(t)

	cases := map[string]string{
		"":                              "Data is missing from payload, schema example: ",
		`{}`:                            "Data is missing from payload, schema example: ",
		`{"docsData": {}}`:              "Document headers are missing, schema example: ",
		`{"docsData": {"headers": {}}}`: "Document content is missing, schema example: ",
	}

	for payload, prefix := range cases {
		resp := DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(payload))
		body := ReadBody(t, resp)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, prefix+document.SchemaExample, string(body))
	}
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, httpSrv := NewTestServer(t)

	resp := DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(`{"docsData":`))
	body := ReadBody(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "not valid JSON")
}

func TestGetWithoutIDIsBadRequest(t *testing.T) {
	t.Parallel()

	_, httpSrv := NewTestServer(t)

	for _, path := range []string{"/documents", "/documents/"} {
		resp := DoMethod(t, http.MethodGet, httpSrv.URL+path, nil)
		body := ReadBody(t, resp)
		require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "GET %s", path)
		require.Equal(t, "Data is missing from payload, schema: {pathParameters:{id:string}}", string(body))
	}
}

func TestGetByBareIDFails(t *testing.T) {
	t.Parallel()

	_, httpSrv := NewTestServer(t)

	resp := DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(validPayload))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Nothing is stored under the bare id, so the store error surfaces as a
	// server fault.
	resp = DoMethod(t, http.MethodGet, httpSrv.URL+"/documents/abc", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	_, httpSrv := NewTestServer(t, WithAuthentication())

	resp := DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(validPayload))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

	resp = DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(validPayload), WithBasicAuth(testUser, "wrong"))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = DoMethod(t, http.MethodPost, httpSrv.URL+"/documents", []byte(validPayload), WithBasicAuth(testUser, testPass))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	_, httpSrv := NewTestServer(t)

	resp := DoMethod(t, http.MethodGet, httpSrv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(ReadBody(t, resp)))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	t.Parallel()

	_, httpSrv := NewTestServer(t)

	resp := DoMethod(t, http.MethodDelete, httpSrv.URL+"/documents/abc", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
