package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"docstore/internal/auth"
	"docstore/internal/document"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
)

// RequestIDHeader carries the invocation request id back to HTTP callers.
const RequestIDHeader = "X-Request-Id"

// maxEventSize bounds the create payload accepted over HTTP, matching the
// API Gateway limit.
const maxEventSize = 10 << 20

// Server exposes the document handlers over plain HTTP, shaping each request
// into the API Gateway event the handlers expect.
type Server struct {
	Create *document.CreateHandler
	Get    *document.GetHandler

	// Authenticator is optional; when nil every request is accepted.
	Authenticator auth.AuthEngine

	// NewRequestID defaults to uuid.NewString.
	NewRequestID func() string
}

func (s *Server) requestID() string {
	if s.NewRequestID != nil {
		return s.NewRequestID()
	}
	return uuid.NewString()
}

// invocationContext attaches a fresh request id to ctx the way the Lambda
// runtime does.
func (s *Server) invocationContext(ctx context.Context, w http.ResponseWriter) context.Context {
	id := s.requestID()
	w.Header().Set(RequestIDHeader, id)
	return lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{AwsRequestID: id})
}

func proxyRequest(r *http.Request, pathParameters map[string]string) events.APIGatewayProxyRequest {
	headers := make(map[string]string, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}
	return events.APIGatewayProxyRequest{
		HTTPMethod:     r.Method,
		Path:           r.URL.Path,
		Headers:        headers,
		PathParameters: pathParameters,
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// writeProxyResponse renders an API Gateway response onto w, decoding base64
// bodies so HTTP clients receive the raw bytes.
func writeProxyResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			slog.Error("Handler returned invalid base64 body", "error", err)
			writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}
		body = decoded
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

func (s *Server) handleCreate(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	ctx = s.invocationContext(ctx, w)

	var event document.CreateEvent
	if err := json.NewDecoder(io.LimitReader(r.Body, maxEventSize)).Decode(&event); err != nil && err != io.EOF {
		writeText(w, http.StatusBadRequest, "Request body is not valid JSON, schema example: "+document.SchemaExample)
		return
	}
	event.APIGatewayProxyRequest = proxyRequest(r, nil)

	resp, err := s.Create.Handle(ctx, event)
	if err != nil {
		slog.ErrorContext(ctx, "Create invocation failed", "error", err)
		writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeProxyResponse(w, resp)
}

func (s *Server) handleGet(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) {
	ctx = s.invocationContext(ctx, w)

	var params map[string]string
	if id != "" {
		params = map[string]string{"id": id}
	}

	resp, err := s.Get.Handle(ctx, proxyRequest(r, params))
	if err != nil {
		slog.ErrorContext(ctx, "Get invocation failed", "error", err)
		writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeProxyResponse(w, resp)
}
