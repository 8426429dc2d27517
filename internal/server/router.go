package server

import (
	"net/http"
)

// Handler returns an http.Handler routing to the document handlers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})

	mux.HandleFunc("POST /documents", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.handleCreate(ctx, w, r)
	})

	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.handleGet(ctx, w, r, "")
	})
	mux.HandleFunc("GET /documents/{id...}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := r.PathValue("id")
		s.handleGet(ctx, w, r, id)
	})

	// Add middleware. 401s from authentication must reach LogRequest.
	handler := SlashFix(mux)
	if s.Authenticator != nil {
		handler = RequireAuthentication(s.Authenticator)(handler)
	}
	handler = LogRequest(handler)
	handler = Recoverer(handler)
	return handler
}
