// Package web provides the HTTP control surface for the safety interlock:
// a status page, the configuration query/update operations and the manual
// reset operation.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/safety-interlock/internal/interlock"
)

// Server serves the status page and control operations over HTTP.
type Server struct {
	httpServer *http.Server
	sup        *interlock.Supervisor
}

// New creates a Server backed by the given supervisor.
func New(addr string, sup *interlock.Supervisor) *Server {
	s := &Server{sup: sup}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/config.json", s.handleConfigJSON)
	mux.HandleFunc("/config", s.handleConfigUpdate)
	mux.HandleFunc("/reset", s.handleReset)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.sup.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}
