package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/vibe8n/agentloop/internal/agent"
	"github.com/vibe8n/agentloop/internal/tools"
)

// chatService is the agent as seen by the front end
type chatService interface {
	Chat(ctx context.Context, req agent.Request) (*agent.Response, error)
	Ready() bool
	EngineConfigured() bool
	Capabilities(ctx context.Context) ([]tools.Descriptor, error)
}

type Server struct {
	agent chatService

	allowOrigin string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithAllowOrigin sets the CORS origin. An empty origin disables CORS headers.
func WithAllowOrigin(origin string) Option {
	return func(s *Server) {
		s.allowOrigin = origin
	}
}

func NewServer(a chatService, opts ...Option) *Server {
	s := &Server{
		agent:       a,
		allowOrigin: "*",
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withCORS(s.mux)
}

// ListenAndServe serves on addr until Shutdown. It returns
// http.ErrServerClosed after Shutdown, including when Shutdown ran first.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.server.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/capabilities", s.handleCapabilities)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.allowOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", s.allowOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if s.allowOrigin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
