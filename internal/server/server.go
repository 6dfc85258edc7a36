package server

import (
	"context"
	"net/http"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"go.uber.org/zap"
)

type Server struct {
	httpServer *http.Server
}

// New builds the public server. No write timeout is set because upgraded
// websocket connections manage their own deadlines.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	observability.GetLogger(context.Background()).Info("starting server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	observability.GetLogger(context.Background()).Info("shutting down server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.Shutdown(ctx)
}
