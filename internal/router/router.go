package router

import (
	"net/http"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/handlers"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/identity"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/middleware"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	ServiceName       string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	UploadDir         string
	UploadPath        string
}

func NewRouter(
	roomH *handlers.RoomHandler,
	uploadH *handlers.UploadHandler,
	gateway http.Handler,
	verifier *identity.Verifier,
	cfg Config,
	readiness ...observability.ReadinessCheck,
) http.Handler {

	api := chi.NewRouter()

	api.Use(middleware.RequestID)
	api.Use(observability.MetricsMiddleware(cfg.ServiceName))
	api.Use(middleware.Recovery())
	if cfg.RateLimitRequests > 0 {
		api.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	api.Get("/health/live", observability.HealthLiveHandler)
	api.Get("/health/ready", observability.HealthReadyHandler(readiness...))

	if cfg.UploadDir != "" && cfg.UploadPath != "" {
		api.Handle(cfg.UploadPath+"/*", http.StripPrefix(cfg.UploadPath+"/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	api.Group(func(p chi.Router) {
		p.Use(middleware.JWT(verifier))

		p.Post("/api/rooms", roomH.CreatePrivateRoom)
		p.Post("/api/rooms/join", roomH.JoinPrivateRoom)
		p.Get("/api/rooms/mine", roomH.MyPrivateRooms)

		p.Post("/api/rooms/public", roomH.CreatePublicRoom)
		p.Get("/api/rooms/public", roomH.ListPublicRooms)
		p.Post("/api/rooms/public/join", roomH.JoinPublicRoom)

		p.Route("/api/rooms/{roomID}", func(rr chi.Router) {
			rr.Delete("/", roomH.DeleteRoom)
			rr.Post("/leave", roomH.LeaveRoom)
			rr.Get("/members", roomH.RoomMembers)
			rr.Get("/messages", roomH.History)
		})

		if uploadH != nil {
			p.Post("/api/upload", uploadH.Upload)
		}
	})

	// The gateway authenticates its own handshake and needs the raw
	// connection for the upgrade, so it stays outside the HTTP middleware.
	root := chi.NewRouter()
	if gateway != nil {
		root.Handle("/ws", gateway)
	}
	root.Handle("/*", otelhttp.NewHandler(api, cfg.ServiceName))
	return root
}
