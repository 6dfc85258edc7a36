package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/application"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/broker"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/config"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/directory"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/handlers"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/history"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/identity"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/invite"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/kafka"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/objectstore"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/repository/postgres"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/router"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/server"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/websocket"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// resources are closed in reverse order of acquisition on shutdown.
type resources struct {
	db       *sql.DB
	badger   *badger.DB
	redis    *redis.Client
	producer *kafka.Producer
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer tp.Shutdown(context.Background())
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	res := &resources{}
	var readiness []observability.ReadinessCheck

	if cfg.DatabaseURL != "" {
		res.db = initPostgres(ctx, cfg.DatabaseURL, log)
		readiness = append(readiness, res.db.PingContext)
	}
	if cfg.RedisAddr != "" {
		res.redis = initRedis(ctx, cfg.RedisAddr, log)
		readiness = append(readiness, func(ctx context.Context) error { return res.redis.Ping(ctx).Err() })
	}

	store := initHistory(cfg, res, log)
	profiles := initProfiles(cfg, res)
	dir := initDirectory(ctx, cfg, res, log)

	var publisher broker.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatal("failed to create kafka producer", zap.Error(err))
		}
		res.producer = p
		publisher = p
	}

	reg := websocket.NewRegistry()
	b := broker.New(store, dir, reg, broker.Options{
		PersistTimeout: cfg.PersistTimeout,
		HistoryLimit:   cfg.HistoryLimit,
		Publisher:      publisher,
	})
	svc := application.New(dir, b, profiles)

	verifier := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	wsHandler := websocket.NewHandler(reg, &identity.Authenticator{Verifier: verifier, Profiles: profiles}, svc, websocket.Options{
		AuthTimeout:   cfg.AuthTimeout,
		SendQueueSize: cfg.SendQueueSize,
	})

	uploads, err := objectstore.NewDisk(cfg.UploadDir, cfg.UploadBaseURL, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatal("failed to prepare upload storage", zap.Error(err))
	}

	handler := router.NewRouter(
		handlers.NewRoomHandler(svc, cfg.HistoryLimit),
		handlers.NewUploadHandler(uploads, cfg.MaxUploadBytes),
		wsHandler,
		verifier,
		router.Config{
			ServiceName:       cfg.ServiceName,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
			UploadDir:         cfg.UploadDir,
			UploadPath:        cfg.UploadBaseURL,
		},
		readiness...,
	)

	obsSrv := initObservabilityServer(cfg, readiness, log)
	mainSrv := server.New(cfg.HTTPAddr, handler)
	healthSrv := initHealthGRPC(ctx, cfg, readiness, log)

	startServers(cfg, obsSrv, mainSrv, log)

	<-ctx.Done()
	performGracefulShutdown(obsSrv, mainSrv, healthSrv, reg, b, res, log)
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func initPostgres(ctx context.Context, url string, log *zap.Logger) *sql.DB {
	db, err := postgres.Open(ctx, url)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}
	return db
}

func initRedis(ctx context.Context, addr string, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return client
}

func initHistory(cfg *config.Config, res *resources, log *zap.Logger) history.Store {
	var store history.Store
	switch cfg.HistoryBackend {
	case config.HistoryPostgres:
		store = &postgres.MessageRepository{DB: res.db}
	case config.HistoryBadger:
		db, err := history.OpenBadger(cfg.BadgerPath)
		if err != nil {
			log.Fatal("failed to open badger", zap.String("path", cfg.BadgerPath), zap.Error(err))
		}
		res.badger = db
		store = history.NewBadger(db)
	default:
		store = history.NewMemory()
	}
	log.Info("history store ready", zap.String("backend", cfg.HistoryBackend))

	if res.redis != nil {
		store = history.NewCached(store, res.redis, cfg.HistoryCacheSize)
	}
	return store
}

func initProfiles(cfg *config.Config, res *resources) identity.Profiles {
	var profiles identity.Profiles = identity.SubjectProfiles{}
	if res.db != nil {
		profiles = &postgres.ProfileRepository{DB: res.db}
	}
	if res.redis != nil {
		profiles = &identity.CachedProfiles{Source: profiles, R: res.redis, TTL: cfg.ProfileCacheTTL}
	}
	return profiles
}

func initDirectory(ctx context.Context, cfg *config.Config, res *resources, log *zap.Logger) *directory.Directory {
	codes, err := invite.New(cfg.InviteCodeLength)
	if err != nil {
		log.Fatal("failed to create invite code generator", zap.Error(err))
	}

	var store directory.Store
	if res.db != nil {
		store = postgres.NewRoomRepository(res.db)
	}

	dir := directory.New(store, directory.Options{
		Codes:           codes,
		CodeLength:      cfg.InviteCodeLength,
		MaxCodeAttempts: cfg.InviteCodeMaxAttempts,
	})
	if err := dir.Load(ctx); err != nil {
		log.Fatal("failed to load rooms", zap.Error(err))
	}
	return dir
}

func initObservabilityServer(cfg *config.Config, readiness []observability.ReadinessCheck, log *zap.Logger) *http.Server {
	mux := chi.NewRouter()
	mux.Use(observability.MetricsMiddleware(cfg.ServiceName))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health/live", observability.HealthLiveHandler)
	mux.Get("/health/ready", observability.HealthReadyHandler(readiness...))
	return &http.Server{Addr: cfg.ObsHTTPAddr, Handler: mux}
}

func initHealthGRPC(ctx context.Context, cfg *config.Config, readiness []observability.ReadinessCheck, log *zap.Logger) *server.HealthServer {
	srv := server.NewHealthServer(readiness...)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("failed to listen for grpc", zap.Error(err))
	}
	go func() {
		log.Info("starting grpc health server", zap.String("addr", cfg.GRPCAddr))
		if err := srv.Serve(lis); err != nil {
			log.Error("grpc health server error", zap.Error(err))
		}
	}()
	go srv.Watch(ctx, 10*time.Second)
	return srv
}

func startServers(cfg *config.Config, obsSrv *http.Server, mainSrv *server.Server, log *zap.Logger) {
	go func() {
		log.Info("starting observability server", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("observability server error", zap.Error(err))
		}
	}()
	go func() {
		if err := mainSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()
}

func performGracefulShutdown(
	obs *http.Server,
	mainSrv *server.Server,
	healthSrv *server.HealthServer,
	reg *websocket.Registry,
	b *broker.Broker,
	res *resources,
	log *zap.Logger,
) {
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthSrv.Stop()
	if err := mainSrv.Shutdown(ctx); err != nil {
		log.Error("error during main server shutdown", zap.Error(err))
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error("error during observability server shutdown", zap.Error(err))
	}

	reg.CloseAll()
	b.Close()

	if res.producer != nil {
		res.producer.Close(ctx)
	}
	if res.redis != nil {
		_ = res.redis.Close()
	}
	if res.badger != nil {
		if err := res.badger.Close(); err != nil {
			log.Error("error closing badger", zap.Error(err))
		}
	}
	if res.db != nil {
		_ = res.db.Close()
	}
	log.Info("shutdown complete, exiting")
}
