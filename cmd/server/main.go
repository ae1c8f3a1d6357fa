package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/adapters/event"
	httpAdapter "github.com/khoahotran/town-notes/adapters/http"
	"github.com/khoahotran/town-notes/adapters/persistence"
	"github.com/khoahotran/town-notes/internal/application/service"
	fieldReportUC "github.com/khoahotran/town-notes/internal/application/usecase/fieldreport"
	profileUC "github.com/khoahotran/town-notes/internal/application/usecase/profile"
	"github.com/khoahotran/town-notes/internal/config"
	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/auth"
	"github.com/khoahotran/town-notes/pkg/logger"
	"github.com/khoahotran/town-notes/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	log := logger.NewZapLogger(cfg.App.Env)
	defer log.Sync()

	log.Info("Start Town Notes API Server...", zap.String("store", cfg.Store.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tp, err := tracing.NewTracerProvider(cfg, log, "town-notes-api")
	if err != nil {
		log.Fatal("Cannot init tracing", err)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("Failed to shutdown tracer provider", err)
			}
		}()
	}

	// Repositories
	profileRepo, fieldReportRepo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Cannot open document store", err)
	}
	defer closeStore()

	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(cfg, log)
		if err != nil {
			log.Fatal("Cannot connect Redis", err)
		}
		defer redisClient.Close()
		profileRepo = persistence.NewCachedProfileRepo(profileRepo, persistence.NewProfileCache(redisClient, cfg.Redis.CacheTTL), log)
	}

	// Events
	var publisher service.EventPublisher = event.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, log)
		if err != nil {
			log.Fatal("Cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	}

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)

	// Use Cases
	profileUseCase := profileUC.NewProfileUseCase(profileRepo, publisher, log)
	fieldReportUseCase := fieldReportUC.NewFieldReportUseCase(fieldReportRepo, publisher, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		ProfileHandler:     httpAdapter.NewProfileHandler(profileUseCase, log),
		FieldReportHandler: httpAdapter.NewFieldReportHandler(fieldReportUseCase, log),
		JWTService:         jwtSvc,
		Metrics:            httpAdapter.NewMetrics(),
		Logger:             log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Cannot run server", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err)
	}
}

// openStore builds both repositories on the configured backend. The returned
// func releases the backend's client or pool.
func openStore(ctx context.Context, cfg config.Config, log logger.Logger) (profile.Repository, fieldreport.Repository, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := persistence.NewPostgresPool(cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return persistence.NewPostgresProfileRepo(pool, log),
			persistence.NewPostgresFieldReportRepo(pool, log),
			pool.Close,
			nil

	case config.DriverMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		store := persistence.NewMemoryStore()
		return store.Profiles(), store.FieldReports(), func() {}, nil

	default:
		client, db, err := persistence.NewMongoDatabase(ctx, cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error("Failed to disconnect MongoDB", err)
			}
		}
		return persistence.NewMongoProfileRepo(db, log),
			persistence.NewMongoFieldReportRepo(db, log),
			closeFn,
			nil
	}
}
