package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/adapters/event"
	"github.com/khoahotran/town-notes/adapters/persistence"
	cacheUC "github.com/khoahotran/town-notes/internal/application/usecase/cache"
	"github.com/khoahotran/town-notes/internal/config"
	"github.com/khoahotran/town-notes/pkg/logger"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	log := logger.NewZapLogger(cfg.App.Env)
	defer log.Sync()

	log.Info("Starting Town Notes cache worker...")

	if cfg.Redis.Addr == "" || len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("Worker needs both REDIS_ADDR and KAFKA_BROKERS", nil)
	}

	// Redis
	redisClient, err := persistence.NewRedisClient(cfg, log)
	if err != nil {
		log.Fatal("Cannot connect Redis", err)
	}
	defer redisClient.Close()

	profileCache := persistence.NewProfileCache(redisClient, cfg.Redis.CacheTTL)

	// Worker Use Case
	invalidateUC := cacheUC.NewInvalidateProfileUseCase(profileCache, log)

	// Kafka Consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicProfileEvents,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Worker listening", zap.String("topic", event.TopicProfileEvents), zap.String("group_id", cfg.Kafka.GroupID))

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Worker stopped")
				return
			}
			log.Error("Failed to read message from Kafka", err)
			continue
		}

		var payload event.ProfileEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Error("Failed to unmarshal event, skipping", err, zap.String("key", string(msg.Key)))
			commitMessage(ctx, consumer, msg, log)
			continue
		}

		if err := invalidateUC.Execute(ctx, payload); err != nil {
			log.Error("Failed to process profile event", err, zap.String("email", payload.Email))
			continue
		}

		commitMessage(ctx, consumer, msg, log)
	}
}

func commitMessage(ctx context.Context, consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}
