package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/khoahotran/town-notes/internal/config"
	"github.com/khoahotran/town-notes/pkg/logger"
)

const (
	TopicProfileEvents     = "profile.events"
	TopicFieldReportEvents = "fieldreport.events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	ProfileEventsWriter     messageWriter
	FieldReportEventsWriter messageWriter
	logger                  logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'profile.events'
	profileWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicProfileEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	// writer 'fieldreport.events'
	reportWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicFieldReportEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.")

	return &KafkaProducerClient{
		ProfileEventsWriter:     profileWriter,
		FieldReportEventsWriter: reportWriter,
		logger:                  log,
	}, nil
}

// PublishProfileEvent keys messages by email so one profile's events stay
// ordered within a partition.
func (c *KafkaProducerClient) PublishProfileEvent(ctx context.Context, payload ProfileEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal profile event: %w", err)
	}
	return c.ProfileEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.Email),
		Value: value,
	})
}

func (c *KafkaProducerClient) PublishFieldReportEvent(ctx context.Context, payload FieldReportEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal field report event: %w", err)
	}
	return c.FieldReportEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.Username + "/" + payload.SessionID),
		Value: value,
	})
}

func (c *KafkaProducerClient) Close() {
	if c.ProfileEventsWriter != nil {
		c.ProfileEventsWriter.Close()
	}
	if c.FieldReportEventsWriter != nil {
		c.FieldReportEventsWriter.Close()
	}
	c.logger.Info("Closed Kafka Producers")
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishProfileEvent(context.Context, ProfileEventPayload) error { return nil }

func (NopPublisher) PublishFieldReportEvent(context.Context, FieldReportEventPayload) error {
	return nil
}
