package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/models"
)

// RevenueEventMessage is the inbound payload emitted by billing, tipping and
// paid-article modules on the revenue.events topic.
type RevenueEventMessage struct {
	AuthorID    uuid.UUID             `json:"author_id"`
	ArticleID   *uuid.UUID            `json:"article_id,omitempty"`
	Channel     models.RevenueChannel `json:"channel"`
	GrossAmount int64                 `json:"gross_amount"`
	OccurredAt  time.Time             `json:"occurred_at"`
}

// Consumer feeds revenue events from Kafka into the recorder.
type Consumer struct {
	recorder *Recorder
	logger   *zap.Logger
}

func NewConsumer(recorder *Recorder, logger *zap.Logger) *Consumer {
	return &Consumer{recorder: recorder, logger: logger}
}

// Run consumes revenue.events until the context is cancelled. Malformed or
// rejected messages are logged and skipped; the loop never dies on one event.
func (c *Consumer) Run(ctx context.Context, kafkaBrokers string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{kafkaBrokers},
		Topic:    "revenue.events",
		GroupID:  "settlement-engine",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	c.logger.Info("Started consuming revenue.events")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				c.logger.Info("Revenue event consumer stopped")
				return
			}
			c.logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		var event RevenueEventMessage
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("Error unmarshaling revenue event", zap.Error(err))
			continue
		}

		if _, err := c.recorder.RecordRevenueEvent(ctx, event.AuthorID, event.Channel, event.GrossAmount, event.ArticleID, event.OccurredAt); err != nil {
			c.logger.Error("Error recording revenue event",
				zap.String("author_id", event.AuthorID.String()),
				zap.String("channel", string(event.Channel)),
				zap.Error(err),
			)
		}
	}
}
