package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Ahnaf-Tariq/echochat-server/internal/config"
	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

// Publisher mirrors every channel event onto a Kafka topic for downstream
// consumers (search indexing, notification fan-out). Publishing is best
// effort from the chat path's point of view: callers log failures and keep
// going, the hub delivery already happened.
type Publisher interface {
	Publish(ctx context.Context, event models.ChannelEvent) error
	Close() error
}

func NewPublisher(cfg *config.Config) Publisher {
	if !cfg.Kafka.Enabled {
		return &noopPublisher{}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}
	return &kafkaPublisher{writer: writer}
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func (p *kafkaPublisher) Publish(ctx context.Context, event models.ChannelEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// key by channel so per-channel ordering survives partitioning
	msg := kafka.Message{
		Key:   []byte(event.Channel),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

func (*noopPublisher) Publish(context.Context, models.ChannelEvent) error { return nil }
func (*noopPublisher) Close() error                                       { return nil }
