package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/segmentio/kafka-go"
)

// ErrDLQDisabled is returned by PublishToDLQ when no dead-letter topic is configured
var ErrDLQDisabled = errors.New("DLQ producer not initialized")

// DLQProducer parks ledger events the worker cannot decode
type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
}

// dlqMessage is the parked record. A value that is valid JSON is embedded as is so
// operators can replay it; anything else is kept byte for byte in base64.
type dlqMessage struct {
	OriginalKey   string          `json:"original_key"`
	OriginalJSON  json.RawMessage `json:"original_json,omitempty"`
	OriginalBytes []byte          `json:"original_bytes,omitempty"`
	Reason        string          `json:"reason"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ParkedAt      time.Time       `json:"parked_at"`
}

func newDLQMessage(ctx context.Context, key string, original []byte, reason string) dlqMessage {
	m := dlqMessage{
		OriginalKey:   key,
		Reason:        reason,
		CorrelationID: logger.CorrelationID(ctx),
		ParkedAt:      time.Now().UTC(),
	}
	if json.Valid(original) {
		m.OriginalJSON = original
	} else {
		m.OriginalBytes = original
	}
	return m
}

// NewDLQProducer returns a nil producer when cfg.DLQTopic is empty
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, undecodable events will be retried")
		return nil, nil
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for dlq producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, topicSpec{
		name:              cfg.DLQTopic,
		partitions:        cfg.NumPartitions,
		replicationFactor: cfg.ReplicationFactor,
	}, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &DLQProducer{
		logger:   logger,
		writer:   writer,
		dlqTopic: cfg.DLQTopic,
	}, nil
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	parked := newDLQMessage(ctx, key, originalMessageValue, reason)
	value, err := json.Marshal(parked)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	headers := []kafka.Header{{Key: "dlq-reason", Value: []byte(reason)}}
	if parked.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: CorrelationIDHeader, Value: []byte(parked.CorrelationID)})
	}
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message to DLQ",
			"topic", p.dlqTopic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Message parked in DLQ",
		"topic", p.dlqTopic,
		"key", key,
		"reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
