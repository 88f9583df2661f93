package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/messaging/producers"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// messageReader is the subset of *kafka.Reader the consumer needs
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer using a Kafka consumer group
type KafkaConsumer struct {
	reader       messageReader
	logger       *slog.Logger
	topic        string
	groupID      string
	retryBackoff time.Duration
	done         chan struct{}
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		logger:       logger,
		topic:        cfg.LedgerEventsTopic,
		groupID:      cfg.ConsumerGroup,
		retryBackoff: time.Second,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.LedgerEventsTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts consuming in the background. A message is committed only after the
// handler succeeds; a failing message is retried in place so later messages of the same
// partition are not projected ahead of it.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Context canceled, stopping consumer", "topic", c.topic)
					return
				}
				c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
				if !c.sleep(ctx) {
					return
				}
				continue
			}

			if !c.process(ctx, msg, handler) {
				return
			}
		}
	}()

	return nil
}

// process runs handler until it succeeds and commits the offset. It returns false when
// ctx ends first.
func (c *KafkaConsumer) process(ctx context.Context, msg kafka.Message, handler MessageHandler) bool {
	msgCtx := ctx
	for _, h := range msg.Headers {
		if h.Key == producers.CorrelationIDHeader && len(h.Value) > 0 {
			msgCtx = logger.WithCorrelationID(ctx, string(h.Value))
		}
	}
	log := logger.FromContext(msgCtx, c.logger).With(
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)

	for attempt := 1; ; attempt++ {
		err := handler(msgCtx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		log.Error("Failed to process message, retrying", "attempt", attempt, "error", err)
		if !c.sleep(ctx) {
			return false
		}
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message after successful processing", "error", err)
		return ctx.Err() == nil
	}
	log.Debug("Message committed")
	return true
}

func (c *KafkaConsumer) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retryBackoff):
		return true
	}
}

// Close stops the reader and waits for the consume loop to exit
func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	err := c.reader.Close()
	if c.done != nil {
		<-c.done
	}
	return err
}
