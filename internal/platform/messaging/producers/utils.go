package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

type topicSpec struct {
	name              string
	partitions        int
	replicationFactor int
}

// topicAdmin is the subset of *kafka.Conn used to manage topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates the topic when its partitions cannot be read. Partition counts
// default to 1.
func ensureTopic(admin topicAdmin, want topicSpec, log *slog.Logger) error {
	return ensureTopicWithBackoff(admin, want, log, topicReadBackoff)
}

func ensureTopicWithBackoff(admin topicAdmin, want topicSpec, log *slog.Logger, backoff time.Duration) error {
	var (
		partitions []kafka.Partition
		err        error
	)
	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		partitions, err = admin.ReadPartitions(want.name)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", want.name, "partitions", len(partitions))
			return nil
		}
		log.Warn("Failed to read topic partitions", "topic", want.name, "attempt", attempt, "error", err)
		if attempt < topicReadAttempts {
			time.Sleep(backoff)
		}
	}

	topicConfig := kafka.TopicConfig{
		Topic:             want.name,
		NumPartitions:     want.partitions,
		ReplicationFactor: want.replicationFactor,
	}
	if topicConfig.NumPartitions <= 0 {
		topicConfig.NumPartitions = 1
	}
	if topicConfig.ReplicationFactor <= 0 {
		topicConfig.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic",
		"topic", want.name,
		"partitions", topicConfig.NumPartitions,
		"replication_factor", topicConfig.ReplicationFactor,
	)
	if err := admin.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", want.name, err)
	}
	return nil
}
