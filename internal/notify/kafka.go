package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Producer is the subset of *kafka.Producer used here.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// KafkaDispatcher publishes messages to a topic consumed by the push gateway.
type KafkaDispatcher struct {
	producer Producer
	topic    string
}

// NewKafkaProducer connects a producer to the given bootstrap servers.
func NewKafkaProducer(brokers string) (*kafka.Producer, error) {
	return kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
	})
}

func NewKafkaDispatcher(producer Producer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic}
}

// Dispatch produces the message keyed by device token and waits for its delivery report.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	delivery := make(chan kafka.Event, 1)
	err = d.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &d.topic, Partition: kafka.PartitionAny},
		Key:            []byte(msg.Token),
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce push message: %w", err)
	}

	select {
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver push message: %w", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes outstanding messages for up to five seconds.
func (d *KafkaDispatcher) Close() {
	d.producer.Flush(5000)
	d.producer.Close()
}
