package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer the producer needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaClient publishes analysis jobs to a Kafka topic, keyed by analysis ID.
type KafkaClient struct {
	Writer KafkaWriter
}

// NewKafkaClient builds a producer for topic on brokers.
func NewKafkaClient(brokers []string, topic string) (*KafkaClient, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS and KAFKA_TOPIC are required")
	}
	return &KafkaClient{Writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}, nil
}

// NewKafkaReader builds a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) (*kafka.Reader, error) {
	if len(brokers) == 0 || topic == "" || groupID == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS, KAFKA_TOPIC and KAFKA_GROUP_ID are required")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  time.Second,
	}), nil
}

func (k *KafkaClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode kafka message: %w", err)
	}
	if err := k.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AnalysisID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("kafka write message: %w", err)
	}
	return nil
}

func (k *KafkaClient) Close() error {
	return k.Writer.Close()
}

var _ Client = (*KafkaClient)(nil)
