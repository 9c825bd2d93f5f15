package kafka

import (
	"log"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBrokers = "localhost:9092"
	DefaultSessionTopic = "focus_session_updates"
)

// NewSessionProducer builds the writer for the session-updates topic, which
// carries activation, progress, deactivation and reminder events to the
// presenter.
func NewSessionProducer() *kafka.Writer {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	sessionTopic := os.Getenv("SESSION_TOPIC")
	if sessionTopic == "" {
		sessionTopic = DefaultSessionTopic
	}
	brokerList := strings.Split(kafkaBrokers, ",")
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokerList,
		Topic:        sessionTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: int(kafka.RequireOne),
		Async:        false,
	})
	log.Printf("Focus Manager Kafka producer configured for topic: %s", sessionTopic)
	return producer
}
