package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"focus-time-service/internal/focus-manager/events"
	"focus-time-service/internal/focus-presenter/notifiers"
)

const (
	DefaultKafkaBrokers = "localhost:9092"
	DefaultSessionTopic = "focus_session_updates"
	DefaultGroupID      = "focus-presenter-group"
)

func main() {
	log.Println("Starting Focus Presenter Service...")

	notifiers.RegisterNotifier(notifiers.NotifierTypeConsole, &notifiers.ConsoleNotifier{})
	if webhookURL := os.Getenv("WEBHOOK_URL"); webhookURL != "" {
		notifiers.RegisterNotifier(notifiers.NotifierTypeWebhook, notifiers.NewWebhookNotifier(webhookURL))
	}

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	sessionTopic := os.Getenv("SESSION_TOPIC")
	if sessionTopic == "" {
		sessionTopic = DefaultSessionTopic
	}
	groupID := os.Getenv("GROUP_ID")
	if groupID == "" {
		groupID = DefaultGroupID
	}
	brokerList := strings.Split(kafkaBrokers, ",")
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokerList, GroupID: groupID, Topic: sessionTopic,
		MinBytes: 10e3, MaxBytes: 10e6, CommitInterval: time.Second, MaxWait: 3 * time.Second,
	})
	defer reader.Close()
	log.Printf("Focus Presenter Kafka consumer configured for brokers: %s, topic: %s, groupID: %s",
		kafkaBrokers, sessionTopic, groupID)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-signals
		log.Printf("Focus Presenter: Shutdown signal received (%s). Cancelling context...", sig)
		cancel()
	}()

	log.Println("Focus Presenter listening for session events...")
	for {
		select {
		case <-ctx.Done():
			log.Println("Focus Presenter: Context cancelled. Exiting message loop.")
			return
		default:
			readCtx, readLoopCancel := context.WithTimeout(ctx, 1*time.Second)
			m, err := reader.ReadMessage(readCtx)
			readLoopCancel()
			if err == context.DeadlineExceeded {
				continue
			}
			if err == context.Canceled {
				log.Println("Focus Presenter: Read context cancelled, likely due to shutdown.")
				continue
			}
			if err == io.EOF {
				log.Println("Focus Presenter: Kafka reader closed (EOF). Exiting.")
				return
			}
			if err != nil {
				log.Printf("Focus Presenter: Kafka read error: %v. Retrying...", err)
				time.Sleep(1 * time.Second)
				continue
			}

			var event events.SessionEvent
			if err := json.Unmarshal(m.Value, &event); err != nil {
				log.Printf("Focus Presenter: Unmarshal error for session event: %v. Value: %s", err, string(m.Value))
				continue
			}
			notifiers.Dispatch(event)
		}
	}
}
