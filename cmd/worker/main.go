// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/ralborta/nutryhome-backend/internal/config"
	"github.com/ralborta/nutryhome-backend/internal/db"
	"github.com/ralborta/nutryhome-backend/internal/elevenlabs"
	"github.com/ralborta/nutryhome-backend/internal/repository"
	"github.com/ralborta/nutryhome-backend/internal/service"
)

type QueueJob struct {
	OutboundCallID int `json:"outbound_call_id"`
}

const maxReconcileRetries = 3

// retryCount reads the x-retry-count header. AMQP integer headers come back
// as int32 after a broker round trip, so every integer width is accepted.
func retryCount(headers amqp.Table) int {
	switch v := headers["x-retry-count"].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	db.Init(cfg.DatabaseURL())

	batchRepo := &repository.BatchRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}
	callRepo := &repository.OutboundCallRepository{DB: db.DB}
	transcriptRepo := &repository.TranscriptRepository{DB: db.DB}

	client := elevenlabs.NewClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, nil)

	reconciler := &service.Reconciler{
		BatchRepo:      batchRepo,
		CallRepo:       callRepo,
		ContactRepo:    contactRepo,
		TranscriptRepo: transcriptRepo,
		Client:         client,
	}

	// Connect to RabbitMQ
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		service.ReconcileTopic, // name
		true,                   // durable
		false,                  // delete when unused
		false,                  // exclusive
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job QueueJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			err := reconciler.ReconcileCall(context.Background(), job.OutboundCallID)
			if err != nil {
				log.Println("Failed to reconcile call:", err)
				retries := retryCount(d.Headers)
				if retries < maxReconcileRetries {
					// Republish with the incremented counter; a plain
					// requeue would keep the original headers and retry
					// forever.
					pub := amqp.Publishing{
						ContentType: "application/json",
						Body:        d.Body,
						Headers:     amqp.Table{"x-retry-count": int32(retries + 1)},
					}
					if pubErr := ch.Publish("", q.Name, false, false, pub); pubErr != nil {
						log.Println("Failed to republish job:", pubErr)
						d.Nack(false, true)
						continue
					}
				} else {
					log.Printf("⚠️ Dropping call %d after %d reconcile attempts", job.OutboundCallID, maxReconcileRetries)
				}
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for reconcile jobs...")
	<-forever
}
