// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/ralborta/nutryhome-backend/internal/config"
	"github.com/ralborta/nutryhome-backend/internal/controller"
	"github.com/ralborta/nutryhome-backend/internal/db"
	"github.com/ralborta/nutryhome-backend/internal/elevenlabs"
	"github.com/ralborta/nutryhome-backend/internal/phone"
	"github.com/ralborta/nutryhome-backend/internal/queue"
	"github.com/ralborta/nutryhome-backend/internal/repository"
	"github.com/ralborta/nutryhome-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	if missing := cfg.MissingElevenLabs(); len(missing) > 0 {
		// The server still starts for status reads; submissions will be
		// rejected by the validator until the config is complete.
		log.Println("⚠️ Missing ElevenLabs configuration:", missing)
	}

	db.Init(cfg.DatabaseURL())

	batchRepo := &repository.BatchRepository{DB: db.DB}
	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}
	callRepo := &repository.OutboundCallRepository{DB: db.DB}
	transcriptRepo := &repository.TranscriptRepository{DB: db.DB}

	client := elevenlabs.NewClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, nil)
	validator := &service.ConfigValidator{Config: cfg, Client: client}

	reconciler := &service.Reconciler{
		BatchRepo:      batchRepo,
		CallRepo:       callRepo,
		ContactRepo:    contactRepo,
		TranscriptRepo: transcriptRepo,
		Client:         client,
	}

	// Reconcile jobs go to RabbitMQ for cmd/worker when reachable,
	// otherwise to the in-process queue with its own subscriber.
	var q queue.Queue
	if ch := dialQueueChannel(cfg.AMQPURL); ch != nil {
		q = &queue.AMQPQueue{Channel: ch}
	} else {
		mem := queue.NewInMemoryQueue()
		queue.StartReconcileSubscriber(mem, service.ReconcileTopic, reconciler)
		q = mem
	}

	batchService := &service.BatchService{
		BatchRepo:    batchRepo,
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		CallRepo:     callRepo,
		Client:       client,
		Validator:    validator,
		Queue:        q,
		Config:       cfg,
		Phones: &phone.Normalizer{
			CountryCode:      cfg.CountryCode,
			MobileIndicator:  cfg.MobileIndicator,
			LocalMobileInfix: phone.Argentina.LocalMobileInfix,
		},
	}

	batchController := &controller.BatchController{
		BatchService: batchService,
		Reconciler:   reconciler,
	}
	webhookController := &controller.WebhookController{
		Reconciler: reconciler,
	}

	r := chi.NewRouter()

	// Batch orchestration routes, on the same paths the dashboard calls
	r.Post("/batches", batchController.CreateBatch)
	r.Post("/batch/{id}/execute", batchController.ExecuteBatch)
	r.Get("/batch/{id}/status", batchController.GetBatchStatus)
	r.Post("/batch/{id}/cancel", batchController.CancelBatch)
	r.Post("/batch/{id}/reset", batchController.ResetBatch)
	r.Post("/batch/{id}/reconcile", batchController.ReconcileBatch)

	// Inbound events from ElevenLabs
	r.Post("/webhooks/elevenlabs", webhookController.ElevenLabsWebhook)

	log.Println("🚀 Server running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

func dialQueueChannel(url string) *amqp.Channel {
	if url == "" {
		return nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Println("⚠️ RabbitMQ unreachable, using in-process queue:", err)
		return nil
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Println("⚠️ Failed to open queue channel, using in-process queue:", err)
		conn.Close()
		return nil
	}
	return ch
}
