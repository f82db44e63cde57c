package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricewatch-service/config"
	"pricewatch-service/internal/api"
	"pricewatch-service/internal/broker"
	"pricewatch-service/internal/ingest"
	"pricewatch-service/internal/redisclient"
	"pricewatch-service/internal/service"
	"pricewatch-service/internal/store"
	"pricewatch-service/internal/util"
	"pricewatch-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pricewatch service")

	matching := config.DefaultMatching()
	if cfg.Run.MatchingPath != "" {
		loaded, err := config.LoadMatching(cfg.Run.MatchingPath)
		if err != nil {
			log.Fatalf("Failed to load matching config: %v", err)
		}
		matching = loaded
	}
	if err := matching.Validate(); err != nil {
		log.Fatalf("Invalid matching config: %v", err)
	}

	tp, err := util.InitTracer("pricewatch-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(context.Background()); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	buffer := ingest.NewBuffer()
	engine := service.NewEngine(db, redisClient, eventPublisher, matching, cfg.Run)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	listingConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicListings, cfg.Kafka.IngestGroup)
	listingWorker := worker.NewListingWorker(listingConsumer, buffer)
	go func() {
		if err := listingWorker.Start(workerCtx); err != nil {
			log.Printf("Listing worker error: %v", err)
		}
	}()

	deliveryConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.DeliveryGroup)
	deliveryWorker := worker.NewDeliveryWorker(deliveryConsumer, db, worker.NewLogNotifier())
	go func() {
		if err := deliveryWorker.Start(workerCtx); err != nil {
			log.Printf("Delivery worker error: %v", err)
		}
	}()

	if cfg.Run.At != "" {
		scheduler, err := worker.NewScheduler(cfg.Run.At, func(ctx context.Context, day time.Time) error {
			_, err := engine.ProcessRun(ctx, day, buffer.Drain())
			return err
		})
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		go func() {
			if err := scheduler.Start(workerCtx); err != nil {
				log.Printf("Scheduler error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(engine, db, buffer)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	listingWorker.Stop()
	deliveryWorker.Stop()

	log.Println("Server exited")
}
