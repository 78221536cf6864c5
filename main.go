package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"otoil-backend/config"
	"otoil-backend/controllers"
	"otoil-backend/routes"
	"otoil-backend/services"
	"otoil-backend/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatalf("failed to load configuration from %s", configPath)
	}
	config.SetupLogger(cfg.Log)
	log.Infof("configuration loaded from %s", configPath)

	db, err := config.ConnectDB(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records, closeRecords := openRecordStore(ctx, cfg, db)
	defer closeRecords()

	feed := services.NewRecordFeed(records)
	if err := feed.Refresh(ctx); err != nil {
		log.WithError(err).Warn("initial record load failed")
	}

	var pool *services.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = services.NewWorkerPool(cfg.WorkerPool.Size, db, webpushOptions)
		pool.Start(ctx)
	} else {
		log.Warn("VAPID keys not configured; web push disabled")
	}

	reminders := services.NewReminderService(db, records, cfg.Reminders, pool)
	if err := reminders.StartScheduler(); err != nil {
		log.WithError(err).Fatal("failed to start reminder scheduler")
	}

	var strategist services.StrategyAdvisor
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		advisor, err := services.NewGeminiAdvisor(ctx, key, cfg.Strategy.Model)
		if err != nil {
			log.WithError(err).Warn("strategy advisor disabled")
		} else {
			strategist = advisor
		}
	} else {
		log.Info("GEMINI_API_KEY not set; strategy advisor disabled")
	}

	h := controllers.NewHandler(controllers.Dependencies{
		Config:      cfg,
		DB:          db,
		Records:     records,
		Devices:     store.NewGormDeviceStores(db),
		Feed:        feed,
		Hub:         services.NewAuthStateHub(),
		Revocations: services.NewTokenRevocations(),
		ReadStates:  services.NewReadStateHub(),
		PDF:         services.NewPDFRenderer(cfg.PDF),
		Strategist:  strategist,
	})

	r := routes.SetupRouter(h, cfg)
	printRoutes(r)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		log.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutdown signal received, stopping services")

	<-reminders.Stop().Done()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	log.Info("server gracefully stopped")
}

// openRecordStore picks the record backend. The returned func releases it.
func openRecordStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (store.RecordStore, func()) {
	if cfg.Records.Backend != "mongo" {
		return store.NewGormStore(db), func() {}
	}

	client, err := store.ConnectMongo(ctx, cfg.Records.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	coll := client.Database(cfg.Records.MongoDB).Collection(cfg.Records.Collection)
	return store.NewMongoStore(coll), func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("failed to disconnect from MongoDB")
		}
	}
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
