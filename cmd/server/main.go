package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	httpapi "evrental-backend/internal/api/http"
	"evrental-backend/internal/config"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository/postgres"
	"evrental-backend/internal/security"
	"evrental-backend/internal/service"
	"evrental-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting EV Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Initialize Storage Service
	var storageService storage.StorageInterface
	if cfg.Storage.Type == "" || cfg.Storage.Type == "local" {
		logger.Info("Using local photo storage", "upload_dir", cfg.Storage.UploadDir)
		localStorage, err := storage.NewLocalStorageService(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
		if err != nil {
			logger.Error("Failed to initialize local storage", "error", err)
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		storageService = localStorage
	} else {
		logger.Error("Unsupported storage type", "type", cfg.Storage.Type)
		log.Fatalf("Storage type '%s' not yet implemented", cfg.Storage.Type)
	}

	// Initialize Mailer
	var mailer service.MailerService
	if cfg.Email.SendGridAPIKey != "" {
		mailer = service.NewSendGridMailer(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	} else {
		logger.Warn("No sendgrid API key configured, outbound email disabled")
		mailer = service.NewNoopMailer()
	}

	// Initialize Services
	rates := service.PenaltyRates{
		DamageBaseCents:          cfg.Rental.DamageBaseCents,
		LateReturnBaseCents:      cfg.Rental.LateReturnBaseCents,
		LateReturnPerMinuteCents: cfg.Rental.LateReturnPerMinuteCents,
		ParkingBaseCents:         cfg.Rental.ParkingBaseCents,
		GeofenceBaseCents:        cfg.Rental.GeofenceBaseCents,
		CancellationCents:        cfg.Rental.CancellationCents,
	}
	zone := service.ZonePolicy{
		CenterLongitude: cfg.Zone.CenterLongitude,
		CenterLatitude:  cfg.Zone.CenterLatitude,
		RadiusM:         cfg.Zone.RadiusM,
		Polygon:         cfg.Zone.Polygon,
		Threshold:       cfg.ZoneThreshold(),
	}

	noteSvc := service.NewNotificationService(store.NotificationRepository, store.PrincipalRepository)
	fleetSvc := service.NewFleetService(store.VehicleRepository, store.StationRepository, noteSvc)
	bookingSvc := service.NewBookingService(
		store.BookingRepository,
		store.VehicleRepository,
		store.StationRepository,
		store.PenaltyRepository,
		store.PrincipalRepository,
		noteSvc,
		mailer,
		rates,
	)
	rideSvc := service.NewRideService(
		store.RideRepository,
		store.BookingRepository,
		store.VehicleRepository,
		store.StationRepository,
		noteSvc,
		zone,
		rates,
	)
	penaltySvc := service.NewPenaltyService(store.PenaltyRepository, store.BookingRepository, noteSvc)

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Tokens:        tokenManager,
		Fleet:         fleetSvc,
		Bookings:      bookingSvc,
		Rides:         rideSvc,
		Penalties:     penaltySvc,
		Notifications: noteSvc,
		Storage:       storageService,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("HTTP server error", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
