package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cryptoticket/rn-version-admin/internal/config"
	"github.com/cryptoticket/rn-version-admin/internal/database"
	"github.com/cryptoticket/rn-version-admin/internal/models"
	"github.com/cryptoticket/rn-version-admin/internal/server"
	"github.com/cryptoticket/rn-version-admin/internal/server/handlers"
	"github.com/cryptoticket/rn-version-admin/internal/service"
	"github.com/cryptoticket/rn-version-admin/internal/services"
	"github.com/cryptoticket/rn-version-admin/internal/storage"
	"github.com/cryptoticket/rn-version-admin/internal/store"
)

const sessionTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// DB
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail); err != nil {
		logger.Fatal("admin seed failed", zap.Error(err))
	}

	// object storage client
	s3Client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		logger.Fatal("s3 client init failed", zap.Error(err))
	}

	backends := map[string]storage.Backend{
		models.StorageFile:  storage.NewLocal(cfg.StorageRoot, cfg.PublicBaseURL),
		models.StorageAwsS3: storage.NewS3(s3Client, cfg.S3Bucket),
	}

	bundleStore := store.NewBundleStore(db)
	userStore := store.NewUserStore(db)
	bundleSvc := service.NewBundles(bundleStore, backends, logger)
	issuer := services.NewTokenIssuer(cfg.JWTSecret, sessionTTL)

	googleOAuth := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email"},
		Endpoint:     google.Endpoint,
	}

	app := fiber.New(fiber.Config{
		ServerHeader: "rn-version-admin",
		AppName:      "RN Version Admin",
		BodyLimit:    200 * 1024 * 1024, // allow up to 200MB bundle uploads
		ErrorHandler: handlers.ErrorHandler,
	})

	server.RegisterRoutes(app, server.Deps{
		Bundles:     handlers.NewBundles(bundleSvc, cfg.ItemsPerPage, logger),
		Users:       handlers.NewUsers(userStore, cfg.ItemsPerPage, logger),
		Auth:        handlers.NewAuth(issuer, userStore, googleOAuth, logger),
		Issuer:      issuer,
		UserStore:   userStore,
		StorageRoot: cfg.StorageRoot,
	})

	logger.Info("server listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
