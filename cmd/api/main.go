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

	"github.com/clearflow/clearflow-api/internal/config"
	"github.com/clearflow/clearflow-api/internal/infrastructure/ai"
	"github.com/clearflow/clearflow-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/clearflow/clearflow-api/internal/infrastructure/jwt"
	"github.com/clearflow/clearflow-api/internal/infrastructure/redisdb"
	s3infra "github.com/clearflow/clearflow-api/internal/infrastructure/s3"
	"github.com/clearflow/clearflow-api/internal/infrastructure/smtp"
	"github.com/clearflow/clearflow-api/internal/infrastructure/sns"
	transporthttp "github.com/clearflow/clearflow-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// The token secret signs every session; starting without it would make
	// every request fail the gate anyway.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	redisClient := redisdb.NewClient(cfg)
	blacklist := redisdb.NewBlacklist(redisClient)

	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	mailer := smtp.NewMailer(cfg)

	// SNS alert publisher (optional — alerts degrade to dashboard-only).
	var publisher sns.AlertPublisher
	if p, err := sns.NewPublisher(cfg); err == nil {
		publisher = p
	} else {
		log.Printf("WARN: SNS publisher not available: %v", err)
		publisher = sns.Noop()
	}

	deps := &transporthttp.Deps{
		UserRepo:      dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users, cfg.DynamoTables.UserUniques),
		DeviceRepo:    dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.Devices),
		ReadingRepo:   dynamo.NewReadingRepo(dynamoClient, cfg.DynamoTables.Readings),
		StatusRepo:    dynamo.NewStatusRepo(dynamoClient, cfg.DynamoTables.Statuses),
		AnalyticsRepo: dynamo.NewAnalyticsRepo(dynamoClient, cfg.DynamoTables.Analytics),
		AlertRepo:     dynamo.NewAlertRepo(dynamoClient, cfg.DynamoTables.Alerts),
		Blacklist:     blacklist,
		S3Store:       s3Store,
		Mailer:        mailer,
		Publisher:     publisher,
		AI:            ai.NewClient(cfg),
		JWTProvider:   jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
