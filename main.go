package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/faceauth/pwd-manager/api/config"
	"github.com/faceauth/pwd-manager/api/db"
	"github.com/faceauth/pwd-manager/api/handlers"
	"github.com/faceauth/pwd-manager/auth"
	"github.com/faceauth/pwd-manager/core/crypto"
	"github.com/faceauth/pwd-manager/core/engine"
	"github.com/faceauth/pwd-manager/core/envelope"
	"github.com/faceauth/pwd-manager/core/face"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env file, assuming environment variables are set")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	if cfg.UsesInsecureDefaults() {
		log.Warn("running with insecure default secrets, never do this in production")
	}

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(pool); err != nil {
		return err
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	cipher := crypto.New(cfg.EncryptionSalt, cfg.AppSecretKey)
	opener := envelope.NewOpener(cipher, log)

	extractor := face.NewExtractor(cfg.ModelDir, log)
	defer extractor.Close()

	// Load the models before accepting requests so that missing model files
	// kill the process here instead of failing the first login.
	if err := extractor.Warmup(); err != nil {
		return fmt.Errorf("face models unavailable: %w", err)
	}

	users := db.NewUserStore(pool)
	creds := db.NewCredentialStore(pool)

	faceEngine, err := engine.New(users, extractor, cipher, opener, issuer, log)
	if err != nil {
		return err
	}

	api := handlers.New(log, faceEngine, users, creds, cipher, issuer)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      c.Handler(api.Routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("password manager API listening", "port", cfg.Port)
	return server.ListenAndServe()
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
