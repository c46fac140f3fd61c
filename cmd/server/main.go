// Package main is the entry point for the PhotoLog API server.
//
// The main package stays small. Its job is to:
//  1. Read configuration (environment and an optional .env file)
//  2. Create the collaborators that reach outside the process: database,
//     identity provider, object store, mailer
//  3. Hand them to internal/server and start listening
//
// All actual logic lives in the internal packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sakif/photolog/internal/auth"
	"github.com/sakif/photolog/internal/config"
	"github.com/sakif/photolog/internal/notify"
	sqliteRepo "github.com/sakif/photolog/internal/repository/sqlite"
	"github.com/sakif/photolog/internal/server"
	"github.com/sakif/photolog/internal/storage"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Startup work (bucket check, signing keys) must not hang forever when a
	// dependency is down.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// === 3. DATABASE ===
	// os.MkdirAll is `mkdir -p`; the directory holds the SQLite file and WAL.
	dbDir := filepath.Dir(cfg.DB.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	db, err := sqliteRepo.New(cfg.DB.Path, logger)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. IDENTITY PROVIDER ===
	verifier, err := newVerifier(ctx, cfg.Firebase, logger)
	if err != nil {
		logger.Error("failed to set up token verification", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 5. OBJECT STORAGE ===
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Error("failed to create object storage client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	assets, err := storage.NewMinioUploader(ctx, client, cfg.Storage.Bucket, cfg.Storage.BaseURL(), logger)
	if err != nil {
		logger.Error("failed to prepare object storage",
			slog.String("bucket", cfg.Storage.Bucket),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 6. NOTIFICATIONS ===
	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.SMTP.Enabled() {
		mailer, err := notify.NewMailer(notify.MailerConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger)
		if err != nil {
			logger.Error("failed to create mailer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		notifier = mailer
	} else {
		logger.Warn("SMTP_HOST not set, moderation notifications are only logged")
	}

	// === 7. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:        cfg.HTTP.Port,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		FrontendURL: cfg.FrontendURL,
		AdminEmails: cfg.AdminEmails,
	}, server.Deps{
		DB:        db,
		Verifier:  verifier,
		Assets:    assets,
		Notifier:  notifier,
		Passwords: auth.NewPasswordService(),
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newVerifier picks the token verifier. A dev secret wins over Firebase so
// local setups need no Google project.
func newVerifier(ctx context.Context, cfg config.Firebase, logger *slog.Logger) (auth.Verifier, error) {
	if cfg.DevSecret != "" {
		logger.Warn("FIREBASE_DEV_SECRET set, accepting locally signed tokens")
		v, err := auth.NewHMACVerifier(cfg.DevSecret)
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	gw := auth.NewGateway(auth.GatewayConfig{
		ProjectID:       cfg.ProjectID,
		CredentialsPath: cfg.CredentialsPath,
		CheckRevoked:    cfg.CheckRevoked,
	}, logger)
	if err := gw.Init(ctx); err != nil {
		return nil, err
	}
	return gw, nil
}
