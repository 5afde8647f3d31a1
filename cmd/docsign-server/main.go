package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/information-sharing-networks/docsign/docs"
	"github.com/information-sharing-networks/docsign/internal/config"
	"github.com/information-sharing-networks/docsign/internal/logger"
	"github.com/information-sharing-networks/docsign/internal/server"
	"github.com/information-sharing-networks/docsign/internal/version"
)

//	@title			docsign-server
//	@version		1.0
//	@description	docsign-server stores documents encrypted at rest and runs the signature workflow between a document owner and its recipients.
//	@description
//	@description	## Workflow
//	@description	An upload is pending_signature for seven days. Recipients accept, delay (seven more days) or reject (expires immediately). Once the owner has placed signature fields, a recipient who accepted or delayed submits the signed copy. Expired is reported whenever the expiry has passed.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	## Authentication
//	@description	All /v1 endpoints require a bearer token (HS256 JWT carrying `sub` and `email` claims). Tokens are issued by the account service.
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token (HS256 JWT with sub and email claims), e.g. "Bearer eyJ..."

//	@tag.name			Documents
//	@tag.description	Document upload, signing workflow and download

//	@tag.name			Common
//	@tag.description	Server API endpoints (health, readiness, version, openapi)

func main() {
	cmd := &cobra.Command{
		Use:   "docsign-server",
		Short: "Encrypted document signing workflow server",
		Long:  `docsign-server stores uploaded documents encrypted at rest and runs the accept, delay, reject and sign workflow for their recipients`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("STORE_BACKEND", cfg.StoreBackend),
		slog.String("LOCK_BACKEND", cfg.LockBackend),
		slog.String("NOTIFY_SINK", cfg.NotifySink),
		slog.String("S3_BUCKET", cfg.S3Bucket),
		slog.Duration("EXPIRY_WINDOW", cfg.ExpiryWindow),
		slog.Duration("DELAY_EXTENSION", cfg.DelayExtension),
		slog.Duration("REJECT_BACKDATE", cfg.RejectBackdate),
	)

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// configure the server
	server, err := server.NewServer(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer server.Close()

	// start the server
	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
