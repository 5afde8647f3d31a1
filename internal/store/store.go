// Package store opens the document store selected by STORE_BACKEND.
//
// The backends live in the sub packages (memory, postgres, sqlite, dynamodb). When S3_BUCKET is
// set the chosen backend is wrapped by s3offload so ciphertext is kept in object storage.
//
// Postgres schema migrations are applied with "docsign migrate", not at startup. The sqlite
// backend migrates itself when it opens the database file.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/docsign/internal/config"
	"github.com/information-sharing-networks/docsign/internal/store/awsconfig"
	"github.com/information-sharing-networks/docsign/internal/store/dynamodb"
	"github.com/information-sharing-networks/docsign/internal/store/memory"
	"github.com/information-sharing-networks/docsign/internal/store/postgres"
	"github.com/information-sharing-networks/docsign/internal/store/s3offload"
	"github.com/information-sharing-networks/docsign/internal/store/sqlite"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// Backend is an opened document store.
type Backend struct {
	// Store is the store passed to the workflow engine
	Store workflow.Store

	// Name is the STORE_BACKEND value, with "+s3" appended when ciphertext is offloaded
	Name string

	closers []func() error
}

// Ping checks the store when it supports health checks.
func (b *Backend) Ping(ctx context.Context) error {
	if p, ok := b.Store.(workflow.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases connections held by the store.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens the store configured by cfg.
func Open(ctx context.Context, cfg *config.ServerEnvironment, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.StoreBackend}

	switch cfg.StoreBackend {
	case "memory":
		b.Store = memory.New()

	case "postgres":
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
		defer cancel()

		pool, err := postgres.NewPool(pingCtx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:        cfg.DBMaxConnections,
			MinConns:        cfg.DBMinConnections,
			MaxConnLifetime: cfg.DBMaxConnLifetime,
			MaxConnIdleTime: cfg.DBMaxConnIdleTime,
			ConnectTimeout:  cfg.DBConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error {
			pool.Close()
			return nil
		})
		b.Store = postgres.New(pool)
		logger.Info("connected to PostgreSQL")

	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s.Close)
		b.Store = s
		logger.Info("opened SQLite database", slog.String("path", cfg.SQLitePath))

	case "dynamodb":
		awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: cfg.AWSRegion, EndpointURL: cfg.AWSEndpointURL})
		if err != nil {
			return nil, err
		}
		b.Store = dynamodb.New(dynamodb.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.DynamoDBTable)
		logger.Info("using DynamoDB table", slog.String("table", cfg.DynamoDBTable))

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: cfg.AWSRegion, EndpointURL: cfg.AWSEndpointURL})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		client := s3offload.NewClient(awsCfg, cfg.AWSEndpointURL)
		b.Store = s3offload.New(b.Store, client, cfg.S3Bucket, cfg.S3Prefix, logger)
		b.Name += "+s3"
		logger.Info("offloading ciphertext to S3",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("prefix", cfg.S3Prefix),
		)
	}

	return b, nil
}
