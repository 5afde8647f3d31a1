package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/docsign/internal/config"
	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/lock"
	"github.com/information-sharing-networks/docsign/internal/notify"
	"github.com/information-sharing-networks/docsign/internal/server/middleware"
	"github.com/information-sharing-networks/docsign/internal/store"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// Dependencies are the collaborators of a Server. NewServer builds them from the config;
// tests construct them directly with NewServerWithDependencies.
type Dependencies struct {
	Engine   *workflow.Engine
	Verifier middleware.TokenVerifier

	// Pingers are checked by the readiness endpoint
	Pingers []workflow.Pinger

	// Closers are called, in reverse order, by Server.Close
	Closers []func() error
}

// buildDependencies opens the store and creates the engine and its collaborators from cfg.
func buildDependencies(ctx context.Context, cfg *config.ServerEnvironment, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}
	fail := func(err error) (*Dependencies, error) {
		closeAll(deps.Closers, logger)
		return nil, err
	}

	backend, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	deps.Closers = append(deps.Closers, backend.Close)
	deps.Pingers = append(deps.Pingers, backend)

	locker, err := newLocker(cfg, logger, deps)
	if err != nil {
		return fail(err)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return fail(err)
	}

	verifier, err := identity.NewVerifier(ctx, identity.VerifierConfig{
		Secret:   []byte(cfg.TokenSecret),
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
		JWKSURL:  cfg.TokenJWKSURL,
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to create token verifier: %w", err))
	}
	deps.Verifier = verifier

	engine, err := workflow.NewEngine(workflow.Options{
		Store:    backend.Store,
		Locker:   locker,
		Notifier: notifier,
		Logger:   logger,
		Config: workflow.Config{
			ExpiryWindow:       cfg.ExpiryWindow,
			DelayExtension:     cfg.DelayExtension,
			RejectBackdate:     cfg.RejectBackdate,
			MaxConflictRetries: cfg.MaxConflictRetries,
		},
	})
	if err != nil {
		return fail(err)
	}
	deps.Engine = engine

	logger.Info("workflow engine ready",
		slog.String("store", backend.Name),
		slog.String("lock", cfg.LockBackend),
		slog.String("notify", cfg.NotifySink),
	)
	return deps, nil
}

func newLocker(cfg *config.ServerEnvironment, logger *slog.Logger, deps *Dependencies) (lock.Locker, error) {
	switch cfg.LockBackend {
	case "local":
		return lock.NewLocal(), nil
	case "redis":
		client := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		deps.Closers = append(deps.Closers, client.Close)
		r := lock.NewRedis(client, cfg.LockTTL, logger)
		deps.Pingers = append(deps.Pingers, r)
		return r, nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

func newNotifier(cfg *config.ServerEnvironment, logger *slog.Logger) (*notify.Dispatcher, error) {
	var sink notify.Sink
	switch cfg.NotifySink {
	case "log":
		sink = notify.NewLogSink(logger)
	case "webhook":
		sink = notify.NewWebhookSink(cfg.NotifyWebhookURL, &http.Client{Timeout: cfg.NotifyTimeout})
	case "smtp":
		s, err := notify.NewSMTPSink(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			return nil, err
		}
		sink = s
	default:
		return nil, fmt.Errorf("unknown notify sink %q", cfg.NotifySink)
	}
	return notify.NewDispatcher(sink, cfg.NotifyTimeout, logger)
}

func closeAll(closers []func() error, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("failed to release resource", slog.String("error", err.Error()))
		}
	}
}
