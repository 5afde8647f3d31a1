package notify

import (
	"context"
	"log/slog"
)

// LogSink writes messages to the log instead of delivering them. It is the default in development.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification",
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("document_id", msg.Event.DocumentID),
		slog.String("idempotency_key", msg.IdempotencyKey),
	)
	return nil
}
