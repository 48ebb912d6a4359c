package service

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier publishes notification requests to the external transport. All
// calls are best-effort: callers commit their store writes first, log any
// publish failure and never retry.
type Notifier interface {
	Notify(ctx context.Context, recipient int64, text string) error
	Broadcast(ctx context.Context, text string) error
	DeliverFile(ctx context.Context, recipient int64, fileRef, caption string) error
}

type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier returns a Notifier that only logs requests. It stands in
// when no message bus is configured.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("component", "log_notifier").Logger()}
}

func (n *logNotifier) Notify(_ context.Context, recipient int64, text string) error {
	n.logger.Info().Int64("recipient", recipient).Str("text", text).Msg("notify request")
	return nil
}

func (n *logNotifier) Broadcast(_ context.Context, text string) error {
	n.logger.Info().Str("text", text).Msg("broadcast request")
	return nil
}

func (n *logNotifier) DeliverFile(_ context.Context, recipient int64, fileRef, caption string) error {
	n.logger.Info().Int64("recipient", recipient).Str("file_ref", fileRef).Str("caption", caption).Msg("file delivery request")
	return nil
}
