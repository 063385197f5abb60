package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every notification to the log. It is always installed so
// staff can trace what would have been sent.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify.log").Logger()}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.logger.Info().
		Str("kind", string(n.Kind)).
		Str("audience", string(n.Audience)).
		Int64("booking_id", n.BookingID).
		Str("reference", n.Reference).
		Str("subject", n.Subject).
		Msg("notification")
	return nil
}
