package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cliniclink/record-bridge/internal/domain/providers"
)

// LogSender writes messages to the log instead of delivering them. Used in
// development when no WhatsApp credentials are configured.
type LogSender struct{}

// NewLogSender creates a log-only sender
func NewLogSender() providers.MessageSender {
	return &LogSender{}
}

// Send logs the message and returns a synthetic message ID
func (s *LogSender) Send(ctx context.Context, recipient, body string) (string, error) {
	log.Info().Str("recipient", recipient).Str("body", body).Msg("notification (log-only sender)")
	return fmt.Sprintf("log-%d", time.Now().UnixNano()), nil
}
