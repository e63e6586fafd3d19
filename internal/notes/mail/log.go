package mail

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/notes/pkg/slogx"
)

// LogMailer writes codes to the log instead of sending them. It is used
// when no SMTP host is configured, so local development works without a
// mail server.
type LogMailer struct {
	Logger *slog.Logger // nil uses the request logger
}

func (m LogMailer) SendOTP(ctx context.Context, to, code string) error {
	logger := m.Logger
	if logger == nil {
		logger = slogx.FromContext(ctx)
	}
	logger.DebugContext(ctx, "otp email not sent, no smtp host configured", "to", to, "code", code)
	return nil
}
