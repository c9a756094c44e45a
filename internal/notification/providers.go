package notification

import (
	"context"

	"go.uber.org/zap"
)

// Provider delivers notifications over one channel.
type Provider interface {
	Send(ctx context.Context, n *Notification) error
}

// LogProvider writes notifications to the structured log instead of an
// external gateway. Used in development and as the in-app channel sink
// until a real push/SMS gateway is configured.
type LogProvider struct {
	channel Channel
	logger  *zap.Logger
}

// NewLogProvider creates a log-backed provider for the given channel.
func NewLogProvider(channel Channel, logger *zap.Logger) *LogProvider {
	return &LogProvider{channel: channel, logger: logger}
}

func (p *LogProvider) Send(ctx context.Context, n *Notification) error {
	p.logger.Info("Delivering notification",
		zap.String("channel", string(p.channel)),
		zap.String("priority", string(n.Priority)),
		zap.String("recipient", n.Recipient),
		zap.String("title", n.Title),
		zap.String("alert_id", n.AlertID.String()),
	)
	return nil
}
