package email

import (
	"context"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/security"
)

// Factory creates email.send blocks sharing one mailer and limiter.
type Factory struct {
	mailer  protocol.Mailer
	limiter security.RateLimiter
}

func NewFactory(mailer protocol.Mailer, limiter security.RateLimiter) protocol.BlockFactory {
	return &Factory{mailer: mailer, limiter: limiter}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewBlock(nodeID, config, f.mailer, f.limiter)
}

func (f *Factory) ID() string   { return models.LabelEmailSend }
func (f *Factory) Name() string { return "Send Email" }

func (f *Factory) Description() string {
	return "Sends a notification email through the configured mail provider."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":         map[string]any{"type": "string"},
			"subject":    map[string]any{"type": "string"},
			"body":       map[string]any{"type": "string"},
			"senderName": map[string]any{"type": "string"},
		},
		"required": []any{"to", "body"},
	}
}
