package httpcall

import (
	"context"
	"net/http"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/security"
)

// Factory creates http.request blocks sharing one client and limiter.
type Factory struct {
	client  *http.Client
	limiter security.RateLimiter
}

func NewFactory(client *http.Client, limiter security.RateLimiter) protocol.BlockFactory {
	return &Factory{client: client, limiter: limiter}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewBlock(nodeID, config, f.client, f.limiter)
}

func (f *Factory) ID() string   { return models.LabelHTTPRequest }
func (f *Factory) Name() string { return "HTTP Request" }

func (f *Factory) Description() string {
	return "Calls an external HTTP endpoint. Private networks and sensitive ports are blocked."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string"},
			"method": map[string]any{
				"type": "string",
				"enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
			},
			"headers": map[string]any{"type": "object"},
			"body":    map[string]any{"type": "string"},
			"auth": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": []any{"bearer", "basic", "header"},
					},
					"token":    map[string]any{"type": "string"},
					"username": map[string]any{"type": "string"},
					"password": map[string]any{"type": "string"},
					"name":     map[string]any{"type": "string"},
					"value":    map[string]any{"type": "string"},
				},
			},
			"timeoutSeconds": map[string]any{"type": "number"},
		},
		"required": []any{"url"},
	}
}
