package authverify

import (
	"context"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
)

// Factory creates auth.verify blocks sharing the verifier, blacklist
// and user store collaborators.
type Factory struct {
	verifier  protocol.TokenVerifier
	blacklist protocol.TokenBlacklist
	users     protocol.UserStore
}

func NewFactory(verifier protocol.TokenVerifier, blacklist protocol.TokenBlacklist, users protocol.UserStore) protocol.BlockFactory {
	return &Factory{verifier: verifier, blacklist: blacklist, users: users}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewBlock(nodeID, config, f.verifier, f.blacklist, f.users)
}

func (f *Factory) ID() string   { return models.LabelAuthVerify }
func (f *Factory) Name() string { return "Verify Session" }

func (f *Factory) Description() string {
	return "Verifies the session token and optionally checks role membership."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"token": map[string]any{
				"type":        "string",
				"description": "Token source, defaults to {{auth.token}}.",
			},
			"requiredRoles": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}
