// Package authverify provides the auth.verify block: session token
// verification, revocation and role checks. Verification failures are
// reported through the result, the block itself never errors.
package authverify

import (
	"context"
	"slices"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/template"
)

// Block verifies the session carried by the run and enriches the auth
// namespace with the normalized user. Authentication (valid token,
// live user) and authorization (role membership) are reported as
// separate booleans.
type Block struct {
	id            string
	token         string
	requiredRoles []string
	verifier      protocol.TokenVerifier
	blacklist     protocol.TokenBlacklist
	users         protocol.UserStore
}

func NewBlock(id string, config map[string]any, verifier protocol.TokenVerifier, blacklist protocol.TokenBlacklist, users protocol.UserStore) (*Block, error) {
	token, _ := config["token"].(string)
	if token == "" {
		token = "{{auth.token}}"
	}

	var requiredRoles []string

	if raw, ok := config["requiredRoles"].([]any); ok {
		for _, role := range raw {
			if name, ok := role.(string); ok && name != "" {
				requiredRoles = append(requiredRoles, name)
			}
		}
	}

	return &Block{
		id:            id,
		token:         token,
		requiredRoles: requiredRoles,
		verifier:      verifier,
		blacklist:     blacklist,
		users:         users,
	}, nil
}

func (b *Block) ID() string {
	return b.id
}

func (b *Block) Label() string {
	return models.LabelAuthVerify
}

func (b *Block) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	token := template.RenderString(b.token, run)
	if token == "" {
		return b.deny(run, runfail.CodeInvalidToken, "no session token present"), nil
	}

	claims, err := b.verifier.Verify(ctx, token)
	if err != nil {
		return b.deny(run, runfail.CodeOf(err), err.Error()), nil
	}

	if b.blacklist != nil {
		revoked, err := b.blacklist.IsRevoked(ctx, token)
		if err != nil {
			return b.deny(run, runfail.CodeExternalService, err.Error()), nil
		}

		if revoked {
			return b.deny(run, runfail.CodeTokenRevoked, "token has been revoked"), nil
		}
	}

	if b.users != nil {
		verified, err := b.users.UserVerified(ctx, claims.UserID)
		if err != nil {
			return b.deny(run, runfail.CodeExternalService, err.Error()), nil
		}

		if !verified {
			return b.deny(run, runfail.CodeInvalidToken, "user no longer exists or is unverified"), nil
		}
	}

	authorized := b.authorized(claims.Roles)

	session := map[string]any{
		"id":    claims.UserID,
		"email": claims.Email,
		"roles": claims.Roles,
	}

	run.Set("auth", "user", session)
	run.Set("auth", "isAuthenticated", true)
	run.Set("auth", "isAuthorized", authorized)

	output := map[string]any{
		"isAuthenticated": true,
		"isAuthorized":    authorized,
		"user":            session,
	}

	if !authorized {
		result := models.Fail(runfail.CodeAccessDenied, "user lacks a required role")
		result.Output = output

		return result, nil
	}

	return models.OK(output), nil
}

func (b *Block) authorized(roles []string) bool {
	if len(b.requiredRoles) == 0 {
		return true
	}

	for _, required := range b.requiredRoles {
		if slices.Contains(roles, required) {
			return true
		}
	}

	return false
}

func (b *Block) deny(run *models.ExecutionContext, code runfail.Code, reason string) *models.BlockResult {
	run.Set("auth", "isAuthenticated", false)
	run.Set("auth", "isAuthorized", false)

	result := models.Fail(code, reason)
	result.Output = map[string]any{
		"isAuthenticated": false,
		"isAuthorized":    false,
		"failureReason":   string(code),
	}

	return result
}
