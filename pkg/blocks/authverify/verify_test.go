package authverify

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/runfail"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	return token
}

type fakeBlacklist struct {
	revoked map[string]bool
}

func (b *fakeBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	return b.revoked[token], nil
}

type fakeUserStore struct {
	verified map[string]bool
}

func (s *fakeUserStore) UserVerified(_ context.Context, userID string) (bool, error) {
	return s.verified[userID], nil
}

func newVerifyBlock(t *testing.T, config map[string]any, blacklist protocol.TokenBlacklist, users protocol.UserStore) *Block {
	t.Helper()

	block, err := NewBlock("n1", config, NewJWTVerifier(testSecret), blacklist, users)
	require.NoError(t, err)

	return block
}

func runWithToken(token string) *models.ExecutionContext {
	run := models.NewExecutionContext("run-1", "app-1", "user-1")
	run.Auth["token"] = token

	return run
}

func TestVerify_ValidTokenEnrichesContext(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   "u-1",
		"email": "ada@example.com",
		"roles": []any{"editor"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	block := newVerifyBlock(t, nil,
		&fakeBlacklist{revoked: map[string]bool{}},
		&fakeUserStore{verified: map[string]bool{"u-1": true}})

	run := runWithToken(token)

	result, err := block.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, true, result.Output["isAuthenticated"])
	assert.Equal(t, true, result.Output["isAuthorized"])

	user, ok := run.Auth["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u-1", user["id"])
	assert.Equal(t, "ada@example.com", user["email"])
}

func TestVerify_ExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	block := newVerifyBlock(t, nil, nil, nil)

	result, err := block.Execute(context.Background(), runWithToken(token))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, runfail.CodeTokenExpired, result.FailCode)
	assert.Equal(t, false, result.Output["isAuthenticated"])
}

func TestVerify_BadSignature(t *testing.T) {
	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	block := newVerifyBlock(t, nil, nil, nil)

	result, err := block.Execute(context.Background(), runWithToken(other))
	require.NoError(t, err)
	assert.Equal(t, runfail.CodeInvalidToken, result.FailCode)
}

func TestVerify_RevokedToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	block := newVerifyBlock(t, nil,
		&fakeBlacklist{revoked: map[string]bool{token: true}},
		nil)

	result, err := block.Execute(context.Background(), runWithToken(token))
	require.NoError(t, err)
	assert.Equal(t, runfail.CodeTokenRevoked, result.FailCode)
}

func TestVerify_AuthenticatedButNotAuthorized(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   "u-1",
		"roles": []any{"viewer"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	block := newVerifyBlock(t, map[string]any{
		"requiredRoles": []any{"admin"},
	}, nil, nil)

	result, err := block.Execute(context.Background(), runWithToken(token))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, runfail.CodeAccessDenied, result.FailCode)
	assert.Equal(t, true, result.Output["isAuthenticated"])
	assert.Equal(t, false, result.Output["isAuthorized"])
}

func TestVerify_UnverifiedUser(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	block := newVerifyBlock(t, nil, nil,
		&fakeUserStore{verified: map[string]bool{}})

	result, err := block.Execute(context.Background(), runWithToken(token))
	require.NoError(t, err)
	assert.Equal(t, runfail.CodeInvalidToken, result.FailCode)
}

func TestVerify_MissingToken(t *testing.T) {
	block := newVerifyBlock(t, nil, nil, nil)

	run := models.NewExecutionContext("run-1", "app-1", "user-1")

	result, err := block.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, runfail.CodeInvalidToken, result.FailCode)
}
