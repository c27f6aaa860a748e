package httpcall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
)

func allowAll(string) error { return nil }

func newTestBlock(t *testing.T, config map[string]any) *Block {
	t.Helper()

	limiter := security.NewMemoryRateLimiter(security.DefaultPolicies())

	block, err := NewBlock("n1", config, nil, limiter)
	require.NoError(t, err)

	return block
}

func TestHTTPBlock_SuccessCapturesResponse(t *testing.T) {
	guardURL = allowAll
	defer func() { guardURL = security.GuardURL }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("X-Served-By", "test")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	block := newTestBlock(t, map[string]any{
		"url":     server.URL,
		"method":  "post",
		"headers": map[string]any{"Content-Type": "application/json"},
		"body":    `{"email":"{{form.email}}"}`,
		"auth":    map[string]any{"type": "bearer", "token": "tok-1"},
	})

	run := models.NewExecutionContext("run-1", "app-1", "user-1")
	run.Form["email"] = "a@b.com"

	result, err := block.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.Output["status"])
	assert.Equal(t, `{"ok":true}`, result.Output["body"])
	assert.Equal(t, http.StatusOK, run.HTTP["last_status"])

	headers, ok := result.Output["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test", headers["X-Served-By"])
}

func TestHTTPBlock_NonTwoHundredFailsWithoutError(t *testing.T) {
	guardURL = allowAll
	defer func() { guardURL = security.GuardURL }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	block := newTestBlock(t, map[string]any{"url": server.URL})

	run := models.NewExecutionContext("run-1", "app-1", "user-1")

	result, err := block.Execute(context.Background(), run)
	require.NoError(t, err, "status failures never cross the handler boundary as errors")
	assert.False(t, result.Success)
	assert.Equal(t, runfail.CodeExternalService, result.FailCode)
	assert.Equal(t, http.StatusBadGateway, result.Output["status"])
}

func TestHTTPBlock_GuardBlocksPrivateTargets(t *testing.T) {
	block := newTestBlock(t, map[string]any{"url": "http://127.0.0.1/admin"})

	run := models.NewExecutionContext("run-1", "app-1", "user-1")

	result, err := block.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, runfail.CodeValidation, result.FailCode)
}

func TestHTTPBlock_Timeout(t *testing.T) {
	guardURL = allowAll
	defer func() { guardURL = security.GuardURL }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	block := newTestBlock(t, map[string]any{
		"url":            server.URL,
		"timeoutSeconds": 0.05,
	})

	run := models.NewExecutionContext("run-1", "app-1", "user-1")

	result, err := block.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, runfail.CodeTimeout, result.FailCode)
}

func TestHTTPBlock_RateLimited(t *testing.T) {
	guardURL = allowAll
	defer func() { guardURL = security.GuardURL }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	limiter := security.NewMemoryRateLimiter(map[security.ActionKind]security.Policy{
		security.ActionHTTPCall: {Limit: 1, Period: time.Minute},
	})

	block, err := NewBlock("n1", map[string]any{"url": server.URL}, nil, limiter)
	require.NoError(t, err)

	run := models.NewExecutionContext("run-1", "app-1", "user-1")

	result, err := block.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = block.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, runfail.CodeRateLimited, result.FailCode)
}

func TestNewBlock_RejectsUnknownMethod(t *testing.T) {
	limiter := security.NewMemoryRateLimiter(security.DefaultPolicies())

	_, err := NewBlock("n1", map[string]any{"url": "https://example.com", "method": "TRACE"}, nil, limiter)
	require.Error(t, err)
	assert.Equal(t, runfail.CodeInvalidConfig, runfail.CodeOf(err))
}
