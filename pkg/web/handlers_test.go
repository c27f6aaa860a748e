package web

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/blocks/trigger"
	"github.com/appforge/flowcore/pkg/dispatch"
	"github.com/appforge/flowcore/pkg/engine"
	"github.com/appforge/flowcore/pkg/eventbus"
	"github.com/appforge/flowcore/pkg/events"
	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/registry"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
)

type staticVerifier struct{}

func (v *staticVerifier) Verify(_ context.Context, token string) (*protocol.Claims, error) {
	if token == "good-token" {
		return &protocol.Claims{UserID: "user-1", Email: "ada@example.com"}, nil
	}

	return nil, runfail.New(runfail.CodeInvalidToken, "bad token")
}

type staticHooks struct {
	graphs  map[string]dispatch.StoredGraph
	secrets map[string]string
}

func (s *staticHooks) GraphForHook(_ context.Context, hookID string) (dispatch.StoredGraph, string, error) {
	stored, ok := s.graphs[hookID]
	if !ok {
		return dispatch.StoredGraph{}, "", ErrHookNotFound
	}

	return stored, s.secrets[hookID], nil
}

type capturingBus struct {
	published []eventbus.Event
}

func (b *capturingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.published = append(b.published, event)

	return nil
}

func triggerGraph(label string) *models.Graph {
	return &models.Graph{
		Nodes: []*models.Node{{
			ID:   "t",
			Type: models.NodeTypeWorkflow,
			Data: models.NodeData{Category: models.CategoryTriggers, Label: label},
		}},
	}
}

type fixture struct {
	app *fiber.App
	bus *capturingBus
}

func newFixture(t *testing.T, hooks *staticHooks) *fixture {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.Register(trigger.NewOnClickFactory())
	reg.Register(trigger.NewOnWebhookFactory())

	checker := &security.StaticAccessChecker{Allowed: map[string]string{"app-1": "user-1"}}
	runner := engine.NewRunner(slog.Default(), reg, checker)

	if hooks == nil {
		hooks = &staticHooks{graphs: map[string]dispatch.StoredGraph{}}
	}

	bus := &capturingBus{}
	handlers := NewHandlers(slog.Default(), runner, &staticVerifier{}, hooks, bus)

	return &fixture{app: NewApp(handlers), bus: bus}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRunWorkflow_RequiresToken(t *testing.T) {
	f := newFixture(t, nil)

	body, _ := json.Marshal(RunRequest{Trigger: "onClick", Graph: triggerGraph("onClick")})

	req := httptest.NewRequest("POST", "/v1/apps/app-1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRunWorkflow_Success(t *testing.T) {
	f := newFixture(t, nil)

	body, _ := json.Marshal(RunRequest{
		Trigger: "onClick",
		Graph:   triggerGraph("onClick"),
		Context: map[string]map[string]any{"form": {"email": "a@b.com"}},
	})

	req := httptest.NewRequest("POST", "/v1/apps/app-1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result models.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Steps)
	assert.Equal(t, "a@b.com", result.Context.Form["email"])
}

func TestRunWorkflow_AccessDenied(t *testing.T) {
	f := newFixture(t, nil)

	body, _ := json.Marshal(RunRequest{Trigger: "onClick", Graph: triggerGraph("onClick")})

	req := httptest.NewRequest("POST", "/v1/apps/other-app/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRunWorkflow_MissingTrigger(t *testing.T) {
	f := newFixture(t, nil)

	body, _ := json.Marshal(RunRequest{Graph: triggerGraph("onClick")})

	req := httptest.NewRequest("POST", "/v1/apps/app-1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleHook_UnknownHook(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest("POST", "/v1/hooks/missing", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleHook_EnqueuesRun(t *testing.T) {
	hooks := &staticHooks{
		graphs: map[string]dispatch.StoredGraph{
			"hook-1": {ID: "wf-1", AppID: "app-1", OwnerID: "user-1", Graph: triggerGraph("onWebhook")},
		},
	}

	f := newFixture(t, hooks)

	req := httptest.NewRequest("POST", "/v1/hooks/hook-1", bytes.NewReader([]byte(`{"order":7}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	require.Len(t, f.bus.published, 1)

	request, ok := f.bus.published[0].(*events.RunRequested)
	require.True(t, ok)
	assert.Equal(t, models.LabelOnWebhook, request.Trigger)

	payload, ok := request.Context.Trigger["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(7), payload["order"])
}

func TestHandleHook_SignatureRequired(t *testing.T) {
	hooks := &staticHooks{
		graphs: map[string]dispatch.StoredGraph{
			"hook-1": {ID: "wf-1", AppID: "app-1", OwnerID: "user-1", Graph: triggerGraph("onWebhook")},
		},
		secrets: map[string]string{"hook-1": "s3cret"},
	}

	f := newFixture(t, hooks)

	body := []byte(`{"order":7}`)

	req := httptest.NewRequest("POST", "/v1/hooks/hook-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(body)

	req = httptest.NewRequest("POST", "/v1/hooks/hook-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HookSignatureHeader, hex.EncodeToString(mac.Sum(nil)))

	resp, err = f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}
