// Package web exposes the run API: a synchronous run endpoint, the
// webhook intake and health checks.
package web

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/appforge/flowcore/pkg/dispatch"
	"github.com/appforge/flowcore/pkg/engine"
	"github.com/appforge/flowcore/pkg/eventbus"
	"github.com/appforge/flowcore/pkg/events"
	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
)

// HookSignatureHeader carries the optional HMAC-SHA256 hex digest of a
// webhook body.
const HookSignatureHeader = "X-Hook-Signature"

// ErrHookNotFound is returned by HookSource when no hook matches.
var ErrHookNotFound = dispatch.ErrHookUnknown

// HookSource resolves a public hook id to its stored workflow and the
// optional shared secret guarding it.
type HookSource interface {
	GraphForHook(ctx context.Context, hookID string) (dispatch.StoredGraph, string, error)
}

type Handlers struct {
	logger   *slog.Logger
	runner   *engine.Runner
	verifier protocol.TokenVerifier
	hooks    HookSource
	bus      eventbus.EventPublisher
	validate *validator.Validate
}

func NewHandlers(
	logger *slog.Logger,
	runner *engine.Runner,
	verifier protocol.TokenVerifier,
	hooks HookSource,
	bus eventbus.EventPublisher,
) *Handlers {
	return &Handlers{
		logger:   logger.With("module", "web"),
		runner:   runner,
		verifier: verifier,
		hooks:    hooks,
		bus:      bus,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RunWorkflow executes a graph inline and returns the full result. The
// caller waits for the run, so this path serves interactive triggers
// (page load, click, submit).
func (h *Handlers) RunWorkflow(c fiber.Ctx) error {
	appID := c.Params("appID")
	if appID == "" {
		return badRequest(c, "missing app id")
	}

	claims, err := h.authenticate(c)
	if err != nil {
		return handleRunError(c, err)
	}

	var req RunRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	execution := req.seed(appID, claims.UserID)

	result, err := h.runner.Run(c.Context(), req.Graph, execution, req.Trigger)
	if err != nil {
		return handleRunError(c, err)
	}

	return c.JSON(result)
}

// HandleHook accepts a webhook call, verifies its signature when the
// hook carries a secret and enqueues the run. The caller gets a 202
// immediately, execution happens on the worker pool.
func (h *Handlers) HandleHook(c fiber.Ctx) error {
	hookID := c.Params("hookID")
	if hookID == "" {
		return badRequest(c, "missing hook id")
	}

	stored, secret, err := h.hooks.GraphForHook(c.Context(), hookID)
	if err != nil {
		if errors.Is(err, ErrHookNotFound) {
			return notFound(c, "hook not found")
		}

		return internalError(c, err)
	}

	body := c.Body()

	if secret != "" && !validHookSignature(secret, body, c.Get(HookSignatureHeader)) {
		return unauthorized(c, "invalid hook signature")
	}

	var payload map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return badRequest(c, "hook body must be JSON")
		}
	}

	execution := models.NewExecutionContext(uuid.New().String(), stored.AppID, stored.OwnerID)
	execution.Set("trigger", "payload", payload)
	execution.Set("trigger", "hook_id", hookID)

	request := events.NewRunRequested(stored.AppID, stored.OwnerID, models.LabelOnWebhook, stored.Graph, execution)

	if err := h.bus.Publish(c.Context(), stored.AppID, request); err != nil {
		return internalError(c, err)
	}

	h.logger.Info("hook run enqueued", "hook_id", hookID, "app_id", stored.AppID)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": execution.RunID,
		"status": "queued",
	})
}

func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// authenticate extracts and verifies the bearer token of a request.
func (h *Handlers) authenticate(c fiber.Ctx) (*protocol.Claims, error) {
	header := c.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, errMissingToken
	}

	return h.verifier.Verify(c.Context(), token)
}

func validHookSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}
