// Package cmd provides common initialization for the command-line
// binaries.
package cmd

import (
	"log/slog"
	"net/http"

	"github.com/appforge/flowcore/pkg/blocks/ai"
	"github.com/appforge/flowcore/pkg/blocks/authverify"
	"github.com/appforge/flowcore/pkg/blocks/control"
	"github.com/appforge/flowcore/pkg/blocks/db"
	"github.com/appforge/flowcore/pkg/blocks/email"
	"github.com/appforge/flowcore/pkg/blocks/httpcall"
	"github.com/appforge/flowcore/pkg/blocks/trigger"
	"github.com/appforge/flowcore/pkg/blocks/ui"
	"github.com/appforge/flowcore/pkg/expr"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/registry"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/tables"
)

// Dependencies carries the collaborators block factories close over.
type Dependencies struct {
	Tables     *tables.Service
	Limiter    security.RateLimiter
	HTTPClient *http.Client
	Evaluator  *expr.Evaluator
	Mailer     protocol.Mailer
	Summarizer protocol.Summarizer
	Verifier   protocol.TokenVerifier
	Blacklist  protocol.TokenBlacklist
	Users      protocol.UserStore
}

func registerTriggerBlocks(reg *registry.Registry) {
	reg.Register(trigger.NewOnPageLoadFactory())
	reg.Register(trigger.NewOnClickFactory())
	reg.Register(trigger.NewOnSubmitFactory())
	reg.Register(trigger.NewOnWebhookFactory())
	reg.Register(trigger.NewOnRecordCreateFactory())
	reg.Register(trigger.NewOnScheduleFactory())
}

func registerDataBlocks(reg *registry.Registry, deps Dependencies) {
	reg.Register(db.NewCreateFactory(deps.Tables, deps.Limiter))
	reg.Register(db.NewFindFactory(deps.Tables))
	reg.Register(db.NewUpdateFactory(deps.Tables))
	reg.Register(db.NewUpsertFactory(deps.Tables, deps.Limiter))
}

func registerActionBlocks(reg *registry.Registry, deps Dependencies) {
	reg.Register(httpcall.NewFactory(deps.HTTPClient, deps.Limiter))
	reg.Register(email.NewFactory(deps.Mailer, deps.Limiter))
	reg.Register(ai.NewFactory(deps.Summarizer))
	reg.Register(authverify.NewFactory(deps.Verifier, deps.Blacklist, deps.Users))
}

func registerControlBlocks(reg *registry.Registry, deps Dependencies) {
	reg.Register(control.NewSwitchFactory())
	reg.Register(control.NewMatchFactory())
	reg.Register(control.NewExprFactory(deps.Evaluator, deps.Limiter))
}

func registerUIBlocks(reg *registry.Registry) {
	reg.Register(ui.NewToastFactory())
	reg.Register(ui.NewOpenModalFactory())
	reg.Register(ui.NewRedirectFactory())
	reg.Register(ui.NewGoBackFactory())
}

// NewRegistry wires every built-in block family into one registry.
func NewRegistry(logger *slog.Logger, deps Dependencies) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerTriggerBlocks(reg)
	registerDataBlocks(reg, deps)
	registerActionBlocks(reg, deps)
	registerControlBlocks(reg, deps)
	registerUIBlocks(reg)

	return reg
}
