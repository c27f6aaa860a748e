// Package email provides the email.send block. Delivery goes through
// the injected Mailer collaborator and is rate limited per user.
package email

import (
	"context"
	"errors"
	"net/mail"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/template"
)

// Block sends one notification email.
type Block struct {
	id         string
	to         string
	subject    string
	body       string
	senderName string
	mailer     protocol.Mailer
	limiter    security.RateLimiter
}

func NewBlock(id string, config map[string]any, mailer protocol.Mailer, limiter security.RateLimiter) (*Block, error) {
	to, ok := config["to"].(string)
	if !ok || to == "" {
		return nil, errors.New("missing required field 'to'")
	}

	body, ok := config["body"].(string)
	if !ok || body == "" {
		return nil, errors.New("missing required field 'body'")
	}

	subject, _ := config["subject"].(string)
	senderName, _ := config["senderName"].(string)

	return &Block{
		id:         id,
		to:         to,
		subject:    subject,
		body:       body,
		senderName: senderName,
		mailer:     mailer,
		limiter:    limiter,
	}, nil
}

func (b *Block) ID() string {
	return b.id
}

func (b *Block) Label() string {
	return models.LabelEmailSend
}

func (b *Block) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	if err := b.limiter.Allow(ctx, run.UserID, security.ActionEmailSend); err != nil {
		return models.FailErr(err), nil
	}

	to := template.RenderString(b.to, run)

	if _, err := mail.ParseAddress(to); err != nil {
		return models.Fail(runfail.CodeValidation, "invalid recipient address "+to), nil
	}

	subject := template.RenderString(b.subject, run)
	body := template.RenderString(b.body, run)

	messageID, err := b.mailer.SendNotificationEmail(ctx, to, subject, body, b.senderName)
	if err != nil {
		return models.FailErr(runfail.Wrap(runfail.CodeExternalService, err)), nil
	}

	return models.OK(map[string]any{
		"messageId": messageID,
		"to":        to,
	}), nil
}
