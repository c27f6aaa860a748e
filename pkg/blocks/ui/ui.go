// Package ui provides the pure directive blocks: toast, modal,
// redirect and back navigation. None of them touch the database or the
// network, they only substitute context values into their payloads.
package ui

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/template"
)

// ToastBlock emits a toast directive.
type ToastBlock struct {
	id      string
	message string
	variant string
}

func NewToastBlock(id string, config map[string]any) (*ToastBlock, error) {
	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, errors.New("missing required field 'message'")
	}

	variant, _ := config["variant"].(string)
	if variant == "" {
		variant = "info"
	}

	return &ToastBlock{id: id, message: message, variant: variant}, nil
}

func (b *ToastBlock) ID() string {
	return b.id
}

func (b *ToastBlock) Label() string {
	return models.LabelNotifyToast
}

func (b *ToastBlock) Execute(_ context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	result := models.OK(nil)
	result.Directives = []models.Directive{{
		Kind: models.DirectiveToast,
		Payload: map[string]any{
			"message": template.RenderString(b.message, run),
			"variant": b.variant,
		},
	}}

	return result, nil
}

// OpenModalBlock emits an openModal directive.
type OpenModalBlock struct {
	id      string
	modalID string
	title   string
	content string
}

func NewOpenModalBlock(id string, config map[string]any) (*OpenModalBlock, error) {
	modalID, _ := config["modalId"].(string)
	content, _ := config["content"].(string)

	if modalID == "" && content == "" {
		return nil, errors.New("openModal requires 'modalId' or 'content'")
	}

	title, _ := config["title"].(string)

	return &OpenModalBlock{id: id, modalID: modalID, title: title, content: content}, nil
}

func (b *OpenModalBlock) ID() string {
	return b.id
}

func (b *OpenModalBlock) Label() string {
	return models.LabelOpenModal
}

func (b *OpenModalBlock) Execute(_ context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	payload := map[string]any{}

	if b.modalID != "" {
		payload["modalId"] = b.modalID
	}

	if b.title != "" {
		payload["title"] = template.RenderString(b.title, run)
	}

	if b.content != "" {
		payload["content"] = template.RenderString(b.content, run)
	}

	result := models.OK(nil)
	result.Directives = []models.Directive{{Kind: models.DirectiveOpenModal, Payload: payload}}

	return result, nil
}

// RedirectBlock emits a redirect directive.
type RedirectBlock struct {
	id  string
	url string
}

func NewRedirectBlock(id string, config map[string]any) (*RedirectBlock, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	return &RedirectBlock{id: id, url: url}, nil
}

func (b *RedirectBlock) ID() string {
	return b.id
}

func (b *RedirectBlock) Label() string {
	return models.LabelRedirect
}

func (b *RedirectBlock) Execute(_ context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	result := models.OK(nil)
	result.Directives = []models.Directive{{
		Kind:    models.DirectiveRedirect,
		Payload: map[string]any{"url": template.RenderString(b.url, run)},
	}}

	return result, nil
}

// GoBackBlock emits a goBack directive. It carries no payload.
type GoBackBlock struct {
	id string
}

func NewGoBackBlock(id string) *GoBackBlock {
	return &GoBackBlock{id: id}
}

func (b *GoBackBlock) ID() string {
	return b.id
}

func (b *GoBackBlock) Label() string {
	return models.LabelGoBack
}

func (b *GoBackBlock) Execute(_ context.Context, _ *models.ExecutionContext) (*models.BlockResult, error) {
	result := models.OK(nil)
	result.Directives = []models.Directive{{Kind: models.DirectiveGoBack}}

	return result, nil
}
