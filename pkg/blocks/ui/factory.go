package ui

import (
	"context"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
)

// ToastFactory creates notify.toast blocks.
type ToastFactory struct{}

func NewToastFactory() protocol.BlockFactory { return &ToastFactory{} }

func (f *ToastFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewToastBlock(nodeID, config)
}

func (f *ToastFactory) ID() string   { return models.LabelNotifyToast }
func (f *ToastFactory) Name() string { return "Show Toast" }

func (f *ToastFactory) Description() string {
	return "Shows a transient notification message."
}

func (f *ToastFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
			"variant": map[string]any{
				"type": "string",
				"enum": []any{"info", "success", "warning", "error"},
			},
		},
		"required": []any{"message"},
	}
}

// OpenModalFactory creates ui.openModal blocks.
type OpenModalFactory struct{}

func NewOpenModalFactory() protocol.BlockFactory { return &OpenModalFactory{} }

func (f *OpenModalFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewOpenModalBlock(nodeID, config)
}

func (f *OpenModalFactory) ID() string   { return models.LabelOpenModal }
func (f *OpenModalFactory) Name() string { return "Open Modal" }

func (f *OpenModalFactory) Description() string {
	return "Opens a modal by id or with inline content."
}

func (f *OpenModalFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"modalId": map[string]any{"type": "string"},
			"title":   map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		},
	}
}

// RedirectFactory creates page.redirect blocks.
type RedirectFactory struct{}

func NewRedirectFactory() protocol.BlockFactory { return &RedirectFactory{} }

func (f *RedirectFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewRedirectBlock(nodeID, config)
}

func (f *RedirectFactory) ID() string   { return models.LabelRedirect }
func (f *RedirectFactory) Name() string { return "Redirect" }

func (f *RedirectFactory) Description() string {
	return "Navigates the page to a new URL."
}

func (f *RedirectFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string"},
		},
		"required": []any{"url"},
	}
}

// GoBackFactory creates page.goBack blocks.
type GoBackFactory struct{}

func NewGoBackFactory() protocol.BlockFactory { return &GoBackFactory{} }

func (f *GoBackFactory) Create(_ context.Context, nodeID string, _ map[string]any) (protocol.Block, error) {
	return NewGoBackBlock(nodeID), nil
}

func (f *GoBackFactory) ID() string   { return models.LabelGoBack }
func (f *GoBackFactory) Name() string { return "Go Back" }

func (f *GoBackFactory) Description() string {
	return "Navigates back in the page history."
}

func (f *GoBackFactory) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
