// Package registry maps block labels to their factories and validates
// block configuration against the factory schemas.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/appforge/flowcore/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.BlockFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.BlockFactory),
	}
}

// Register adds a block factory under its label. Later registrations
// overwrite earlier ones, useful for tests injecting fakes.
func (r *Registry) Register(factory protocol.BlockFactory) {
	r.factories[factory.ID()] = factory
}

// CreateBlock builds a block instance for a node.
func (r *Registry) CreateBlock(ctx context.Context, label, nodeID string, config map[string]any) (protocol.Block, error) {
	factory, ok := r.factories[label]
	if !ok {
		return nil, fmt.Errorf("block type %q not registered", label)
	}

	return factory.Create(ctx, nodeID, config)
}

// IsRegistered checks availability of a block label.
func (r *Registry) IsRegistered(label string) bool {
	_, ok := r.factories[label]

	return ok
}

// Labels returns the registered block labels sorted for stable output.
func (r *Registry) Labels() []string {
	labels := make([]string, 0, len(r.factories))
	for label := range r.factories {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	return labels
}

// Factory returns the factory for a label, for schema inspection.
func (r *Registry) Factory(label string) (protocol.BlockFactory, bool) {
	factory, ok := r.factories[label]

	return factory, ok
}
