// Package protocol defines the interfaces and contracts between the
// orchestrator, block handlers and external collaborators.
package protocol

import (
	"context"

	"github.com/appforge/flowcore/pkg/models"
)

// Block is one executable handler instance, configured from a node's
// canvas payload. Execute extends the run context in place and reports
// its outcome through BlockResult. Expected failures never surface as
// an error, the error return is reserved for programming mistakes the
// orchestrator should treat as a halted branch.
type Block interface {
	// ID returns the node ID this block instance was created for.
	ID() string

	// Label returns the block kind, e.g. "db.find".
	Label() string

	// Execute runs the block against the accumulated context.
	Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error)
}

// BlockFactory creates block instances and describes the block type.
type BlockFactory interface {
	// Create builds a block instance from a node's config.
	Create(ctx context.Context, nodeID string, config map[string]any) (Block, error)

	// ID returns the block label this factory serves.
	ID() string

	// Name returns the human-readable name of the block type.
	Name() string

	// Description explains what the block does.
	Description() string

	// Schema returns the JSON schema for the block's config variant.
	Schema() map[string]any
}
