// Package trigger provides the entry blocks of a graph. A trigger block
// does no work of its own: the activating event already seeded the run
// context, so the block records trigger metadata and hands off to its
// successors.
package trigger

import (
	"context"
	"time"

	"github.com/appforge/flowcore/pkg/models"
)

// now is swapped in tests.
var now = time.Now

// Block is the shared implementation behind every trigger label.
type Block struct {
	id     string
	label  string
	config map[string]any
}

func NewBlock(id, label string, config map[string]any) *Block {
	return &Block{id: id, label: label, config: config}
}

func (b *Block) ID() string {
	return b.id
}

func (b *Block) Label() string {
	return b.label
}

// Execute stamps the trigger namespace with the firing metadata. Event
// payload (form fields, webhook body, created record) is seeded by the
// caller before the run starts, so it is already present here.
func (b *Block) Execute(_ context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	run.Set("trigger", "label", b.label)
	run.Set("trigger", "node_id", b.id)
	run.Set("trigger", "fired_at", now().UTC().Format(time.RFC3339))

	return models.OK(map[string]any{"trigger": b.label}), nil
}
