package web

import (
	"github.com/appforge/flowcore/pkg/models"
)

// RunRequest is the body of a synchronous run call. Context carries
// namespace maps ("form", "custom", ...) seeded into the run before
// the trigger executes.
type RunRequest struct {
	Trigger string                    `json:"trigger" validate:"required"`
	Graph   *models.Graph             `json:"graph"   validate:"required"`
	Context map[string]map[string]any `json:"context"`
}

// seed builds the initial execution context for a run.
func (r *RunRequest) seed(appID, userID string) *models.ExecutionContext {
	execution := models.NewExecutionContext("", appID, userID)

	for namespace, values := range r.Context {
		for key, value := range values {
			execution.Set(namespace, key, value)
		}
	}

	return execution
}
