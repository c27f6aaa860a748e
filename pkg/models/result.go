package models

import (
	"time"

	"github.com/appforge/flowcore/pkg/runfail"
)

// DirectiveKind enumerates the UI-facing instructions a block can emit.
type DirectiveKind string

const (
	DirectiveToast     DirectiveKind = "toast"
	DirectiveOpenModal DirectiveKind = "openModal"
	DirectiveRedirect  DirectiveKind = "redirect"
	DirectiveGoBack    DirectiveKind = "goBack"
)

// Directive is an instruction for the hosting application. The core
// accumulates directives, it never applies them.
type Directive struct {
	Kind    DirectiveKind  `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// BlockResult is the single return contract of every block handler.
// Handlers catch their own internal errors and report them here, they
// never panic or error across the handler boundary for expected
// failures.
type BlockResult struct {
	Success    bool           `json:"success"`
	Handle     string         `json:"handle,omitempty"` // output handle selecting the outgoing edge
	Output     map[string]any `json:"output,omitempty"`
	Directives []Directive    `json:"directives,omitempty"`
	FailCode   runfail.Code   `json:"fail_code,omitempty"`
	FailReason string         `json:"fail_reason,omitempty"`
}

// OK builds a successful result.
func OK(output map[string]any) *BlockResult {
	return &BlockResult{Success: true, Output: output}
}

// OKWithHandle builds a successful result that selects a branch.
func OKWithHandle(handle string, output map[string]any) *BlockResult {
	return &BlockResult{Success: true, Handle: handle, Output: output}
}

// Fail builds a failed result with a taxonomy code.
func Fail(code runfail.Code, reason string) *BlockResult {
	return &BlockResult{Success: false, FailCode: code, FailReason: reason}
}

// FailErr builds a failed result from an error, classifying it.
func FailErr(err error) *BlockResult {
	return &BlockResult{Success: false, FailCode: runfail.CodeOf(err), FailReason: err.Error()}
}

// BranchHalt records a branch that stopped without an onError edge.
type BranchHalt struct {
	NodeID string       `json:"node_id"`
	Code   runfail.Code `json:"code"`
	Reason string       `json:"reason"`
}

// RunResult is the outcome of one end-to-end traversal.
type RunResult struct {
	RunID      string            `json:"run_id"`
	Success    bool              `json:"success"`
	Context    *ExecutionContext `json:"context"`
	Directives []Directive       `json:"directives"`
	Halts      []BranchHalt      `json:"halts,omitempty"`
	Warnings   []GraphWarning    `json:"warnings,omitempty"`
	Steps      int               `json:"steps"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}
