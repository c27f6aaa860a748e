// Package models defines the core domain models for block-graph execution.
package models

// NodeType is the single node type produced by the canvas editor.
const NodeTypeWorkflow = "workflowNode"

// Category groups block kinds on the canvas.
type Category string

const (
	CategoryTriggers   Category = "Triggers"
	CategoryConditions Category = "Conditions"
	CategoryActions    Category = "Actions"
)

// Block labels understood by the handler registry. The label selects
// the config variant carried in NodeData.Config.
const (
	LabelOnPageLoad     = "onPageLoad"
	LabelOnClick        = "onClick"
	LabelOnSubmit       = "onSubmit"
	LabelOnWebhook      = "onWebhook"
	LabelOnRecordCreate = "onRecordCreate"
	LabelOnSchedule     = "onSchedule"

	LabelDBCreate    = "db.create"
	LabelDBFind      = "db.find"
	LabelDBUpdate    = "db.update"
	LabelDBUpsert    = "db.upsert"
	LabelHTTPRequest = "http.request"
	LabelEmailSend   = "email.send"
	LabelAISummarize = "ai.summarize"
	LabelNotifyToast = "notify.toast"
	LabelOpenModal   = "ui.openModal"
	LabelRedirect    = "page.redirect"
	LabelGoBack      = "page.goBack"
	LabelAuthVerify  = "auth.verify"

	LabelSwitch = "switch"
	LabelExpr   = "expr"
	LabelMatch  = "match"
)

// NodeData is the canvas-authored payload of a node.
type NodeData struct {
	Category Category       `json:"category" validate:"required"`
	Label    string         `json:"label"    validate:"required,min=1"`
	Config   map[string]any `json:"config"`
}

// Node is one block in the automation graph. Nodes are read-only inputs
// at run time, the editor owns their lifecycle.
type Node struct {
	ID   string   `json:"id"   validate:"required"`
	Type string   `json:"type" validate:"required"`
	Data NodeData `json:"data"`
}

func (n *Node) IsTrigger() bool {
	return n.Data.Category == CategoryTriggers
}

// ConnectorType labels an edge and governs which branch executes next.
type ConnectorType string

const (
	ConnectorNext     ConnectorType = "next"
	ConnectorYes      ConnectorType = "yes"
	ConnectorNo       ConnectorType = "no"
	ConnectorOnError  ConnectorType = "onError"
	ConnectorFork     ConnectorType = "fork"
	ConnectorJoin     ConnectorType = "join"
	ConnectorLoopBack ConnectorType = "loopBack"
)

// EdgeData carries the connector type of an edge.
type EdgeData struct {
	ConnectorType ConnectorType `json:"connectorType"`
}

// Edge is a typed link between two blocks. SourceHandle carries the
// branch label for condition/switch nodes ("yes", "no", a case label,
// "default").
type Edge struct {
	ID           string   `json:"id"     validate:"required"`
	Source       string   `json:"source" validate:"required"`
	Target       string   `json:"target" validate:"required"`
	SourceHandle string   `json:"sourceHandle,omitempty"`
	Data         EdgeData `json:"data"`
}

// Connector returns the effective connector type, defaulting to "next".
func (e *Edge) Connector() ConnectorType {
	if e.Data.ConnectorType == "" {
		return ConnectorNext
	}

	return e.Data.ConnectorType
}

// Graph bundles the canvas output handed to the orchestrator.
type Graph struct {
	Nodes []*Node `json:"nodes" validate:"required,dive"`
	Edges []*Edge `json:"edges" validate:"dive"`
}

// NodeByID finds a node in the graph.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return nil, false
}

// OutgoingEdges returns the edges leaving a node in declaration order.
func (g *Graph) OutgoingEdges(nodeID string) []*Edge {
	edges := make([]*Edge, 0)

	for _, e := range g.Edges {
		if e.Source == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}

// IncomingEdges returns the edges entering a node in declaration order.
func (g *Graph) IncomingEdges(nodeID string) []*Edge {
	edges := make([]*Edge, 0)

	for _, e := range g.Edges {
		if e.Target == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}

// TriggerNodes returns the trigger nodes matching the given label.
func (g *Graph) TriggerNodes(label string) []*Node {
	nodes := make([]*Node, 0)

	for _, n := range g.Nodes {
		if n.IsTrigger() && n.Data.Label == label {
			nodes = append(nodes, n)
		}
	}

	return nodes
}
