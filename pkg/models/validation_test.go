package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func conditionGraph(edges ...*Edge) *Graph {
	return &Graph{
		Nodes: []*Node{
			{ID: "t1", Type: NodeTypeWorkflow, Data: NodeData{Category: CategoryTriggers, Label: LabelOnClick}},
			{ID: "c1", Type: NodeTypeWorkflow, Data: NodeData{Category: CategoryConditions, Label: LabelMatch}},
			{ID: "a1", Type: NodeTypeWorkflow, Data: NodeData{Category: CategoryActions, Label: LabelNotifyToast}},
		},
		Edges: append([]*Edge{
			{ID: "e1", Source: "t1", Target: "c1"},
		}, edges...),
	}
}

func TestValidateGraph_ConditionMissingNoBranch(t *testing.T) {
	graph := conditionGraph(
		&Edge{ID: "e2", Source: "c1", Target: "a1", SourceHandle: "yes", Data: EdgeData{ConnectorType: ConnectorYes}},
	)

	warnings := ValidateGraph(graph)

	assert.Len(t, warnings, 1)
	assert.Equal(t, "c1", warnings[0].NodeID)
	assert.Contains(t, warnings[0].Message, "'no' branch")
}

func TestValidateGraph_FullyConnectedConditionIsClean(t *testing.T) {
	graph := conditionGraph(
		&Edge{ID: "e2", Source: "c1", Target: "a1", SourceHandle: "yes", Data: EdgeData{ConnectorType: ConnectorYes}},
		&Edge{ID: "e3", Source: "c1", Target: "a1", SourceHandle: "no", Data: EdgeData{ConnectorType: ConnectorNo}},
	)

	assert.Empty(t, ValidateGraph(graph))
}

func TestValidateGraph_DanglingEdgeTarget(t *testing.T) {
	graph := &Graph{
		Nodes: []*Node{
			{ID: "t1", Type: NodeTypeWorkflow, Data: NodeData{Category: CategoryTriggers, Label: LabelOnClick}},
		},
		Edges: []*Edge{
			{ID: "e1", Source: "t1", Target: "ghost"},
		},
	}

	warnings := ValidateGraph(graph)

	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "unknown node")
}

func TestEdgeConnector_DefaultsToNext(t *testing.T) {
	edge := &Edge{ID: "e1", Source: "a", Target: "b"}

	assert.Equal(t, ConnectorNext, edge.Connector())
}
