package models

import "fmt"

// GraphWarning is a non-fatal well-formedness finding. Warnings never
// stop a run, the canvas surfaces them to the author.
type GraphWarning struct {
	NodeID  string `json:"node_id"`
	Message string `json:"message"`
}

// ValidateGraph checks structural well-formedness of a graph. A
// condition node is expected to have exactly one "yes" and one "no"
// outgoing edge, an unconnected branch is reported as a warning.
func ValidateGraph(g *Graph) []GraphWarning {
	warnings := make([]GraphWarning, 0)

	for _, node := range g.Nodes {
		for _, edge := range g.OutgoingEdges(node.ID) {
			if _, ok := g.NodeByID(edge.Target); !ok {
				warnings = append(warnings, GraphWarning{
					NodeID:  node.ID,
					Message: fmt.Sprintf("edge %s targets unknown node %s", edge.ID, edge.Target),
				})
			}
		}

		if node.Data.Category != CategoryConditions {
			continue
		}

		var hasYes, hasNo bool

		for _, edge := range g.OutgoingEdges(node.ID) {
			switch edge.Connector() {
			case ConnectorYes:
				hasYes = true
			case ConnectorNo:
				hasNo = true
			}

			if edge.SourceHandle == string(ConnectorYes) {
				hasYes = true
			}

			if edge.SourceHandle == string(ConnectorNo) {
				hasNo = true
			}
		}

		if !hasYes {
			warnings = append(warnings, GraphWarning{
				NodeID:  node.ID,
				Message: "condition node has no 'yes' branch connected",
			})
		}

		if !hasNo {
			warnings = append(warnings, GraphWarning{
				NodeID:  node.ID,
				Message: "condition node has no 'no' branch connected",
			})
		}
	}

	return warnings
}
