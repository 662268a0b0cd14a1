package network

import (
	"context"
	"sort"

	"github.com/casegraph/backend/pkg/common"
)

// DefaultProjectionLimit caps the node set returned to clients.
const DefaultProjectionLimit = 500

type ProjectedNode struct {
	ID            string            `json:"id"`
	Label         string            `json:"label"`
	Type          common.EntityType `json:"type"`
	DocumentCount int               `json:"document_count"`
	Degree        float64           `json:"degree"`
}

type ProjectedEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

type ProjectionStats struct {
	Density   float64                   `json:"density"`
	NodeTypes map[common.EntityType]int `json:"node_types"`
}

type Projection struct {
	Nodes      []ProjectedNode `json:"nodes"`
	Edges      []ProjectedEdge `json:"edges"`
	TotalNodes int             `json:"total_nodes"`
	TotalEdges int             `json:"total_edges"`
	Truncated  bool            `json:"truncated"`
	Stats      ProjectionStats `json:"stats"`
}

// Project returns the owner's graph cut down to the limit highest-degree
// nodes, with edges restricted to surviving endpoints. Ties rank by
// label ascending so the cut is stable across calls.
func (e *Engine) Project(ctx context.Context, owner common.Owner, limit int) (Projection, error) {
	if limit <= 0 {
		limit = DefaultProjectionLimit
	}

	lock := e.ownerLock(owner)
	lock.RLock()
	defer lock.RUnlock()

	nodes, err := e.store.ListNodes(ctx, owner)
	if err != nil {
		return Projection{}, err
	}
	edges, err := e.store.ListEdges(ctx, owner)
	if err != nil {
		return Projection{}, err
	}

	degreeOf := make(map[string]int, len(nodes))
	for _, edge := range edges {
		degreeOf[edge.A]++
		degreeOf[edge.B]++
	}

	ranked := make([]ProjectedNode, 0, len(nodes))
	typeCounts := make(map[common.EntityType]int)
	denom := float64(len(nodes) - 1)
	for _, n := range nodes {
		deg := 0.0
		if denom > 0 {
			deg = float64(degreeOf[n.EntityID]) / denom
		}
		ranked = append(ranked, ProjectedNode{
			ID:            n.EntityID,
			Label:         n.Label,
			Type:          n.Type,
			DocumentCount: n.DocumentCount,
			Degree:        deg,
		})
		typeCounts[n.Type]++
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Degree != ranked[j].Degree {
			return ranked[i].Degree > ranked[j].Degree
		}
		return ranked[i].Label < ranked[j].Label
	})

	truncated := len(ranked) > limit
	kept := ranked
	if truncated {
		kept = ranked[:limit]
	}
	surviving := make(map[string]bool, len(kept))
	for _, n := range kept {
		surviving[n.ID] = true
	}

	keptEdges := make([]ProjectedEdge, 0, len(edges))
	for _, edge := range edges {
		if surviving[edge.A] && surviving[edge.B] {
			keptEdges = append(keptEdges, ProjectedEdge{Source: edge.A, Target: edge.B, Weight: edge.Weight})
		}
	}

	return Projection{
		Nodes:      kept,
		Edges:      keptEdges,
		TotalNodes: len(nodes),
		TotalEdges: len(edges),
		Truncated:  truncated,
		Stats: ProjectionStats{
			Density:   density(len(nodes), len(edges)),
			NodeTypes: typeCounts,
		},
	}, nil
}

func density(nodeCount, edgeCount int) float64 {
	if nodeCount <= 1 {
		return 0
	}
	possible := float64(nodeCount) * float64(nodeCount-1) / 2
	return float64(edgeCount) / possible
}
