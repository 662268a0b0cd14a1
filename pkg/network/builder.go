package network

import (
	"context"
	"fmt"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

// ApplyDocument folds one document's resolved entities into the owner's
// graph. Safe to replay: a document contributes to each node and edge at
// most once, no matter how often the stage reruns.
func (e *Engine) ApplyDocument(ctx context.Context, owner common.Owner, documentID string, entities []common.CanonicalEntity) error {
	lock := e.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	nodes := make([]common.CanonicalEntity, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	for _, ent := range entities {
		if ent.Owner != owner {
			return fmt.Errorf("entity %s belongs to a different owner", ent.ID)
		}
		if !graphTypes[ent.Type] || seen[ent.ID] {
			continue
		}
		seen[ent.ID] = true
		nodes = append(nodes, ent)
	}

	for _, ent := range nodes {
		node := common.GraphNode{
			EntityID: ent.ID,
			Owner:    owner,
			Label:    ent.CanonicalName,
			Type:     ent.Type,
		}
		added, err := e.store.AddNodeDocument(ctx, node, documentID)
		if err != nil {
			return fmt.Errorf("add node %s: %w", ent.ID, err)
		}
		if !added {
			logger.Debug("Node already counted for document", "entity", ent.ID, "document", documentID)
		}
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := common.EdgeKey(nodes[i].ID, nodes[j].ID)
			if a == b {
				continue
			}
			if _, err := e.store.AddEdgeDocument(ctx, owner, a, b, documentID); err != nil {
				return fmt.Errorf("add edge %s-%s: %w", a, b, err)
			}
		}
	}

	return nil
}
