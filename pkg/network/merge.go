package network

import (
	"context"
	"fmt"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/entity"
	"github.com/casegraph/backend/pkg/logger"
)

// MergePrimary folds the duplicate entities into the primary: aliases
// move over, the duplicates' canonical names become aliases of the
// primary, and every edge touching a duplicate is re-keyed onto the
// primary with colliding document sets unioned. Applied in one store
// transaction, so a failure leaves the graph untouched.
func (e *Engine) MergePrimary(ctx context.Context, owner common.Owner, primaryID string, duplicateIDs []string) (common.CanonicalEntity, error) {
	lock := e.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	primary, err := e.store.GetEntity(ctx, owner, primaryID)
	if err != nil {
		return common.CanonicalEntity{}, fmt.Errorf("load primary: %w", err)
	}
	duplicates := make([]common.CanonicalEntity, 0, len(duplicateIDs))
	for _, id := range duplicateIDs {
		dup, err := e.store.GetEntity(ctx, owner, id)
		if err != nil {
			return common.CanonicalEntity{}, fmt.Errorf("load duplicate %s: %w", id, err)
		}
		duplicates = append(duplicates, dup)
	}

	aliases, err := e.store.ListAliases(ctx, owner)
	if err != nil {
		return common.CanonicalEntity{}, err
	}
	nodes, err := e.store.ListNodes(ctx, owner)
	if err != nil {
		return common.CanonicalEntity{}, err
	}
	nodeDocs, err := e.store.ListNodeDocuments(ctx, owner)
	if err != nil {
		return common.CanonicalEntity{}, err
	}
	edges, err := e.store.ListEdgeDocuments(ctx, owner)
	if err != nil {
		return common.CanonicalEntity{}, err
	}

	plan, err := entity.BuildMergePlan(primary, duplicates, aliases, nodes, nodeDocs, edges)
	if err != nil {
		return common.CanonicalEntity{}, err
	}

	if err := e.store.ApplyMerge(ctx, plan); err != nil {
		return common.CanonicalEntity{}, fmt.Errorf("apply merge: %w", err)
	}

	logger.Info("Merged entities",
		"owner", owner,
		"primary", primaryID,
		"duplicates", len(duplicateIDs),
	)
	return primary, nil
}
