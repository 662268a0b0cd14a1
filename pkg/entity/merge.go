package entity

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/casegraph/backend/pkg/common"
)

var (
	ErrMergeSelf      = errors.New("primary entity listed among duplicates")
	ErrMergeNoTargets = errors.New("no duplicate entities to merge")
)

// BuildMergePlan computes the full outcome of folding duplicate entities
// into the primary: alias reassignment, edge remapping with weight
// re-summing where duplicates shared a neighbor, and node removal. It is
// a pure function over a snapshot of the owner's state, so applying the
// plan can be all-or-nothing.
func BuildMergePlan(
	primary common.CanonicalEntity,
	duplicates []common.CanonicalEntity,
	aliases []common.Alias,
	nodes []common.GraphNode,
	nodeDocs map[string][]string,
	edges []common.EdgeDocuments,
) (common.MergePlan, error) {
	if len(duplicates) == 0 {
		return common.MergePlan{}, ErrMergeNoTargets
	}

	dupSet := make(map[string]common.CanonicalEntity, len(duplicates))
	for _, d := range duplicates {
		if d.ID == primary.ID {
			return common.MergePlan{}, ErrMergeSelf
		}
		if d.Owner != primary.Owner {
			return common.MergePlan{}, fmt.Errorf("duplicate %s belongs to a different owner", d.ID)
		}
		dupSet[d.ID] = d
	}

	plan := common.MergePlan{
		Owner:     primary.Owner,
		PrimaryID: primary.ID,
	}
	for id := range dupSet {
		plan.RemoveEntityIDs = append(plan.RemoveEntityIDs, id)
	}
	sort.Strings(plan.RemoveEntityIDs)

	// Aliases of each duplicate move to the primary, and each duplicate's
	// own canonical name survives as an alias of the primary.
	now := time.Now().UTC()
	aliasTexts := make(map[string]struct{})
	for _, a := range aliases {
		if _, isDup := dupSet[a.CanonicalEntityID]; !isDup {
			aliasTexts[a.AliasText] = struct{}{}
			continue
		}
		moved := a
		moved.CanonicalEntityID = primary.ID
		moved.MergedAt = now
		plan.Aliases = append(plan.Aliases, moved)
		aliasTexts[a.AliasText] = struct{}{}
	}
	for _, id := range plan.RemoveEntityIDs {
		d := dupSet[id]
		if _, taken := aliasTexts[d.CanonicalName]; taken {
			continue
		}
		aliasTexts[d.CanonicalName] = struct{}{}
		plan.Aliases = append(plan.Aliases, common.Alias{
			Owner:             primary.Owner,
			CanonicalEntityID: primary.ID,
			AliasText:         d.CanonicalName,
			SimilarityScore:   100,
			MergedAt:          now,
		})
	}

	// Remap edges touching a duplicate onto the primary. Two duplicates
	// sharing a neighbor collide into one edge whose weight re-sums over
	// the union of contributing documents; duplicate-primary edges become
	// self-pairs and vanish.
	merged := make(map[[2]string]map[string]struct{})
	for _, e := range edges {
		_, aDup := dupSet[e.A]
		_, bDup := dupSet[e.B]
		if !aDup && !bDup {
			continue
		}

		plan.RemoveEdges = append(plan.RemoveEdges, [2]string{e.A, e.B})

		src, dst := e.A, e.B
		if aDup {
			src = primary.ID
		}
		if bDup {
			dst = primary.ID
		}
		if src == dst {
			continue
		}
		a, b := common.EdgeKey(src, dst)
		key := [2]string{a, b}
		if merged[key] == nil {
			merged[key] = make(map[string]struct{})
		}
		for _, doc := range e.Documents {
			merged[key][doc] = struct{}{}
		}
	}
	// A surviving edge already attached to the primary absorbs colliding
	// duplicate edges, so its documents join the union too.
	for _, e := range edges {
		a, b := common.EdgeKey(e.A, e.B)
		key := [2]string{a, b}
		if docs, collides := merged[key]; collides {
			for _, doc := range e.Documents {
				docs[doc] = struct{}{}
			}
			alreadyRemoved := false
			for _, rm := range plan.RemoveEdges {
				if rm == [2]string{e.A, e.B} {
					alreadyRemoved = true
					break
				}
			}
			if !alreadyRemoved {
				plan.RemoveEdges = append(plan.RemoveEdges, [2]string{e.A, e.B})
			}
		}
	}

	keys := make([][2]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, key := range keys {
		docs := make([]string, 0, len(merged[key]))
		for doc := range merged[key] {
			docs = append(docs, doc)
		}
		sort.Strings(docs)
		plan.UpsertEdges = append(plan.UpsertEdges, common.EdgeDocuments{
			Owner:     primary.Owner,
			A:         key[0],
			B:         key[1],
			Documents: docs,
		})
	}

	// Fold duplicate nodes into the primary node's document count.
	docUnion := make(map[string]struct{})
	for _, doc := range nodeDocs[primary.ID] {
		docUnion[doc] = struct{}{}
	}
	var primaryNode *common.GraphNode
	for i := range nodes {
		if nodes[i].EntityID == primary.ID {
			node := nodes[i]
			primaryNode = &node
			continue
		}
		if _, isDup := dupSet[nodes[i].EntityID]; isDup {
			plan.RemoveNodeIDs = append(plan.RemoveNodeIDs, nodes[i].EntityID)
			for _, doc := range nodeDocs[nodes[i].EntityID] {
				docUnion[doc] = struct{}{}
			}
		}
	}
	sort.Strings(plan.RemoveNodeIDs)

	if primaryNode == nil && len(plan.RemoveNodeIDs) > 0 {
		primaryNode = &common.GraphNode{
			EntityID: primary.ID,
			Owner:    primary.Owner,
			Label:    primary.CanonicalName,
			Type:     primary.Type,
		}
	}
	if primaryNode != nil {
		primaryNode.DocumentCount = len(docUnion)
		plan.PrimaryNode = primaryNode
		plan.PrimaryNodeDocs = make([]string, 0, len(docUnion))
		for doc := range docUnion {
			plan.PrimaryNodeDocs = append(plan.PrimaryNodeDocs, doc)
		}
		sort.Strings(plan.PrimaryNodeDocs)
	}

	return plan, nil
}
