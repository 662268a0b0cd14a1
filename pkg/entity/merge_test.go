package entity

import (
	"errors"
	"reflect"
	"testing"

	"github.com/casegraph/backend/pkg/common"
)

func mergeEntity(id, name string) common.CanonicalEntity {
	return common.CanonicalEntity{
		ID:            id,
		Owner:         "owner-1",
		CanonicalName: name,
		Type:          common.EntityTypeOrg,
	}
}

func TestBuildMergePlanValidation(t *testing.T) {
	primary := mergeEntity("p", "Primary")

	if _, err := BuildMergePlan(primary, nil, nil, nil, nil, nil); !errors.Is(err, ErrMergeNoTargets) {
		t.Fatalf("expected ErrMergeNoTargets, got %v", err)
	}

	if _, err := BuildMergePlan(primary, []common.CanonicalEntity{primary}, nil, nil, nil, nil); !errors.Is(err, ErrMergeSelf) {
		t.Fatalf("expected ErrMergeSelf, got %v", err)
	}

	foreign := mergeEntity("d", "Duplicate")
	foreign.Owner = "owner-2"
	if _, err := BuildMergePlan(primary, []common.CanonicalEntity{foreign}, nil, nil, nil, nil); err == nil {
		t.Fatal("expected cross-owner merge to fail")
	}
}

func TestBuildMergePlanMovesAliases(t *testing.T) {
	primary := mergeEntity("p", "State of Kerala")
	dup := mergeEntity("d", "Kerala State")

	aliases := []common.Alias{
		{Owner: "owner-1", CanonicalEntityID: "d", AliasText: "Kerala Govt", SimilarityScore: 90},
		{Owner: "owner-1", CanonicalEntityID: "p", AliasText: "Govt of Kerala", SimilarityScore: 92},
	}

	plan, err := BuildMergePlan(primary, []common.CanonicalEntity{dup}, aliases, nil, nil, nil)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}

	if !reflect.DeepEqual(plan.RemoveEntityIDs, []string{"d"}) {
		t.Fatalf("remove set = %v", plan.RemoveEntityIDs)
	}

	texts := make(map[string]string)
	for _, a := range plan.Aliases {
		texts[a.AliasText] = a.CanonicalEntityID
	}
	if texts["Kerala Govt"] != "p" {
		t.Fatal("duplicate's alias should move to the primary")
	}
	if texts["Kerala State"] != "p" {
		t.Fatal("duplicate's canonical name should become a primary alias")
	}
	if _, ok := texts["Govt of Kerala"]; ok {
		t.Fatal("primary's own alias needs no rewrite")
	}
}

func TestBuildMergePlanEdgeCollision(t *testing.T) {
	primary := mergeEntity("p", "State of Kerala")
	dup1 := mergeEntity("d1", "Kerala State")
	dup2 := mergeEntity("d2", "Govt of Kerala")

	edges := []common.EdgeDocuments{
		{Owner: "owner-1", A: "d1", B: "n", Documents: []string{"doc-1"}},
		{Owner: "owner-1", A: "d2", B: "n", Documents: []string{"doc-2", "doc-3"}},
		{Owner: "owner-1", A: "n", B: "p", Documents: []string{"doc-3", "doc-4"}},
		{Owner: "owner-1", A: "d1", B: "p", Documents: []string{"doc-5"}},
	}

	plan, err := BuildMergePlan(primary, []common.CanonicalEntity{dup1, dup2}, nil, nil, nil, edges)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}

	if len(plan.UpsertEdges) != 1 {
		t.Fatalf("expected 1 surviving edge, got %+v", plan.UpsertEdges)
	}
	got := plan.UpsertEdges[0]
	a, b := common.EdgeKey("p", "n")
	if got.A != a || got.B != b {
		t.Fatalf("surviving edge = %s-%s, want %s-%s", got.A, got.B, a, b)
	}
	// All three colliding edges fold into one document union; the
	// duplicate-primary edge becomes a self-pair and vanishes.
	want := []string{"doc-1", "doc-2", "doc-3", "doc-4"}
	if !reflect.DeepEqual(got.Documents, want) {
		t.Fatalf("document union = %v, want %v", got.Documents, want)
	}

	if len(plan.RemoveEdges) != 4 {
		t.Fatalf("all touched edges must be removed before reinsert, got %v", plan.RemoveEdges)
	}
}

func TestBuildMergePlanNodeFold(t *testing.T) {
	primary := mergeEntity("p", "State of Kerala")
	dup := mergeEntity("d", "Kerala State")

	nodes := []common.GraphNode{
		{EntityID: "p", Owner: "owner-1", Label: "State of Kerala", Type: common.EntityTypeOrg, DocumentCount: 2},
		{EntityID: "d", Owner: "owner-1", Label: "Kerala State", Type: common.EntityTypeOrg, DocumentCount: 2},
	}
	nodeDocs := map[string][]string{
		"p": {"doc-1", "doc-2"},
		"d": {"doc-2", "doc-3"},
	}

	plan, err := BuildMergePlan(primary, []common.CanonicalEntity{dup}, nil, nodes, nodeDocs, nil)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}

	if plan.PrimaryNode == nil {
		t.Fatal("expected a primary node in the plan")
	}
	if plan.PrimaryNode.DocumentCount != 3 {
		t.Fatalf("folded document_count = %d, want 3", plan.PrimaryNode.DocumentCount)
	}
	if !reflect.DeepEqual(plan.PrimaryNodeDocs, []string{"doc-1", "doc-2", "doc-3"}) {
		t.Fatalf("folded docs = %v", plan.PrimaryNodeDocs)
	}
	if !reflect.DeepEqual(plan.RemoveNodeIDs, []string{"d"}) {
		t.Fatalf("remove nodes = %v", plan.RemoveNodeIDs)
	}
}
