package network

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store/memory"
)

func TestMergePrimaryCollidingEdges(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	primary := makeEntity("p", "State of Kerala", common.EntityTypeOrg)
	dup := makeEntity("d", "Kerala State", common.EntityTypeOrg)
	neighbor := makeEntity("n", "High Court", common.EntityTypeCourt)

	if err := st.SaveEntity(ctx, primary); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.SaveEntity(ctx, dup); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.SaveEntity(ctx, neighbor); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Both the primary and the duplicate co-occur with the neighbor, in
	// different documents. After the merge the surviving edge counts the
	// union of both document sets.
	mustApply(t, engine, "doc-1", primary, neighbor)
	mustApply(t, engine, "doc-2", dup, neighbor)

	if _, err := engine.MergePrimary(ctx, testOwner, "p", []string{"d"}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	edges, err := st.ListEdges(ctx, testOwner)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge after merge, got %+v", edges)
	}
	a, b := common.EdgeKey("p", "n")
	if edges[0].A != a || edges[0].B != b {
		t.Fatalf("surviving edge = %s-%s, want %s-%s", edges[0].A, edges[0].B, a, b)
	}
	if edges[0].Weight != 2 {
		t.Fatalf("merged edge weight = %d, want 2", edges[0].Weight)
	}

	if _, err := st.GetEntity(ctx, testOwner, "d"); err == nil {
		t.Fatal("duplicate entity should be gone after merge")
	}

	aliases, err := st.ListAliases(ctx, testOwner)
	if err != nil {
		t.Fatalf("list aliases: %v", err)
	}
	found := false
	for _, al := range aliases {
		if al.AliasText == "Kerala State" && al.CanonicalEntityID == "p" {
			found = true
		}
	}
	if !found {
		t.Fatal("duplicate canonical name should alias the primary after merge")
	}
}

func TestMergePrimaryFaultLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	primary := makeEntity("p", "State of Kerala", common.EntityTypeOrg)
	dup := makeEntity("d", "Kerala State", common.EntityTypeOrg)
	neighbor := makeEntity("n", "High Court", common.EntityTypeCourt)
	for _, e := range []common.CanonicalEntity{primary, dup, neighbor} {
		if err := st.SaveEntity(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	mustApply(t, engine, "doc-1", primary, neighbor)
	mustApply(t, engine, "doc-2", dup, neighbor)

	before, err := st.ListEdges(ctx, testOwner)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}

	injected := errors.New("storage unavailable")
	st.FailNextMerge(injected)
	if _, err := engine.MergePrimary(ctx, testOwner, "p", []string{"d"}); !errors.Is(err, injected) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	after, err := st.ListEdges(ctx, testOwner)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("edge state changed despite failed merge:\nbefore: %+v\nafter:  %+v", before, after)
	}
	if _, err := st.GetEntity(ctx, testOwner, "d"); err != nil {
		t.Fatal("duplicate entity should survive a failed merge")
	}
}

func TestMergePrimaryRejectsSelfMerge(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	primary := makeEntity("p", "State of Kerala", common.EntityTypeOrg)
	if err := st.SaveEntity(ctx, primary); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := engine.MergePrimary(ctx, testOwner, "p", []string{"p"}); err == nil {
		t.Fatal("merging an entity into itself should fail")
	}
}
