package network

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store/memory"
)

const testOwner = common.Owner("owner-1")

func makeEntity(id, name string, typ common.EntityType) common.CanonicalEntity {
	return common.CanonicalEntity{
		ID:            id,
		Owner:         testOwner,
		CanonicalName: name,
		Type:          typ,
		CreatedAt:     time.Now(),
	}
}

func TestApplyDocumentIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	entities := []common.CanonicalEntity{
		makeEntity("e1", "Justice Kumar", common.EntityTypePerson),
		makeEntity("e2", "Supreme Court", common.EntityTypeCourt),
		makeEntity("e3", "Acme Corp", common.EntityTypeOrg),
	}

	if err := engine.ApplyDocument(ctx, testOwner, "doc-1", entities); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first, err := st.ListEdges(ctx, testOwner)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}

	if err := engine.ApplyDocument(ctx, testOwner, "doc-1", entities); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	second, err := st.ListEdges(ctx, testOwner)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("edge set changed on replay:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if len(second) != 3 {
		t.Fatalf("expected 3 edges for a 3-entity document, got %d", len(second))
	}
	for _, edge := range second {
		if edge.Weight != 1 {
			t.Fatalf("edge %s-%s has weight %d, want 1", edge.A, edge.B, edge.Weight)
		}
	}
}

func TestApplyDocumentSecondDocumentIncrementsWeight(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	pair := []common.CanonicalEntity{
		makeEntity("e1", "Justice Kumar", common.EntityTypePerson),
		makeEntity("e2", "Supreme Court", common.EntityTypeCourt),
	}

	for _, doc := range []string{"doc-1", "doc-2"} {
		if err := engine.ApplyDocument(ctx, testOwner, doc, pair); err != nil {
			t.Fatalf("apply %s: %v", doc, err)
		}
	}

	edges, err := st.ListEdges(ctx, testOwner)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].Weight != 2 {
		t.Fatalf("edge weight = %d, want 2", edges[0].Weight)
	}

	nodes, err := st.ListNodes(ctx, testOwner)
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	for _, n := range nodes {
		if n.DocumentCount != 2 {
			t.Fatalf("node %s document_count = %d, want 2", n.EntityID, n.DocumentCount)
		}
	}
}

func TestApplyDocumentSkipsDates(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	entities := []common.CanonicalEntity{
		makeEntity("e1", "Justice Kumar", common.EntityTypePerson),
		makeEntity("e2", "12 March 2021", common.EntityTypeDate),
	}

	if err := engine.ApplyDocument(ctx, testOwner, "doc-1", entities); err != nil {
		t.Fatalf("apply: %v", err)
	}

	nodes, err := st.ListNodes(ctx, testOwner)
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].EntityID != "e1" {
		t.Fatalf("expected only the person node, got %+v", nodes)
	}
	edges, err := st.ListEdges(ctx, testOwner)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no edges, got %+v", edges)
	}
}

func TestRecomputePathGraph(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	// Path a - b - c: b sits on the only shortest path between a and c.
	a := makeEntity("a", "Alpha", common.EntityTypePerson)
	b := makeEntity("b", "Bravo", common.EntityTypePerson)
	c := makeEntity("c", "Charlie", common.EntityTypePerson)
	mustApply(t, engine, "doc-1", a, b)
	mustApply(t, engine, "doc-2", b, c)

	snapshots, err := engine.Recompute(ctx, testOwner)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}

	values := make(map[string]float64)
	for _, snap := range snapshots {
		values[string(snap.Metric)+"/"+snap.EntityID] = snap.Value
	}

	wantDegree := map[string]float64{"a": 0.5, "b": 1.0, "c": 0.5}
	for id, want := range wantDegree {
		if got := values["degree/"+id]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("degree(%s) = %v, want %v", id, got, want)
		}
	}

	wantBetween := map[string]float64{"a": 0, "b": 1, "c": 0}
	for id, want := range wantBetween {
		if got := values["betweenness/"+id]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("betweenness(%s) = %v, want %v", id, got, want)
		}
	}
}

func TestRecomputeDisconnectedGraph(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	// Two components that never meet.
	mustApply(t, engine, "doc-1",
		makeEntity("a", "Alpha", common.EntityTypePerson),
		makeEntity("b", "Bravo", common.EntityTypePerson),
	)
	mustApply(t, engine, "doc-2",
		makeEntity("x", "Xray", common.EntityTypeOrg),
		makeEntity("y", "Yankee", common.EntityTypeOrg),
	)

	snapshots, err := engine.Recompute(ctx, testOwner)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(snapshots) != 8 {
		t.Fatalf("expected 8 snapshots (4 nodes x 2 metrics), got %d", len(snapshots))
	}
	for _, snap := range snapshots {
		if snap.Value < 0 {
			t.Fatalf("%s(%s) = %v, want >= 0", snap.Metric, snap.EntityID, snap.Value)
		}
		if snap.Metric == common.MetricDegree && snap.Value > 1 {
			t.Fatalf("degree(%s) = %v, want <= 1", snap.EntityID, snap.Value)
		}
	}
}

func TestRecomputeOverwritesSnapshots(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	mustApply(t, engine, "doc-1",
		makeEntity("a", "Alpha", common.EntityTypePerson),
		makeEntity("b", "Bravo", common.EntityTypePerson),
	)

	if _, err := engine.Recompute(ctx, testOwner); err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	if _, err := engine.Recompute(ctx, testOwner); err != nil {
		t.Fatalf("second recompute: %v", err)
	}

	snapshots, err := st.ListMetrics(ctx, testOwner)
	if err != nil {
		t.Fatalf("list metrics: %v", err)
	}
	if len(snapshots) != 4 {
		t.Fatalf("expected 4 snapshots after recompute, got %d", len(snapshots))
	}
}

func TestProjectTruncation(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	// A hub connected to everything plus a long tail of pair documents.
	hub := makeEntity("hub", "AAA Hub", common.EntityTypeOrg)
	total := 600
	for i := 1; i < total; i++ {
		other := makeEntity(
			fmt.Sprintf("n%03d", i),
			fmt.Sprintf("Node %03d", i),
			common.EntityTypePerson,
		)
		mustApply(t, engine, fmt.Sprintf("doc-%03d", i), hub, other)
	}

	proj, err := engine.Project(ctx, testOwner, 500)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	if !proj.Truncated {
		t.Fatal("expected truncated projection")
	}
	if len(proj.Nodes) != 500 {
		t.Fatalf("projected node count = %d, want 500", len(proj.Nodes))
	}
	if proj.TotalNodes != total {
		t.Fatalf("total_nodes = %d, want %d", proj.TotalNodes, total)
	}
	if proj.Nodes[0].ID != "hub" {
		t.Fatalf("highest-degree node should rank first, got %s", proj.Nodes[0].ID)
	}

	surviving := make(map[string]bool, len(proj.Nodes))
	for _, n := range proj.Nodes {
		surviving[n.ID] = true
	}
	for _, edge := range proj.Edges {
		if !surviving[edge.Source] || !surviving[edge.Target] {
			t.Fatalf("edge %s-%s references a cut node", edge.Source, edge.Target)
		}
	}
}

func TestProjectDeterministicTieBreak(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	engine := NewEngine(st)

	// Every node has equal degree, so ordering falls back to labels.
	mustApply(t, engine, "doc-1",
		makeEntity("e2", "Bravo", common.EntityTypePerson),
		makeEntity("e1", "Alpha", common.EntityTypePerson),
	)

	proj, err := engine.Project(ctx, testOwner, 10)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if proj.Truncated {
		t.Fatal("projection should not be truncated")
	}
	labels := []string{proj.Nodes[0].Label, proj.Nodes[1].Label}
	if !reflect.DeepEqual(labels, []string{"Alpha", "Bravo"}) {
		t.Fatalf("tie-break order = %v, want [Alpha Bravo]", labels)
	}
}

func mustApply(t *testing.T, engine *Engine, doc string, entities ...common.CanonicalEntity) {
	t.Helper()
	if err := engine.ApplyDocument(context.Background(), testOwner, doc, entities); err != nil {
		t.Fatalf("apply %s: %v", doc, err)
	}
}
