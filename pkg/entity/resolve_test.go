package entity

import (
	"context"
	"testing"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store/memory"
)

const testOwner = common.Owner("owner-1")

func newResolver(t *testing.T) (*Resolver, *memory.Store) {
	t.Helper()
	st := memory.New()
	return NewResolver(st, NewNormalizer(nil), DefaultThreshold), st
}

func mention(text string, typ common.EntityType) common.RawMention {
	return common.RawMention{Text: text, Type: typ}
}

func TestResolveMentionsCreatesNewEntity(t *testing.T) {
	ctx := context.Background()
	r, st := newResolver(t)

	resolved, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("Justice Rajesh Kumar", common.EntityTypePerson),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(resolved))
	}
	if resolved[0].NormalizedName != "rajesh kumar" {
		t.Fatalf("normalized_name = %q", resolved[0].NormalizedName)
	}
	if resolved[0].CanonicalName != "Justice Rajesh Kumar" {
		t.Fatalf("canonical_name = %q", resolved[0].CanonicalName)
	}

	entities, err := st.ListEntities(ctx, testOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected 1 stored entity, got %d", len(entities))
	}
}

func TestResolveMentionsHonorificVariantsCollapse(t *testing.T) {
	ctx := context.Background()
	r, st := newResolver(t)

	first, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("Justice Kumar", common.EntityTypePerson),
	})
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	second, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("Hon'ble Mr. Justice Kumar", common.EntityTypePerson),
	})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if first[0].ID != second[0].ID {
		t.Fatalf("honorific variant created a second entity: %s vs %s", first[0].ID, second[0].ID)
	}

	entities, err := st.ListEntities(ctx, testOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity after both resolutions, got %d", len(entities))
	}
}

func TestResolveMentionsFuzzyMatchRecordsAlias(t *testing.T) {
	ctx := context.Background()
	r, st := newResolver(t)

	if _, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("Kumar v. State", common.EntityTypeOrg),
	}); err != nil {
		t.Fatalf("seed resolve: %v", err)
	}

	// Same token set, different order: fuzzy match at 100, new alias.
	resolved, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("State v. Kumar", common.EntityTypeOrg),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(resolved))
	}

	aliases, err := st.ListAliases(ctx, testOwner)
	if err != nil {
		t.Fatalf("list aliases: %v", err)
	}
	if len(aliases) != 1 {
		t.Fatalf("expected 1 alias, got %d", len(aliases))
	}
	if aliases[0].AliasText != "State v. Kumar" {
		t.Fatalf("alias_text = %q", aliases[0].AliasText)
	}
	if aliases[0].CanonicalEntityID != resolved[0].ID {
		t.Fatal("alias does not point at the matched entity")
	}
	if aliases[0].SimilarityScore != 100 {
		t.Fatalf("similarity_score = %v, want 100", aliases[0].SimilarityScore)
	}
}

func TestResolveMentionsAliasNeverRetargets(t *testing.T) {
	ctx := context.Background()
	r, st := newResolver(t)

	first, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("Kumar v. State", common.EntityTypeOrg),
	})
	if err != nil {
		t.Fatalf("seed resolve: %v", err)
	}
	if _, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("State v. Kumar", common.EntityTypeOrg),
	}); err != nil {
		t.Fatalf("alias resolve: %v", err)
	}

	// Replaying the aliased text keeps the original mapping and writes
	// nothing new.
	again, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("State v. Kumar", common.EntityTypeOrg),
	})
	if err != nil {
		t.Fatalf("replay resolve: %v", err)
	}
	if again[0].ID != first[0].ID {
		t.Fatal("replayed alias resolved to a different entity")
	}

	aliases, err := st.ListAliases(ctx, testOwner)
	if err != nil {
		t.Fatalf("list aliases: %v", err)
	}
	if len(aliases) != 1 {
		t.Fatalf("expected 1 alias after replay, got %d", len(aliases))
	}
}

func TestResolveMentionsOwnersIsolated(t *testing.T) {
	ctx := context.Background()
	r, st := newResolver(t)

	a, err := r.ResolveMentions(ctx, "owner-1", []common.RawMention{
		mention("Rajesh Kumar", common.EntityTypePerson),
	})
	if err != nil {
		t.Fatalf("resolve owner-1: %v", err)
	}
	b, err := r.ResolveMentions(ctx, "owner-2", []common.RawMention{
		mention("Rajesh Kumar", common.EntityTypePerson),
	})
	if err != nil {
		t.Fatalf("resolve owner-2: %v", err)
	}

	if a[0].ID == b[0].ID {
		t.Fatal("identical names across owners shared an entity")
	}
	ents, err := st.ListEntities(ctx, "owner-2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("owner-2 should hold exactly 1 entity, got %d", len(ents))
	}
}

func TestResolveMentionsAmbiguousPicksHighestScore(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)

	// The two seeds share 5 of 7 tokens with each other (below the
	// threshold), so they stay separate entities. The query shares 6 of
	// its 7 tokens with each, scoring both at ~85.7.
	if _, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("National Green Tribunal Principal Bench New", common.EntityTypeCourt),
		mention("Green Tribunal Principal Bench New Delhi", common.EntityTypeCourt),
	}); err != nil {
		t.Fatalf("seed resolve: %v", err)
	}

	resolved, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("National Green Tribunal Principal Bench New Delhi", common.EntityTypeCourt),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(resolved))
	}
	// Equal scores break on the lexicographically smaller canonical name.
	if resolved[0].CanonicalName != "Green Tribunal Principal Bench New Delhi" {
		t.Fatalf("ambiguous mention resolved to %q", resolved[0].CanonicalName)
	}
}

func TestResolveMentionsDiscardsEmpty(t *testing.T) {
	ctx := context.Background()
	r, st := newResolver(t)

	resolved, err := r.ResolveMentions(ctx, testOwner, []common.RawMention{
		mention("   ", common.EntityTypePerson),
		mention("Justice", common.EntityTypePerson),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved) != 0 {
		t.Fatalf("expected no entities, got %d", len(resolved))
	}
	ents, err := st.ListEntities(ctx, testOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ents) != 0 {
		t.Fatalf("expected no stored entities, got %d", len(ents))
	}
}
