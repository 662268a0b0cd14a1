package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

// ambiguityBand is the score window within which multiple candidates
// count as ambiguous. Ambiguity resolves to the highest-scoring
// candidate and is logged, never surfaced as a failure.
const ambiguityBand = 2.0

// Store is the persistence surface the resolver needs.
type Store interface {
	ListEntities(ctx context.Context, owner common.Owner) ([]common.CanonicalEntity, error)
	SaveEntity(ctx context.Context, e common.CanonicalEntity) error
	FindAlias(ctx context.Context, owner common.Owner, aliasText string) (common.Alias, bool, error)
	SaveAlias(ctx context.Context, a common.Alias) error
}

// Resolver decides, per raw mention, whether it names a known canonical
// entity (attach alias), a new one (create), or sits between several
// similar names (pick the best match deterministically).
type Resolver struct {
	store      Store
	normalizer *Normalizer
	threshold  float64
}

// NewResolver builds a resolver. A zero threshold falls back to
// DefaultThreshold.
func NewResolver(store Store, normalizer *Normalizer, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{store: store, normalizer: normalizer, threshold: threshold}
}

// ResolveMentions maps a document's raw mentions onto canonical
// entities, creating entities and alias rows as needed. The returned
// slice is deduplicated by entity id. Safe to re-run for the same
// document: repeated mentions resolve to the same entities and alias
// writes are no-ops for already-mapped texts.
func (r *Resolver) ResolveMentions(ctx context.Context, owner common.Owner, mentions []common.RawMention) ([]common.CanonicalEntity, error) {
	pool, err := r.store.ListEntities(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	byNorm := make(map[string]int, len(pool))
	for i, e := range pool {
		byNorm[e.NormalizedName] = i
	}

	resolved := make([]common.CanonicalEntity, 0, len(mentions))
	seen := make(map[string]struct{})

	appendResolved := func(e common.CanonicalEntity) {
		if _, ok := seen[e.ID]; ok {
			return
		}
		seen[e.ID] = struct{}{}
		resolved = append(resolved, e)
	}

	seenMentions := make(map[string]struct{})
	for _, mention := range mentions {
		norm := r.normalizer.Normalize(mention.Text)
		if norm == "" {
			continue
		}
		if _, dup := seenMentions[norm]; dup {
			continue
		}
		seenMentions[norm] = struct{}{}

		// Exact hit on the normalized form needs no alias row.
		if i, ok := byNorm[norm]; ok {
			appendResolved(pool[i])
			continue
		}

		display := DisplayName(mention.Text)

		// An alias text already mapped for this owner keeps its existing
		// target, whatever the scorer would say today.
		if existing, ok, err := r.store.FindAlias(ctx, owner, display); err != nil {
			return nil, fmt.Errorf("failed to look up alias %q: %w", display, err)
		} else if ok {
			target, found := entityByID(pool, existing.CanonicalEntityID)
			if found {
				appendResolved(target)
				continue
			}
		}

		candidates := FindCandidates(norm, pool, r.threshold)
		if len(candidates) == 0 {
			created := common.CanonicalEntity{
				ID:             uuid.NewString(),
				Owner:          owner,
				CanonicalName:  display,
				NormalizedName: norm,
				Type:           mention.Type,
				CreatedAt:      time.Now().UTC(),
			}
			if err := r.store.SaveEntity(ctx, created); err != nil {
				return nil, fmt.Errorf("failed to create entity %q: %w", display, err)
			}
			pool = append(pool, created)
			byNorm[norm] = len(pool) - 1
			appendResolved(created)
			continue
		}

		best := candidates[0]
		if len(candidates) > 1 && candidates[1].Score >= best.Score-ambiguityBand {
			logger.Warn("Ambiguous entity match, resolving to highest score",
				"owner", owner,
				"mention", display,
				"matched", best.Entity.CanonicalName,
				"score", best.Score,
				"runner_up", candidates[1].Entity.CanonicalName,
				"runner_up_score", candidates[1].Score,
			)
		}

		alias := common.Alias{
			Owner:             owner,
			CanonicalEntityID: best.Entity.ID,
			AliasText:         display,
			SimilarityScore:   best.Score,
			MergedAt:          time.Now().UTC(),
		}
		if err := r.store.SaveAlias(ctx, alias); err != nil {
			return nil, fmt.Errorf("failed to save alias %q: %w", display, err)
		}
		appendResolved(best.Entity)
	}

	return resolved, nil
}

func entityByID(pool []common.CanonicalEntity, id string) (common.CanonicalEntity, bool) {
	for _, e := range pool {
		if e.ID == id {
			return e, true
		}
	}
	return common.CanonicalEntity{}, false
}
