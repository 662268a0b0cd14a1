package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/casegraph/backend/pkg/common"
)

func (s *Storage) ListEntities(ctx context.Context, owner common.Owner) ([]common.CanonicalEntity, error) {
	rows, err := s.conn.Query(ctx, listEntitiesSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]common.CanonicalEntity, 0)
	for rows.Next() {
		var e common.CanonicalEntity
		if err := rows.Scan(&e.ID, &e.Owner, &e.CanonicalName, &e.NormalizedName, &e.Type, &e.CreatedAt); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *Storage) GetEntity(ctx context.Context, owner common.Owner, id string) (common.CanonicalEntity, error) {
	var e common.CanonicalEntity
	err := s.conn.QueryRow(ctx, getEntitySQL, owner, id).Scan(
		&e.ID, &e.Owner, &e.CanonicalName, &e.NormalizedName, &e.Type, &e.CreatedAt,
	)
	if err != nil {
		return common.CanonicalEntity{}, mapNotFound(err)
	}
	return e, nil
}

func (s *Storage) SaveEntity(ctx context.Context, e common.CanonicalEntity) error {
	_, err := s.conn.Exec(ctx, saveEntitySQL,
		e.ID, e.Owner, e.CanonicalName, e.NormalizedName, e.Type, e.CreatedAt,
	)
	return err
}

func (s *Storage) FindAlias(ctx context.Context, owner common.Owner, aliasText string) (common.Alias, bool, error) {
	var a common.Alias
	err := s.conn.QueryRow(ctx, findAliasSQL, owner, aliasText).Scan(
		&a.Owner, &a.CanonicalEntityID, &a.AliasText, &a.SimilarityScore, &a.MergedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Alias{}, false, nil
		}
		return common.Alias{}, false, err
	}
	return a, true, nil
}

func (s *Storage) SaveAlias(ctx context.Context, a common.Alias) error {
	// ON CONFLICT DO NOTHING: an alias text never retargets once written.
	_, err := s.conn.Exec(ctx, saveAliasSQL,
		a.Owner, a.CanonicalEntityID, a.AliasText, a.SimilarityScore, a.MergedAt,
	)
	return err
}

func (s *Storage) ListAliases(ctx context.Context, owner common.Owner) ([]common.Alias, error) {
	rows, err := s.conn.Query(ctx, listAliasesSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aliases := make([]common.Alias, 0)
	for rows.Next() {
		var a common.Alias
		if err := rows.Scan(&a.Owner, &a.CanonicalEntityID, &a.AliasText, &a.SimilarityScore, &a.MergedAt); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

const listEntitiesSQL = `
SELECT id, owner, canonical_name, normalized_name, type, created_at
FROM entities
WHERE owner = $1
ORDER BY canonical_name;
`

const getEntitySQL = `
SELECT id, owner, canonical_name, normalized_name, type, created_at
FROM entities
WHERE owner = $1 AND id = $2;
`

const saveEntitySQL = `
INSERT INTO entities (id, owner, canonical_name, normalized_name, type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET canonical_name  = EXCLUDED.canonical_name,
    normalized_name = EXCLUDED.normalized_name,
    type            = EXCLUDED.type;
`

const findAliasSQL = `
SELECT owner, canonical_entity_id, alias_text, similarity_score, merged_at
FROM aliases
WHERE owner = $1 AND alias_text = $2;
`

const saveAliasSQL = `
INSERT INTO aliases (owner, canonical_entity_id, alias_text, similarity_score, merged_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (owner, alias_text) DO NOTHING;
`

const listAliasesSQL = `
SELECT owner, canonical_entity_id, alias_text, similarity_score, merged_at
FROM aliases
WHERE owner = $1
ORDER BY alias_text;
`
