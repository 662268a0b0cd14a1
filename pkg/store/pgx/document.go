package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store"
)

func (s *Storage) GetDocument(ctx context.Context, owner common.Owner, id string) (common.Document, error) {
	var doc common.Document
	err := s.conn.QueryRow(ctx, getDocumentSQL, owner, id).Scan(
		&doc.ID, &doc.Owner, &doc.Filename, &doc.FilePath, &doc.RawText,
		&doc.Status, &doc.Deleted, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return common.Document{}, mapNotFound(err)
	}
	return doc, nil
}

func (s *Storage) ListDocuments(ctx context.Context, owner common.Owner) ([]common.Document, error) {
	rows, err := s.conn.Query(ctx, listDocumentsSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]common.Document, 0)
	for rows.Next() {
		var doc common.Document
		if err := rows.Scan(
			&doc.ID, &doc.Owner, &doc.Filename, &doc.FilePath, &doc.RawText,
			&doc.Status, &doc.Deleted, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Storage) SaveDocument(ctx context.Context, doc common.Document) error {
	_, err := s.conn.Exec(ctx, saveDocumentSQL,
		doc.ID, doc.Owner, doc.Filename, doc.FilePath, doc.RawText,
		doc.Status, doc.Deleted, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func (s *Storage) UpdateDocumentStatus(ctx context.Context, owner common.Owner, id string, status common.DocumentStatus) error {
	tag, err := s.conn.Exec(ctx, updateDocumentStatusSQL, owner, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Storage) SetDocumentText(ctx context.Context, owner common.Owner, id string, text string) error {
	tag, err := s.conn.Exec(ctx, setDocumentTextSQL, owner, id, text)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Storage) SetDocumentEntities(ctx context.Context, owner common.Owner, documentID string, entityIDs []string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearDocumentEntitiesSQL, owner, documentID); err != nil {
			return err
		}
		for i, entityID := range entityIDs {
			if _, err := tx.Exec(ctx, insertDocumentEntitySQL, owner, documentID, entityID, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) GetDocumentEntities(ctx context.Context, owner common.Owner, documentID string) ([]common.CanonicalEntity, error) {
	rows, err := s.conn.Query(ctx, getDocumentEntitiesSQL, owner, documentID)
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

const getDocumentSQL = `
SELECT id, owner, filename, file_path, raw_text, status, deleted, created_at, updated_at
FROM documents
WHERE owner = $1 AND id = $2;
`

const listDocumentsSQL = `
SELECT id, owner, filename, file_path, raw_text, status, deleted, created_at, updated_at
FROM documents
WHERE owner = $1
ORDER BY id;
`

const saveDocumentSQL = `
INSERT INTO documents (id, owner, filename, file_path, raw_text, status, deleted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE
SET filename   = EXCLUDED.filename,
    file_path  = EXCLUDED.file_path,
    raw_text   = EXCLUDED.raw_text,
    status     = EXCLUDED.status,
    deleted    = EXCLUDED.deleted,
    updated_at = EXCLUDED.updated_at;
`

const updateDocumentStatusSQL = `
UPDATE documents
SET status = $3, updated_at = now()
WHERE owner = $1 AND id = $2;
`

const setDocumentTextSQL = `
UPDATE documents
SET raw_text = $3, updated_at = now()
WHERE owner = $1 AND id = $2;
`

const clearDocumentEntitiesSQL = `
DELETE FROM document_entities
WHERE owner = $1 AND document_id = $2;
`

const insertDocumentEntitySQL = `
INSERT INTO document_entities (owner, document_id, entity_id, ord)
VALUES ($1, $2, $3, $4)
ON CONFLICT (owner, document_id, entity_id) DO NOTHING;
`

const getDocumentEntitiesSQL = `
SELECT e.id, e.owner, e.canonical_name, e.normalized_name, e.type, e.created_at
FROM document_entities de
JOIN entities e ON e.owner = de.owner AND e.id = de.entity_id
WHERE de.owner = $1 AND de.document_id = $2
ORDER BY de.ord;
`
