package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/casegraph/backend/pkg/common"
)

func (s *Storage) ListNodes(ctx context.Context, owner common.Owner) ([]common.GraphNode, error) {
	rows, err := s.conn.Query(ctx, listNodesSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := make([]common.GraphNode, 0)
	for rows.Next() {
		var n common.GraphNode
		if err := rows.Scan(&n.EntityID, &n.Owner, &n.Label, &n.Type, &n.DocumentCount); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Storage) ListEdges(ctx context.Context, owner common.Owner) ([]common.GraphEdge, error) {
	rows, err := s.conn.Query(ctx, listEdgesSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]common.GraphEdge, 0)
	for rows.Next() {
		var e common.GraphEdge
		e.Owner = owner
		if err := rows.Scan(&e.A, &e.B, &e.Weight); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Storage) ListEdgeDocuments(ctx context.Context, owner common.Owner) ([]common.EdgeDocuments, error) {
	rows, err := s.conn.Query(ctx, listEdgeDocumentsSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]common.EdgeDocuments, 0)
	for rows.Next() {
		var e common.EdgeDocuments
		e.Owner = owner
		if err := rows.Scan(&e.A, &e.B, &e.Documents); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Storage) ListNodeDocuments(ctx context.Context, owner common.Owner) (map[string][]string, error) {
	rows, err := s.conn.Query(ctx, listNodeDocumentsSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var entityID string
		var docs []string
		if err := rows.Scan(&entityID, &docs); err != nil {
			return nil, err
		}
		result[entityID] = docs
	}
	return result, rows.Err()
}

func (s *Storage) AddNodeDocument(ctx context.Context, node common.GraphNode, documentID string) (bool, error) {
	var added bool
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertNodeDocumentSQL, node.Owner, node.EntityID, documentID)
		if err != nil {
			return err
		}
		added = tag.RowsAffected() > 0
		inc := 0
		if added {
			inc = 1
		}
		_, err = tx.Exec(ctx, upsertNodeSQL, node.EntityID, node.Owner, node.Label, node.Type, inc)
		return err
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (s *Storage) AddEdgeDocument(ctx context.Context, owner common.Owner, a, b, documentID string) (bool, error) {
	a, b = common.EdgeKey(a, b)
	tag, err := s.conn.Exec(ctx, insertEdgeDocumentSQL, owner, a, b, documentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyMerge applies a merge plan in a single transaction. Either every
// part lands or none does.
func (s *Storage) ApplyMerge(ctx context.Context, plan common.MergePlan) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, id := range plan.RemoveEntityIDs {
			if _, err := tx.Exec(ctx, remapDocumentEntitySQL, plan.Owner, id, plan.PrimaryID); err != nil {
				return err
			}
			// Rows the remap skipped because the primary was already
			// present for the document are dropped here.
			if _, err := tx.Exec(ctx, dropDocumentEntitySQL, plan.Owner, id); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, deleteEntitySQL, plan.Owner, id); err != nil {
				return err
			}
		}
		for _, a := range plan.Aliases {
			if _, err := tx.Exec(ctx, mergeAliasSQL, a.Owner, a.CanonicalEntityID, a.AliasText, a.SimilarityScore, a.MergedAt); err != nil {
				return err
			}
		}
		for _, pair := range plan.RemoveEdges {
			a, b := common.EdgeKey(pair[0], pair[1])
			if _, err := tx.Exec(ctx, deleteEdgeDocumentsSQL, plan.Owner, a, b); err != nil {
				return err
			}
		}
		for _, e := range plan.UpsertEdges {
			for _, doc := range e.Documents {
				if _, err := tx.Exec(ctx, insertEdgeDocumentSQL, plan.Owner, e.A, e.B, doc); err != nil {
					return err
				}
			}
		}
		for _, id := range plan.RemoveNodeIDs {
			if _, err := tx.Exec(ctx, deleteNodeDocumentsSQL, plan.Owner, id); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, deleteNodeSQL, plan.Owner, id); err != nil {
				return err
			}
		}
		if plan.PrimaryNode != nil {
			n := plan.PrimaryNode
			if _, err := tx.Exec(ctx, replaceNodeSQL, n.EntityID, n.Owner, n.Label, n.Type, n.DocumentCount); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, deleteNodeDocumentsSQL, plan.Owner, n.EntityID); err != nil {
				return err
			}
			for _, doc := range plan.PrimaryNodeDocs {
				if _, err := tx.Exec(ctx, insertNodeDocumentSQL, plan.Owner, n.EntityID, doc); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

const listNodesSQL = `
SELECT entity_id, owner, label, type, document_count
FROM graph_nodes
WHERE owner = $1
ORDER BY entity_id;
`

const listEdgesSQL = `
SELECT a, b, count(*)::int AS weight
FROM edge_documents
WHERE owner = $1
GROUP BY a, b
ORDER BY a, b;
`

const listEdgeDocumentsSQL = `
SELECT a, b, array_agg(document_id ORDER BY document_id)
FROM edge_documents
WHERE owner = $1
GROUP BY a, b
ORDER BY a, b;
`

const listNodeDocumentsSQL = `
SELECT entity_id, array_agg(document_id ORDER BY document_id)
FROM node_documents
WHERE owner = $1
GROUP BY entity_id;
`

const insertNodeDocumentSQL = `
INSERT INTO node_documents (owner, entity_id, document_id)
VALUES ($1, $2, $3)
ON CONFLICT (owner, entity_id, document_id) DO NOTHING;
`

const upsertNodeSQL = `
INSERT INTO graph_nodes (entity_id, owner, label, type, document_count)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (owner, entity_id) DO UPDATE
SET label          = EXCLUDED.label,
    type           = EXCLUDED.type,
    document_count = graph_nodes.document_count + $5;
`

const replaceNodeSQL = `
INSERT INTO graph_nodes (entity_id, owner, label, type, document_count)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (owner, entity_id) DO UPDATE
SET label          = EXCLUDED.label,
    type           = EXCLUDED.type,
    document_count = EXCLUDED.document_count;
`

const deleteNodeSQL = `
DELETE FROM graph_nodes
WHERE owner = $1 AND entity_id = $2;
`

const deleteNodeDocumentsSQL = `
DELETE FROM node_documents
WHERE owner = $1 AND entity_id = $2;
`

const insertEdgeDocumentSQL = `
INSERT INTO edge_documents (owner, a, b, document_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (owner, a, b, document_id) DO NOTHING;
`

const deleteEdgeDocumentsSQL = `
DELETE FROM edge_documents
WHERE owner = $1 AND a = $2 AND b = $3;
`

const remapDocumentEntitySQL = `
UPDATE document_entities de
SET entity_id = $3
WHERE de.owner = $1 AND de.entity_id = $2
  AND NOT EXISTS (
    SELECT 1 FROM document_entities d2
    WHERE d2.owner = de.owner AND d2.document_id = de.document_id AND d2.entity_id = $3
  );
`

const dropDocumentEntitySQL = `
DELETE FROM document_entities
WHERE owner = $1 AND entity_id = $2;
`

const deleteEntitySQL = `
DELETE FROM entities
WHERE owner = $1 AND id = $2;
`

const mergeAliasSQL = `
INSERT INTO aliases (owner, canonical_entity_id, alias_text, similarity_score, merged_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (owner, alias_text) DO UPDATE
SET canonical_entity_id = EXCLUDED.canonical_entity_id,
    similarity_score    = EXCLUDED.similarity_score,
    merged_at           = EXCLUDED.merged_at;
`
