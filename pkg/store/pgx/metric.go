package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/casegraph/backend/pkg/common"
)

// ReplaceMetrics swaps the owner's snapshot set atomically. Readers
// never observe a half-written snapshot.
func (s *Storage) ReplaceMetrics(ctx context.Context, owner common.Owner, snapshots []common.MetricsSnapshot) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearMetricsSQL, owner); err != nil {
			return err
		}
		for _, m := range snapshots {
			if _, err := tx.Exec(ctx, insertMetricSQL, m.Owner, m.EntityID, m.Metric, m.Value, m.CalculatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) ListMetrics(ctx context.Context, owner common.Owner) ([]common.MetricsSnapshot, error) {
	rows, err := s.conn.Query(ctx, listMetricsSQL, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]common.MetricsSnapshot, 0)
	for rows.Next() {
		var m common.MetricsSnapshot
		if err := rows.Scan(&m.Owner, &m.EntityID, &m.Metric, &m.Value, &m.CalculatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, m)
	}
	return snapshots, rows.Err()
}

func (s *Storage) SaveAnalysis(ctx context.Context, res common.AnalysisResult) error {
	_, err := s.conn.Exec(ctx, saveAnalysisSQL,
		res.Owner, res.DocumentID, res.Kind, res.Content, res.CreatedAt,
	)
	return err
}

func (s *Storage) ListAnalyses(ctx context.Context, owner common.Owner, documentID string) ([]common.AnalysisResult, error) {
	rows, err := s.conn.Query(ctx, listAnalysesSQL, owner, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]common.AnalysisResult, 0)
	for rows.Next() {
		var r common.AnalysisResult
		if err := rows.Scan(&r.Owner, &r.DocumentID, &r.Kind, &r.Content, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

const clearMetricsSQL = `
DELETE FROM metrics
WHERE owner = $1;
`

const insertMetricSQL = `
INSERT INTO metrics (owner, entity_id, metric_type, value, calculated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (owner, entity_id, metric_type) DO UPDATE
SET value = EXCLUDED.value, calculated_at = EXCLUDED.calculated_at;
`

const listMetricsSQL = `
SELECT owner, entity_id, metric_type, value, calculated_at
FROM metrics
WHERE owner = $1
ORDER BY entity_id, metric_type;
`

const saveAnalysisSQL = `
INSERT INTO analyses (owner, document_id, kind, content, created_at)
VALUES ($1, $2, $3, $4, $5);
`

const listAnalysesSQL = `
SELECT owner, document_id, kind, content, created_at
FROM analyses
WHERE owner = $1 AND document_id = $2
ORDER BY created_at;
`
