package pgx

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store"
)

func (s *Storage) CreateTask(ctx context.Context, t common.Task) error {
	_, err := s.conn.Exec(ctx, createTaskSQL,
		t.ID, t.Owner, t.Type, t.DocumentID, t.Kind, t.Status, t.AttemptCount, t.LastError,
		t.CreatedAt, nullableTime(t.CompletedAt),
	)
	return err
}

func (s *Storage) GetTask(ctx context.Context, id string) (common.Task, error) {
	t, err := scanTask(s.conn.QueryRow(ctx, getTaskSQL, id))
	if err != nil {
		return common.Task{}, mapNotFound(err)
	}
	return t, nil
}

func (s *Storage) UpdateTask(ctx context.Context, t common.Task) error {
	tag, err := s.conn.Exec(ctx, updateTaskSQL,
		t.ID, t.Status, t.AttemptCount, t.LastError, nullableTime(t.CompletedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Storage) ListDocumentTasks(ctx context.Context, owner common.Owner, documentID string) ([]common.Task, error) {
	rows, err := s.conn.Query(ctx, listDocumentTasksSQL, owner, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]common.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (common.Task, error) {
	var t common.Task
	var completedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.Owner, &t.Type, &t.DocumentID, &t.Kind, &t.Status,
		&t.AttemptCount, &t.LastError, &t.CreatedAt, &completedAt,
	)
	if err != nil {
		return common.Task{}, err
	}
	if completedAt.Valid {
		t.CompletedAt = completedAt.Time
	}
	return t, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

const createTaskSQL = `
INSERT INTO tasks (id, owner, type, document_id, kind, status, attempt_count, last_error, created_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`

const getTaskSQL = `
SELECT id, owner, type, document_id, kind, status, attempt_count, last_error, created_at, completed_at
FROM tasks
WHERE id = $1;
`

const updateTaskSQL = `
UPDATE tasks
SET status = $2, attempt_count = $3, last_error = $4, completed_at = $5
WHERE id = $1;
`

const listDocumentTasksSQL = `
SELECT id, owner, type, document_id, kind, status, attempt_count, last_error, created_at, completed_at
FROM tasks
WHERE owner = $1 AND document_id = $2
ORDER BY created_at;
`
