package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jere1233/LingerNote-F/internal/domain/queue"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
)

// QueueRepository persists the offline request queue in SQLite. FIFO order
// comes from the autoincrement sequence, so it survives restarts.
type QueueRepository struct {
	db *DB
}

var _ queue.Repository = (*QueueRepository)(nil)

// NewQueueRepository creates a SQLite-backed queue repository.
func NewQueueRepository(db *DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Append implements queue.Repository.
func (r *QueueRepository) Append(ctx context.Context, req *queue.QueuedRequest) error {
	_, err := r.db.db.ExecContext(ctx,
		`INSERT INTO request_queue (id, endpoint, method, payload, enqueued_at, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID, req.Endpoint, req.Method, req.Payload, req.EnqueuedAt.UnixMilli(), req.RetryCount,
	)
	if err != nil {
		return storageErr(err, "append request")
	}
	return nil
}

// Head implements queue.Repository.
func (r *QueueRepository) Head(ctx context.Context) (*queue.QueuedRequest, error) {
	var (
		req        queue.QueuedRequest
		enqueuedMs int64
	)
	err := r.db.db.QueryRowContext(ctx,
		`SELECT id, endpoint, method, payload, enqueued_at, retry_count
		 FROM request_queue ORDER BY seq LIMIT 1`,
	).Scan(&req.ID, &req.Endpoint, &req.Method, &req.Payload, &enqueuedMs, &req.RetryCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storageErr(err, "read head")
	}
	req.EnqueuedAt = time.UnixMilli(enqueuedMs).UTC()
	return &req, nil
}

// Update implements queue.Repository.
func (r *QueueRepository) Update(ctx context.Context, req *queue.QueuedRequest) error {
	res, err := r.db.db.ExecContext(ctx,
		`UPDATE request_queue SET retry_count = ? WHERE id = ?`,
		req.RetryCount, req.ID,
	)
	if err != nil {
		return storageErr(err, "update request")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Remove implements queue.Repository.
func (r *QueueRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.db.ExecContext(ctx,
		`DELETE FROM request_queue WHERE id = ?`, id,
	); err != nil {
		return storageErr(err, "remove request")
	}
	return nil
}

// Size implements queue.Repository.
func (r *QueueRepository) Size(ctx context.Context) (int, error) {
	var n int
	if err := r.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_queue`,
	).Scan(&n); err != nil {
		return 0, storageErr(err, "count queue")
	}
	return n, nil
}

// Clear implements queue.Repository.
func (r *QueueRepository) Clear(ctx context.Context) error {
	if _, err := r.db.db.ExecContext(ctx, `DELETE FROM request_queue`); err != nil {
		return storageErr(err, "clear queue")
	}
	return nil
}
