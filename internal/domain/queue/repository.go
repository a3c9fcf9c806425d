package queue

import "context"

// Repository is the durable, ordered storage for queued requests. Order is
// strictly FIFO by insertion; implementations survive process restarts.
// An empty queue reports errors.ErrNotFound from Head.
type Repository interface {
	// Append adds a request to the tail of the queue.
	Append(ctx context.Context, req *QueuedRequest) error

	// Head returns the oldest request without removing it.
	Head(ctx context.Context) (*QueuedRequest, error)

	// Update persists a changed retry count for an existing entry.
	Update(ctx context.Context, req *QueuedRequest) error

	// Remove deletes the entry with the given id.
	Remove(ctx context.Context, id string) error

	// Size returns the number of pending entries.
	Size(ctx context.Context) (int, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}
