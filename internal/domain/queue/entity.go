package queue

import (
	"time"

	"github.com/google/uuid"
)

// MaxRetries is how many replay attempts a queued request gets before it is
// dropped rather than blocking the queue forever.
const MaxRetries = 3

// QueuedRequest is a durably persisted mutating call awaiting replay.
type QueuedRequest struct {
	ID         string
	Endpoint   string
	Method     string
	Payload    []byte
	EnqueuedAt time.Time
	RetryCount int
}

// NewQueuedRequest creates a queue entry for the given call.
func NewQueuedRequest(endpoint, method string, payload []byte) *QueuedRequest {
	return &QueuedRequest{
		ID:         uuid.New().String(),
		Endpoint:   endpoint,
		Method:     method,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Exhausted reports whether the entry has used up its retry budget.
func (r *QueuedRequest) Exhausted(maxRetries int) bool {
	return r.RetryCount >= maxRetries
}
