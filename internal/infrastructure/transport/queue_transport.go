package transport

import (
	"context"
	"encoding/json"

	"github.com/jere1233/LingerNote-F/internal/application/services"
	"github.com/jere1233/LingerNote-F/internal/domain/session"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
)

// QueueTransport replays queued mutating requests over the auth client,
// attaching whatever access token is current at send time rather than the
// one that existed when the request was queued.
type QueueTransport struct {
	client *Client
	store  session.Store
}

var _ services.ReplayTransport = (*QueueTransport)(nil)

// NewQueueTransport creates the replay transport for the request queue.
func NewQueueTransport(client *Client, store session.Store) *QueueTransport {
	return &QueueTransport{client: client, store: store}
}

// Do implements services.ReplayTransport.
func (t *QueueTransport) Do(ctx context.Context, method, endpoint string, payload []byte) error {
	accessToken, err := t.store.Get(ctx, session.KeyAccessToken)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Wrap(err, "read access token")
	}

	var body interface{}
	if len(payload) > 0 {
		body = json.RawMessage(payload)
	}
	return t.client.do(ctx, method, endpoint, body, accessToken, nil)
}
