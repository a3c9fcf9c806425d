package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jere1233/LingerNote-F/internal/domain/queue"
	"github.com/jere1233/LingerNote-F/internal/infrastructure/monitor"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

// memQueueRepo is an in-memory FIFO queue.Repository.
type memQueueRepo struct {
	mu      sync.Mutex
	entries []*queue.QueuedRequest
}

func (m *memQueueRepo) Append(_ context.Context, req *queue.QueuedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memQueueRepo) Head(context.Context) (*queue.QueuedRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil, apperrors.ErrNotFound
	}
	cp := *m.entries[0]
	return &cp, nil
}

func (m *memQueueRepo) Update(_ context.Context, req *queue.QueuedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == req.ID {
			cp := *req
			m.entries[i] = &cp
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *memQueueRepo) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memQueueRepo) Size(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *memQueueRepo) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// scriptedTransport replays requests against a per-call script. A script
// entry of nil means success.
type scriptedTransport struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]int // endpoint -> remaining failures
}

func (s *scriptedTransport) Do(_ context.Context, _, endpoint string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, endpoint)
	if s.fail[endpoint] > 0 {
		s.fail[endpoint]--
		return apperrors.ErrNetworkUnreachable
	}
	return nil
}

func (s *scriptedTransport) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestQueue(repo queue.Repository) *QueueService {
	return NewQueueService(repo, testConfig().Queue, logger.Nop())
}

func TestEnqueueDrainsImmediatelyWhenOnline(t *testing.T) {
	repo := &memQueueRepo{}
	transport := &scriptedTransport{}
	svc := newTestQueue(repo)
	svc.SetTransport(transport)

	if err := svc.Enqueue(context.Background(), "/notes", "POST", []byte(`{"text":"hi"}`)); err != nil {
		t.Fatal(err)
	}

	if n, _ := svc.Size(context.Background()); n != 0 {
		t.Errorf("queue size = %d after online enqueue, want 0", n)
	}
	if got := transport.callLog(); len(got) != 1 || got[0] != "/notes" {
		t.Errorf("calls = %v, want [/notes]", got)
	}
}

func TestDrainPreservesFIFOOrder(t *testing.T) {
	repo := &memQueueRepo{}
	transport := &scriptedTransport{}
	svc := newTestQueue(repo)

	// No transport yet: everything queues up.
	for _, ep := range []string{"/a", "/b", "/c"} {
		if err := svc.Enqueue(context.Background(), ep, "POST", nil); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := svc.Size(context.Background()); n != 3 {
		t.Fatalf("queue size = %d, want 3", n)
	}

	svc.SetTransport(transport)
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"/a", "/b", "/c"}
	got := transport.callLog()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestDrainStopsOnHeadFailure(t *testing.T) {
	repo := &memQueueRepo{}
	transport := &scriptedTransport{fail: map[string]int{"/a": 1}}
	svc := newTestQueue(repo)

	for _, ep := range []string{"/a", "/b"} {
		if err := svc.Enqueue(context.Background(), ep, "POST", nil); err != nil {
			t.Fatal(err)
		}
	}
	svc.SetTransport(transport)

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}

	// The failed head keeps its place; /b must not jump it.
	if got := transport.callLog(); len(got) != 1 || got[0] != "/a" {
		t.Fatalf("calls = %v, want one attempt on /a", got)
	}
	if n, _ := svc.Size(context.Background()); n != 2 {
		t.Errorf("queue size = %d, want 2", n)
	}

	head, err := repo.Head(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if head.Endpoint != "/a" || head.RetryCount != 1 {
		t.Errorf("head = %s retries=%d, want /a retries=1", head.Endpoint, head.RetryCount)
	}

	// The transient fault clears; the next drain replays in order.
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n, _ := svc.Size(context.Background()); n != 0 {
		t.Errorf("queue size = %d after recovery, want 0", n)
	}
}

func TestDrainDropsExhaustedHead(t *testing.T) {
	repo := &memQueueRepo{}
	transport := &scriptedTransport{fail: map[string]int{"/doomed": 10}}
	svc := newTestQueue(repo)

	for _, ep := range []string{"/doomed", "/fine"} {
		if err := svc.Enqueue(context.Background(), ep, "POST", nil); err != nil {
			t.Fatal(err)
		}
	}
	svc.SetTransport(transport)

	// Three drains exhaust the head's retry budget.
	for i := 0; i < 3; i++ {
		if err := svc.Drain(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	// The third failure hits MaxRetries: the head is dropped and the drain
	// continues with the next entry.
	if n, _ := svc.Size(context.Background()); n != 0 {
		t.Fatalf("queue size = %d, want 0 after drop and drain", n)
	}
	calls := transport.callLog()
	if calls[len(calls)-1] != "/fine" {
		t.Errorf("last call = %s, want /fine", calls[len(calls)-1])
	}
}

func TestDrainWithoutTransportIsNoop(t *testing.T) {
	repo := &memQueueRepo{}
	svc := newTestQueue(repo)

	if err := svc.Enqueue(context.Background(), "/a", "POST", nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n, _ := svc.Size(context.Background()); n != 1 {
		t.Errorf("queue size = %d, want 1", n)
	}
}

func TestReconnectTriggersDrain(t *testing.T) {
	repo := &memQueueRepo{}
	transport := &scriptedTransport{}
	svc := newTestQueue(repo)
	svc.SetTransport(transport)

	mon := monitor.NewNetworkMonitor()
	unsubscribe := svc.BindNetwork(mon)
	defer unsubscribe()

	mon.SetStatus(monitor.NetworkStatus{Connected: false})
	if err := svc.Enqueue(context.Background(), "/offline", "POST", nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := svc.Size(context.Background()); n != 1 {
		t.Fatalf("queue size = %d while offline, want 1", n)
	}

	mon.SetStatus(monitor.NetworkStatus{Connected: true, InternetReachable: true})

	deadline := time.After(2 * time.Second)
	for {
		if n, _ := svc.Size(context.Background()); n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("queue never drained after reconnect")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := transport.callLog(); len(got) != 1 || got[0] != "/offline" {
		t.Errorf("calls = %v, want [/offline]", got)
	}
}
