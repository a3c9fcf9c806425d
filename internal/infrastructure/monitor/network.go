package monitor

import "sync"

// NetworkStatus is a point-in-time view of connectivity.
type NetworkStatus struct {
	Connected         bool
	InternetReachable bool
}

// Online reports whether requests have a chance of getting through.
func (s NetworkStatus) Online() bool {
	return s.Connected && s.InternetReachable
}

// NetworkMonitor fans reachability transitions out to subscribers. The
// platform layer feeds it via SetStatus; the core never assumes a specific
// event loop.
type NetworkMonitor struct {
	mu     sync.Mutex
	status NetworkStatus
	nextID int
	subs   map[int]func(NetworkStatus)
}

// NewNetworkMonitor starts in the online state; the first platform report
// corrects it if that is wrong.
func NewNetworkMonitor() *NetworkMonitor {
	return &NetworkMonitor{
		status: NetworkStatus{Connected: true, InternetReachable: true},
		subs:   make(map[int]func(NetworkStatus)),
	}
}

// SetStatus records a new status and notifies subscribers if it changed.
func (m *NetworkMonitor) SetStatus(status NetworkStatus) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	subs := make([]func(NetworkStatus), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
}

// Status returns the current status.
func (m *NetworkMonitor) Status() NetworkStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Online reports whether the device is currently reachable.
func (m *NetworkMonitor) Online() bool {
	return m.Status().Online()
}

// Subscribe registers a callback for status transitions and returns the
// unsubscribe func.
func (m *NetworkMonitor) Subscribe(fn func(NetworkStatus)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}
