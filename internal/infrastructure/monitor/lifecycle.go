package monitor

import "sync"

// LifecycleEvent is an app foreground/background transition.
type LifecycleEvent int

const (
	EventForeground LifecycleEvent = iota
	EventBackground
)

func (e LifecycleEvent) String() string {
	if e == EventForeground {
		return "foreground"
	}
	return "background"
}

// AppLifecycle fans foreground/background transitions out to subscribers.
// The platform layer calls Foreground/Background; the session controller
// subscribes.
type AppLifecycle struct {
	mu         sync.Mutex
	foreground bool
	nextID     int
	subs       map[int]func(LifecycleEvent)
}

// NewAppLifecycle starts in the foreground state.
func NewAppLifecycle() *AppLifecycle {
	return &AppLifecycle{
		foreground: true,
		subs:       make(map[int]func(LifecycleEvent)),
	}
}

// Foreground reports the app resuming.
func (l *AppLifecycle) Foreground() {
	l.transition(true, EventForeground)
}

// Background reports the app being suspended.
func (l *AppLifecycle) Background() {
	l.transition(false, EventBackground)
}

// InForeground reports whether the app is currently foregrounded.
func (l *AppLifecycle) InForeground() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.foreground
}

// Subscribe registers a callback for transitions and returns the
// unsubscribe func.
func (l *AppLifecycle) Subscribe(fn func(LifecycleEvent)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *AppLifecycle) transition(foreground bool, event LifecycleEvent) {
	l.mu.Lock()
	if l.foreground == foreground {
		l.mu.Unlock()
		return
	}
	l.foreground = foreground
	subs := make([]func(LifecycleEvent), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
}
