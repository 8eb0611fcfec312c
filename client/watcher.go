package client

import (
	"context"
	"sync"
	"time"

	"github.com/decred/slog"
)

// SessionUpdate is one observed change of the rollup session account.
type SessionUpdate struct {
	Session *Session
	// Gone is true when a previously seen session account disappeared.
	Gone bool
}

// SessionWatcher polls the rollup session account and fans out changes
// to subscribers. The rollup has no push notifications, so polling is
// the only way to observe guesses confirmed from elsewhere.
type SessionWatcher struct {
	c        *VobleClient
	log      slog.Logger
	interval time.Duration

	mu   sync.Mutex
	subs map[chan SessionUpdate]struct{}

	lastUsed int
	lastSeen bool
	lastDone bool
	quit     chan struct{}
	quitOnce sync.Once
}

func NewSessionWatcher(c *VobleClient, log slog.Logger, interval time.Duration) *SessionWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SessionWatcher{
		c:        c,
		log:      log,
		interval: interval,
		subs:     make(map[chan SessionUpdate]struct{}),
		lastUsed: -1,
		quit:     make(chan struct{}),
	}
}

// Subscribe registers for session updates. The returned func removes
// the subscription.
func (w *SessionWatcher) Subscribe() (<-chan SessionUpdate, func()) {
	ch := make(chan SessionUpdate, 8)
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()
	return ch, func() {
		w.mu.Lock()
		delete(w.subs, ch)
		w.mu.Unlock()
	}
}

func (w *SessionWatcher) broadcast(u SessionUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- u:
		default:
			// Slow subscriber, drop.
		}
	}
}

func (w *SessionWatcher) poll(ctx context.Context) {
	s, err := w.c.FetchSession(ctx)
	if err != nil {
		w.log.Debugf("session watch: %v", err)
		return
	}
	if s == nil {
		if w.lastSeen {
			w.lastSeen = false
			w.lastUsed = -1
			w.lastDone = false
			w.broadcast(SessionUpdate{Gone: true})
		}
		return
	}
	changed := !w.lastSeen || s.GuessesUsed != w.lastUsed || s.Completed != w.lastDone
	w.lastSeen = true
	w.lastUsed = s.GuessesUsed
	w.lastDone = s.Completed
	if changed {
		w.c.setLastSession(s)
		w.c.notifyUpdated()
		w.broadcast(SessionUpdate{Session: s})
	}
}

// Run polls until ctx ends or Stop is called.
func (w *SessionWatcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.quit:
			return nil
		case <-t.C:
			w.poll(ctx)
		}
	}
}

func (w *SessionWatcher) Stop() {
	w.quitOnce.Do(func() { close(w.quit) })
}
