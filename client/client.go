// Package client drives a complete Voble attempt from the player's side:
// buying entry on the base ledger, delegating the session to the rollup,
// submitting guesses and committing the result. There is no server-side
// coordinator; consistency across the two ledgers comes from idempotent
// retries and authoritative re-reads.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"

	voble "github.com/Aspag-Labs/voble-seeker"
	"github.com/Aspag-Labs/voble-seeker/rpc"
)

// UpdatedMsg is posted on UpdatesCh whenever observable state changed.
type UpdatedMsg struct{}

// Config carries everything a VobleClient needs. Log is required; the
// remaining collaborators default to production implementations and are
// swappable for tests.
type Config struct {
	DataDir    string
	BaseRPCURL string
	RollupURL  string

	// PeriodID pins the client to a specific daily period. Empty means
	// "whatever the period clock says now".
	PeriodID string

	Log           slog.Logger
	Notifications *NotificationManager

	// KV overrides the durable store (defaults to a FileStore under
	// DataDir).
	KV KV
	// Base overrides the base ledger RPC client.
	Base rpc.Ledger
	// RollupDial builds a rollup RPC client for a given auth token.
	RollupDial func(token string) rpc.Ledger
	// Auth overrides the rollup auth endpoint.
	Auth AuthEndpoint
	// Rotate sets the ephemeral key rotation policy.
	Rotate RotatePolicy
	// Now overrides the clock.
	Now func() time.Time
}

// VobleClient owns the session orchestration state machine. It is the
// sole writer of the game phase; everything external is observed by
// re-reading the two ledgers.
type VobleClient struct {
	sync.RWMutex

	log   slog.Logger
	ntfns *NotificationManager

	kv     KV
	wallet *Wallet
	creds  *CredentialManager

	base       rpc.Ledger
	rollupDial func(token string) rpc.Ledger

	now      func() time.Time
	periodID string

	phase           GamePhase
	errMsg          string
	startTime       time.Time
	ticketPurchased bool
	vrfCompleted    bool
	submitting      bool
	completing      bool

	lastSession *Session

	resetPolicy    RetryPolicy
	recoverPolicy  RetryPolicy
	syncPolicy     RetryPolicy
	readbackPolicy RetryPolicy
	settleDelay    time.Duration
	recoverSettle  time.Duration

	UpdatesCh chan tea.Msg
	ErrorsCh  chan error
}

// New builds a VobleClient from cfg. The wallet key and ephemeral
// credential are loaded (or created) from the durable store.
func New(cfg *Config) (*VobleClient, error) {
	if cfg.Log == nil {
		return nil, fmt.Errorf("client must have logger")
	}

	kv := cfg.KV
	if kv == nil {
		fs, err := NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		kv = fs
	}

	wallet, err := LoadWallet(kv)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	auth := cfg.Auth
	if auth == nil {
		auth = NewHTTPAuthEndpoint(cfg.RollupURL)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	base := cfg.Base
	if base == nil {
		base = rpc.New(cfg.BaseRPCURL, cfg.Log)
	}
	rollupDial := cfg.RollupDial
	if rollupDial == nil {
		rollupDial = func(token string) rpc.Ledger {
			return rpc.New(rpc.WithToken(cfg.RollupURL, token), cfg.Log)
		}
	}

	ntfns := cfg.Notifications
	if ntfns == nil {
		ntfns = NewNotificationManager()
	}

	c := &VobleClient{
		log:        cfg.Log,
		ntfns:      ntfns,
		kv:         kv,
		wallet:     wallet,
		creds:      NewCredentialManager(cfg.Log, kv, auth, cfg.Rotate, now),
		base:       base,
		rollupDial: rollupDial,
		now:        now,
		periodID:   cfg.PeriodID,

		phase: PhaseIdle,

		resetPolicy:    RetryPolicy{MaxAttempts: 5, Delay: FixedDelay(2 * time.Second)},
		recoverPolicy:  RetryPolicy{MaxAttempts: 5, Delay: FixedDelay(3 * time.Second)},
		syncPolicy:     RetryPolicy{MaxAttempts: 12, Delay: CappedLinear(time.Second, 5*time.Second)},
		readbackPolicy: RetryPolicy{MaxAttempts: 3, Delay: FixedDelay(time.Second)},
		settleDelay:    500 * time.Millisecond,
		recoverSettle:  2 * time.Second,

		UpdatesCh: make(chan tea.Msg, 64),
		ErrorsCh:  make(chan error, 8),
	}
	return c, nil
}

// Wallet returns the player's own signing capability.
func (c *VobleClient) Wallet() *Wallet { return c.wallet }

// Player returns the player's public key.
func (c *VobleClient) Player() string { return c.wallet.Address() }

// PeriodID returns the daily period this client is playing.
func (c *VobleClient) PeriodID() string {
	if c.periodID != "" {
		return c.periodID
	}
	return voble.DayPeriodID(c.now())
}

// StartTime returns the stamped start of the current attempt, or the
// zero time if none has been stamped.
func (c *VobleClient) StartTime() time.Time {
	c.RLock()
	defer c.RUnlock()
	return c.startTime
}

// LastSession returns the most recently observed session snapshot.
func (c *VobleClient) LastSession() *Session {
	c.RLock()
	defer c.RUnlock()
	return c.lastSession
}

func (c *VobleClient) setLastSession(s *Session) {
	c.Lock()
	c.lastSession = s
	c.Unlock()
}

func (c *VobleClient) notifyUpdated() {
	select {
	case c.UpdatesCh <- UpdatedMsg{}:
	default:
		// Drop if the receiver is slow.
	}
}

func (c *VobleClient) postError(err error) {
	select {
	case c.ErrorsCh <- err:
	default:
	}
}

func (c *VobleClient) rollup(token string) rpc.Ledger {
	return c.rollupDial(token)
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
