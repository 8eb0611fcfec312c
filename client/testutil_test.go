package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/decred/slog"

	voble "github.com/Aspag-Labs/voble-seeker"
	"github.com/Aspag-Labs/voble-seeker/rpc"
)

// testNow is the fixed instant tests run at (2025-06-15 12:00 UTC+8).
var testNow = time.Date(2025, 6, 15, 4, 0, 0, 0, time.UTC)

type memStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string][]byte)}
}

func (s *memStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

type fakeAuth struct {
	mu         sync.Mutex
	integrity  int
	challenges int
	tokens     int
	tokenValue string
	err        error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{tokenValue: "tok-1"}
}

func (a *fakeAuth) VerifyIntegrity(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.integrity++
	return a.err
}

func (a *fakeAuth) Challenge(ctx context.Context, wallet string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.challenges++
	if a.err != nil {
		return nil, a.err
	}
	return []byte("challenge-" + wallet), nil
}

func (a *fakeAuth) Token(ctx context.Context, wallet string, sig []byte) (*AuthTokenData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens++
	if a.err != nil {
		return nil, a.err
	}
	return &AuthTokenData{
		Token:     a.tokenValue,
		ExpiresAt: testNow.Add(time.Hour),
	}, nil
}

// fakeLedger is a scriptable in-memory Ledger. Accounts are keyed by
// address; sendErr (when set) decides the outcome of each send by its
// 1-based ordinal.
type fakeLedger struct {
	mu       sync.Mutex
	accounts map[string][]byte

	accountErr   error
	blockhashErr error
	confirmErr   error
	simResult    *rpc.SimulateResult
	simErr       error
	sendErr      func(n int) error
	onSend       func(tx *rpc.Transaction)

	sent       []*rpc.Transaction
	blockhashN int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: make(map[string][]byte)}
}

func (l *fakeLedger) setAccount(addr string, data []byte) {
	l.mu.Lock()
	l.accounts[addr] = data
	l.mu.Unlock()
}

func (l *fakeLedger) deleteAccount(addr string) {
	l.mu.Lock()
	delete(l.accounts, addr)
	l.mu.Unlock()
}

func (l *fakeLedger) sentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

func (l *fakeLedger) GetAccountInfo(ctx context.Context, address string) (*rpc.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accountErr != nil {
		return nil, l.accountErr
	}
	data, ok := l.accounts[address]
	if !ok {
		return &rpc.AccountInfo{Exists: false}, nil
	}
	return &rpc.AccountInfo{Exists: true, Data: data, Lamports: 1}, nil
}

func (l *fakeLedger) GetLatestBlockhash(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.blockhashErr != nil {
		return "", l.blockhashErr
	}
	l.blockhashN++
	return fmt.Sprintf("blockhash-%d", l.blockhashN), nil
}

func (l *fakeLedger) SendTransaction(ctx context.Context, tx *rpc.Transaction) (string, error) {
	l.mu.Lock()
	l.sent = append(l.sent, tx)
	n := len(l.sent)
	sendErr := l.sendErr
	onSend := l.onSend
	l.mu.Unlock()
	if sendErr != nil {
		if err := sendErr(n); err != nil {
			return "", err
		}
	}
	if onSend != nil {
		onSend(tx)
	}
	return fmt.Sprintf("sig-%d", n), nil
}

func (l *fakeLedger) ConfirmTransaction(ctx context.Context, signature, commitment string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.confirmErr
}

func (l *fakeLedger) SimulateTransaction(ctx context.Context, tx *rpc.Transaction) (*rpc.SimulateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.simErr != nil {
		return nil, l.simErr
	}
	if l.simResult != nil {
		return l.simResult, nil
	}
	return &rpc.SimulateResult{}, nil
}

func encodeTestSession(t *testing.T, acc sessionAccount) []byte {
	t.Helper()
	b, err := json.Marshal(acc)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func encodeTestProfile(t *testing.T, p UserProfile) []byte {
	t.Helper()
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// newTestClient builds a client with zero retry delays and fake
// collaborators.
func newTestClient(t *testing.T, base, rollup *fakeLedger) *VobleClient {
	t.Helper()
	c, err := New(&Config{
		Log:  slog.Disabled,
		KV:   newMemStore(),
		Base: base,
		RollupDial: func(token string) rpc.Ledger {
			return rollup
		},
		Auth: newFakeAuth(),
		Now:  func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatal(err)
	}
	c.resetPolicy.Delay = nil
	c.recoverPolicy.Delay = nil
	c.syncPolicy.Delay = nil
	c.readbackPolicy.Delay = nil
	c.settleDelay = 0
	c.recoverSettle = 0
	return c
}

// seedLeaderboards creates the three leaderboard accounts the preflight
// probes expect.
func seedLeaderboards(base *fakeLedger) {
	ids := voble.CurrentPeriodIDs(testNow)
	base.setAccount(voble.LeaderboardAddress(ids.Daily, voble.CadenceDaily), []byte(`{}`))
	base.setAccount(voble.LeaderboardAddress(ids.Weekly, voble.CadenceWeekly), []byte(`{}`))
	base.setAccount(voble.LeaderboardAddress(ids.Monthly, voble.CadenceMonthly), []byte(`{}`))
}

// seedCurrentSession places a fresh, empty session for the client's
// player on the rollup.
func seedCurrentSession(t *testing.T, c *VobleClient, rollup *fakeLedger) {
	t.Helper()
	rollup.setAccount(voble.SessionAddress(c.Player()), encodeTestSession(t, sessionAccount{
		Player:   c.Player(),
		PeriodID: c.PeriodID(),
	}))
}
