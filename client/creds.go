package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/slog"
)

// AuthTokenData is a rollup access token together with its expiry.
type AuthTokenData struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token is past (or within a minute of)
// its expiry at the given instant.
func (t *AuthTokenData) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt.Add(-time.Minute))
}

// AuthEndpoint is the rollup's attestation gateway. Integrity
// verification precedes the challenge and response exchange that
// yields an access token.
type AuthEndpoint interface {
	VerifyIntegrity(ctx context.Context) error
	Challenge(ctx context.Context, wallet string) ([]byte, error)
	Token(ctx context.Context, wallet string, sig []byte) (*AuthTokenData, error)
}

// RotatePolicy controls session key rotation. A zero RotateAfter means
// keys are never rotated.
type RotatePolicy struct {
	RotateAfter time.Duration
}

// authFailureThreshold is the number of consecutive auth-looking
// failures after which a cached token is presumed stale and evicted.
const authFailureThreshold = 2

type sessionKeyRecord struct {
	Priv      string    `json:"priv"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionKey struct {
	priv *secp256k1.PrivateKey
	addr string
}

func (k *sessionKey) Address() string { return k.addr }

func (k *sessionKey) SignMessage(msg []byte) ([]byte, error) {
	return signMessage(k.priv, msg)
}

// CredentialManager owns the ephemeral rollup credentials for each
// wallet: a persisted fee-payer session key and a cached access token.
// It is safe for concurrent use.
type CredentialManager struct {
	mu     sync.Mutex
	log    slog.Logger
	kv     KV
	auth   AuthEndpoint
	rotate RotatePolicy
	now    func() time.Time

	keys     map[string]*sessionKey
	tokens   map[string]*AuthTokenData
	failures map[string]int
}

func NewCredentialManager(log slog.Logger, kv KV, auth AuthEndpoint,
	rotate RotatePolicy, now func() time.Time) *CredentialManager {

	return &CredentialManager{
		log:      log,
		kv:       kv,
		auth:     auth,
		rotate:   rotate,
		now:      now,
		keys:     make(map[string]*sessionKey),
		tokens:   make(map[string]*AuthTokenData),
		failures: make(map[string]int),
	}
}

// sessionKeyStoreKey uses the full wallet address so no two wallets can
// ever map onto the same persisted key.
func sessionKeyStoreKey(wallet string) string {
	return "session_key_" + wallet
}

// SessionKey returns the persisted session key for the wallet,
// generating a new one on first use or when the rotation policy says
// the stored one is too old.
func (cm *CredentialManager) SessionKey(wallet string) (Signer, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if k, ok := cm.keys[wallet]; ok {
		return k, nil
	}

	storeKey := sessionKeyStoreKey(wallet)
	raw, ok, err := cm.kv.Get(storeKey)
	if err != nil {
		return nil, err
	}
	if ok {
		var rec sessionKeyRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			stale := cm.rotate.RotateAfter > 0 &&
				cm.now().Sub(rec.CreatedAt) > cm.rotate.RotateAfter
			if !stale {
				b, err := hex.DecodeString(rec.Priv)
				if err == nil && len(b) == 32 {
					priv := secp256k1.PrivKeyFromBytes(b)
					k := &sessionKey{
						priv: priv,
						addr: hex.EncodeToString(priv.PubKey().SerializeCompressed()),
					}
					cm.keys[wallet] = k
					return k, nil
				}
			}
			if stale {
				cm.log.Infof("rotating session key for wallet %s", abbrevAddr(wallet))
			}
		}
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	rec := sessionKeyRecord{
		Priv:      hex.EncodeToString(priv.Serialize()),
		CreatedAt: cm.now(),
	}
	recb, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := cm.kv.Set(storeKey, recb); err != nil {
		return nil, fmt.Errorf("persist session key: %w", err)
	}
	k := &sessionKey{
		priv: priv,
		addr: hex.EncodeToString(priv.PubKey().SerializeCompressed()),
	}
	cm.keys[wallet] = k
	cm.log.Infof("generated session key %s for wallet %s",
		abbrevAddr(k.addr), abbrevAddr(wallet))
	return k, nil
}

// AuthToken returns a valid rollup access token for the wallet,
// running the integrity check and challenge exchange when no cached
// token exists or the cached one expired.
func (cm *CredentialManager) AuthToken(ctx context.Context, wallet Signer) (string, error) {
	addr := wallet.Address()

	cm.mu.Lock()
	if t, ok := cm.tokens[addr]; ok && !t.Expired(cm.now()) {
		cm.mu.Unlock()
		return t.Token, nil
	}
	cm.mu.Unlock()

	if err := cm.auth.VerifyIntegrity(ctx); err != nil {
		return "", fmt.Errorf("integrity check: %w", err)
	}
	chal, err := cm.auth.Challenge(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("auth challenge: %w", err)
	}
	sig, err := wallet.SignMessage(chal)
	if err != nil {
		return "", fmt.Errorf("sign challenge: %w", err)
	}
	tok, err := cm.auth.Token(ctx, addr, sig)
	if err != nil {
		return "", fmt.Errorf("auth token: %w", err)
	}

	cm.mu.Lock()
	cm.tokens[addr] = tok
	cm.failures[addr] = 0
	cm.mu.Unlock()
	cm.log.Debugf("obtained rollup token for wallet %s", abbrevAddr(addr))
	return tok.Token, nil
}

// RecordAuthFailure notes an auth-looking failure against the wallet's
// cached token. At the threshold the token is evicted so the next call
// re-authenticates.
func (cm *CredentialManager) RecordAuthFailure(wallet string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.failures[wallet]++
	if cm.failures[wallet] >= authFailureThreshold {
		delete(cm.tokens, wallet)
		cm.failures[wallet] = 0
		cm.log.Warnf("evicted cached rollup token for wallet %s after repeated failures",
			abbrevAddr(wallet))
	}
}

// ResetAuthFailures clears the failure count after a successful rollup
// call.
func (cm *CredentialManager) ResetAuthFailures(wallet string) {
	cm.mu.Lock()
	cm.failures[wallet] = 0
	cm.mu.Unlock()
}

func abbrevAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}

// HTTPAuthEndpoint talks to the gateway's HTTP auth API.
type HTTPAuthEndpoint struct {
	baseURL string
	httpc   *http.Client
}

func NewHTTPAuthEndpoint(baseURL string) *HTTPAuthEndpoint {
	return &HTTPAuthEndpoint{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *HTTPAuthEndpoint) post(ctx context.Context, path string, body, resp any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := e.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("auth endpoint %s: http %d: %s", path,
			res.StatusCode, bytes.TrimSpace(b))
	}
	if resp == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(resp)
}

func (e *HTTPAuthEndpoint) VerifyIntegrity(ctx context.Context) error {
	return e.post(ctx, "/auth/integrity", nil, nil)
}

func (e *HTTPAuthEndpoint) Challenge(ctx context.Context, wallet string) ([]byte, error) {
	var resp struct {
		Challenge string `json:"challenge"`
	}
	err := e.post(ctx, "/auth/challenge",
		map[string]string{"wallet": wallet}, &resp)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(resp.Challenge)
	if err != nil {
		return nil, fmt.Errorf("malformed challenge: %w", err)
	}
	return b, nil
}

func (e *HTTPAuthEndpoint) Token(ctx context.Context, wallet string, sig []byte) (*AuthTokenData, error) {
	var resp AuthTokenData
	err := e.post(ctx, "/auth/token", map[string]string{
		"wallet":    wallet,
		"signature": hex.EncodeToString(sig),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("auth endpoint returned empty token")
	}
	return &resp, nil
}
