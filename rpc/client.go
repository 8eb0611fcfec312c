package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/decred/slog"
)

// Ledger is the RPC contract the orchestrator depends on. The base
// ledger and the rollup both satisfy it; tests substitute fakes.
type Ledger interface {
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, tx *Transaction) (string, error)
	ConfirmTransaction(ctx context.Context, signature, commitment string) error
	SimulateTransaction(ctx context.Context, tx *Transaction) (*SimulateResult, error)
}

// WithToken appends the bearer auth token to a rollup URL.
func WithToken(baseURL, token string) string {
	return baseURL + "?token=" + url.QueryEscape(token)
}

// Client is an HTTP JSON-RPC 2.0 implementation of Ledger.
type Client struct {
	url   string
	httpc *http.Client
	log   slog.Logger
}

// New returns a client talking to the given endpoint URL.
func New(endpoint string, log slog.Logger) *Client {
	return &Client{
		url: endpoint,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http %d: %s", method, resp.StatusCode, string(raw))
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, rr.Error.Code, rr.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(rr.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.call(ctx, "getAccountInfo", []any{address}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var res struct {
		Blockhash string `json:"blockhash"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &res); err != nil {
		return "", err
	}
	return res.Blockhash, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *Transaction) (string, error) {
	var sig string
	if err := c.call(ctx, "sendTransaction", []any{tx}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

func (c *Client) ConfirmTransaction(ctx context.Context, signature, commitment string) error {
	var res struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := c.call(ctx, "confirmTransaction", []any{signature, commitment}, &res); err != nil {
		return err
	}
	if !res.Confirmed {
		return fmt.Errorf("transaction %s not confirmed at %s", signature, commitment)
	}
	return nil
}

func (c *Client) SimulateTransaction(ctx context.Context, tx *Transaction) (*SimulateResult, error) {
	var res SimulateResult
	if err := c.call(ctx, "simulateTransaction", []any{tx}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
