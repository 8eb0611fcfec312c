package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params []json.RawMessage) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string            `json:"jsonrpc"`
			ID      int               `json:"id"`
			Method  string            `json:"method"`
			Params  []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "2.0", req.JSONRPC)

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetAccountInfo(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		require.Equal(t, "getAccountInfo", method)
		var addr string
		require.NoError(t, json.Unmarshal(params[0], &addr))
		require.Equal(t, "some-address", addr)
		return AccountInfo{Exists: true, Lamports: 5, Data: []byte(`{}`)}, nil
	})
	defer srv.Close()

	c := New(srv.URL, slog.Disabled)
	info, err := c.GetAccountInfo(context.Background(), "some-address")
	require.NoError(t, err)
	require.True(t, info.Exists)
	require.Equal(t, uint64(5), info.Lamports)
}

func TestSendAndConfirm(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		switch method {
		case "getLatestBlockhash":
			return map[string]string{"blockhash": "bh-1"}, nil
		case "sendTransaction":
			return "sig-1", nil
		case "confirmTransaction":
			return map[string]bool{"confirmed": true}, nil
		}
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	})
	defer srv.Close()

	c := New(srv.URL, slog.Disabled)
	ctx := context.Background()

	bh, err := c.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	require.Equal(t, "bh-1", bh)

	sig, err := c.SendTransaction(ctx, &Transaction{})
	require.NoError(t, err)
	require.Equal(t, "sig-1", sig)

	require.NoError(t, c.ConfirmTransaction(ctx, sig, CommitmentConfirmed))
}

func TestConfirmNotConfirmed(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return map[string]bool{"confirmed": false}, nil
	})
	defer srv.Close()

	c := New(srv.URL, slog.Disabled)
	err := c.ConfirmTransaction(context.Background(), "sig-9", CommitmentConfirmed)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not confirmed")
}

func TestRPCErrorSurfaces(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32002, Message: "custom program error 6032: TicketAlreadyUsed"}
	})
	defer srv.Close()

	c := New(srv.URL, slog.Disabled)
	_, err := c.SendTransaction(context.Background(), &Transaction{})
	require.Error(t, err)
	require.True(t, IsTicketAlreadyUsed(err))
}

func TestWithToken(t *testing.T) {
	require.Equal(t, "https://r.example?token=abc%2Fdef",
		WithToken("https://r.example", "abc/def"))
}
