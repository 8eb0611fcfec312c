// Package rpc speaks the JSON-RPC surface of the base ledger and the
// rollup. Both expose the same shape; the rollup additionally supports
// transaction simulation and requires a bearer token in its URL.
package rpc

import (
	"encoding/json"

	"github.com/decred/dcrd/crypto/blake256"
)

// Commitment levels accepted by confirmTransaction.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// AccountInfo is the result of a getAccountInfo call. Exists is false
// when the address has no account.
type AccountInfo struct {
	Exists   bool   `json:"exists"`
	Owner    string `json:"owner"`
	Lamports uint64 `json:"lamports"`
	Data     []byte `json:"data"`
}

// Instruction is one program invocation inside a transaction.
type Instruction struct {
	Program  string   `json:"program"`
	Accounts []string `json:"accounts"`
	Data     []byte   `json:"data"`
}

// Message is the signable body of a transaction.
type Message struct {
	FeePayer        string        `json:"fee_payer"`
	RecentBlockhash string        `json:"recent_blockhash"`
	Instructions    []Instruction `json:"instructions"`
}

// Transaction is a message plus its signatures, ready to send.
type Transaction struct {
	Message    Message  `json:"message"`
	Signatures []string `json:"signatures"`
}

// SimulateResult reports the outcome of simulateTransaction. Err is empty
// on success; Logs carries the program log lines either way.
type SimulateResult struct {
	Err  string   `json:"err"`
	Logs []string `json:"logs"`
}

// txTag domain-separates transaction digests from other blake256 uses.
var txTag = blake256.Sum256([]byte("voble/tx/v0"))

// Digest returns the 32-byte signing digest of the message.
func (m *Message) Digest() ([32]byte, error) {
	var out [32]byte
	b, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	h := blake256.New()
	h.Write(txTag[:])
	h.Write(b)
	copy(out[:], h.Sum(nil))
	return out, nil
}
