package client

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"

	"github.com/Aspag-Labs/voble-seeker/rpc"
)

// Signer is a signing capability: an address plus the ability to sign a
// message. The orchestrator only ever borrows Signers; it never sees
// raw key material.
type Signer interface {
	Address() string
	SignMessage(msg []byte) ([]byte, error)
}

// msgTag domain-separates message signatures from transaction digests.
var msgTag = blake256.Sum256([]byte("voble/msg/v0"))

func signDigest(priv *secp256k1.PrivateKey, digest [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

func signMessage(priv *secp256k1.PrivateKey, msg []byte) ([]byte, error) {
	h := blake256.New()
	h.Write(msgTag[:])
	h.Write(msg)
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return signDigest(priv, digest)
}

const walletKeyStoreKey = "wallet_key"

// Wallet is the player's own key: it signs the ticket purchase on the
// base ledger and the rollup auth challenge. It never pays rollup fees;
// that is the ephemeral credential's job.
type Wallet struct {
	priv *secp256k1.PrivateKey
	addr string
}

// LoadWallet loads the wallet key from kv, generating and persisting a
// new one on first use.
func LoadWallet(kv KV) (*Wallet, error) {
	raw, ok, err := kv.Get(walletKeyStoreKey)
	if err != nil {
		return nil, err
	}
	var priv *secp256k1.PrivateKey
	if ok {
		b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("malformed stored wallet key")
		}
		priv = secp256k1.PrivKeyFromBytes(b)
	} else {
		priv, err = secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		if err := kv.Set(walletKeyStoreKey, []byte(hex.EncodeToString(priv.Serialize()))); err != nil {
			return nil, fmt.Errorf("persist wallet key: %w", err)
		}
	}
	return &Wallet{
		priv: priv,
		addr: hex.EncodeToString(priv.PubKey().SerializeCompressed()),
	}, nil
}

// Address returns the player's public key (compressed, hex).
func (w *Wallet) Address() string { return w.addr }

// SignMessage signs an arbitrary message (used for the rollup auth
// challenge).
func (w *Wallet) SignMessage(msg []byte) ([]byte, error) {
	return signMessage(w.priv, msg)
}

// signTx signs a transaction message with the given signer's key via
// its digest and returns the ready-to-send transaction.
func signTx(s Signer, msg *rpc.Message) (*rpc.Transaction, error) {
	digest, err := msg.Digest()
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	sig, err := s.SignMessage(digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return &rpc.Transaction{
		Message:    *msg,
		Signatures: []string{hex.EncodeToString(sig)},
	}, nil
}
