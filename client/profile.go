package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/crypto/blake256"

	voble "github.com/Aspag-Labs/voble-seeker"
	"github.com/Aspag-Labs/voble-seeker/rpc"
)

// UserProfile is the decoded base-ledger profile account.
type UserProfile struct {
	Username       string `json:"username"`
	GamesPlayed    uint32 `json:"gamesPlayed"`
	GamesWon       uint32 `json:"gamesWon"`
	TotalScore     uint64 `json:"totalScore"`
	ActivityPoints uint64 `json:"activityPoints"`

	// LastPaidPeriod is the daily period of the most recent ticket
	// purchase. It is what recovery keys on.
	LastPaidPeriod string `json:"lastPaidPeriod"`
}

// encodeIxData builds instruction data: an 8-byte method discriminator
// followed by JSON-encoded arguments.
func encodeIxData(name string, args any) ([]byte, error) {
	disc := blake256.Sum256([]byte("voble/ix/" + name))
	out := make([]byte, 8, 8+64)
	copy(out, disc[:8])
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// sendSignedTx gets a fresh blockhash from the ledger, signs the
// instructions with the given signer as fee payer, sends and confirms.
func sendSignedTx(ctx context.Context, ledger rpc.Ledger, signer Signer,
	ixs []rpc.Instruction) (string, error) {

	bh, err := ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("blockhash: %w", err)
	}
	msg := &rpc.Message{
		FeePayer:        signer.Address(),
		RecentBlockhash: bh,
		Instructions:    ixs,
	}
	tx, err := signTx(signer, msg)
	if err != nil {
		return "", err
	}
	sig, err := ledger.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	if err := ledger.ConfirmTransaction(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		return "", fmt.Errorf("confirm %s: %w", sig, err)
	}
	return sig, nil
}

func decodeProfile(data []byte) (*UserProfile, error) {
	data = bytes.TrimRight(data, "\x00")
	var p UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("malformed profile account: %w", err)
	}
	return &p, nil
}

// FetchProfile reads the player's profile from the base ledger. A nil
// profile with a nil error means no profile account exists yet.
func (c *VobleClient) FetchProfile(ctx context.Context) (*UserProfile, error) {
	info, err := c.base.GetAccountInfo(ctx, voble.UserProfileAddress(c.Player()))
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if info == nil || !info.Exists {
		return nil, nil
	}
	return decodeProfile(info.Data)
}

// InitializeProfile creates the player's profile account on the base
// ledger. Idempotent in effect: an already-existing profile surfaces as
// the account-in-use vocabulary error and can be ignored by callers
// that re-read.
func (c *VobleClient) InitializeProfile(ctx context.Context, username string) error {
	player := c.Player()
	data, err := encodeIxData("initialize_user_profile", map[string]string{
		"username": username,
	})
	if err != nil {
		return err
	}
	ix := rpc.Instruction{
		Program: voble.VobleProgramID,
		Accounts: []string{
			player,
			voble.UserProfileAddress(player),
			voble.GlobalConfigAddress(),
		},
		Data: data,
	}
	sig, err := sendSignedTx(ctx, c.base, c.wallet, []rpc.Instruction{ix})
	if err != nil {
		return fmt.Errorf("initialize profile: %w", err)
	}
	c.log.Infof("initialized profile for %s (tx %s)", abbrevAddr(player), sig)
	return nil
}

// TradeActivityPoints spends accumulated activity points.
func (c *VobleClient) TradeActivityPoints(ctx context.Context, points uint64) error {
	player := c.Player()
	data, err := encodeIxData("trade_activity_points", map[string]uint64{
		"points": points,
	})
	if err != nil {
		return err
	}
	ix := rpc.Instruction{
		Program: voble.VobleProgramID,
		Accounts: []string{
			player,
			voble.UserProfileAddress(player),
			voble.VobleVaultAddress(),
		},
		Data: data,
	}
	sig, err := sendSignedTx(ctx, c.base, c.wallet, []rpc.Instruction{ix})
	if err != nil {
		return fmt.Errorf("trade activity points: %w", err)
	}
	c.log.Infof("traded %d activity points (tx %s)", points, sig)
	return nil
}

// ClaimPrize claims the player's winner entitlement for a period.
func (c *VobleClient) ClaimPrize(ctx context.Context, cad voble.Cadence, periodID string) error {
	player := c.Player()
	data, err := encodeIxData("claim_prize", map[string]string{
		"cadence": string(cad),
		"period":  periodID,
	})
	if err != nil {
		return err
	}
	ix := rpc.Instruction{
		Program: voble.VobleProgramID,
		Accounts: []string{
			player,
			voble.WinnerEntitlementAddress(player, cad, periodID),
			voble.PrizeVaultAddress(cad),
			voble.LeaderboardAddress(periodID, cad),
		},
		Data: data,
	}
	sig, err := sendSignedTx(ctx, c.base, c.wallet, []rpc.Instruction{ix})
	if err != nil {
		return fmt.Errorf("claim %s prize for %s: %w", cad, periodID, err)
	}
	c.log.Infof("claimed %s prize for %s (tx %s)", cad, periodID, sig)
	return nil
}

// CloseAccounts closes the player's finished session and target word
// accounts, reclaiming their rent to the wallet.
func (c *VobleClient) CloseAccounts(ctx context.Context) error {
	player := c.Player()
	data, err := encodeIxData("close_accounts", nil)
	if err != nil {
		return err
	}
	ix := rpc.Instruction{
		Program: voble.VobleProgramID,
		Accounts: []string{
			player,
			voble.SessionAddress(player),
			voble.TargetWordAddress(player),
		},
		Data: data,
	}
	sig, err := sendSignedTx(ctx, c.base, c.wallet, []rpc.Instruction{ix})
	if err != nil {
		return fmt.Errorf("close accounts: %w", err)
	}
	c.log.Infof("closed session accounts (tx %s)", sig)
	return nil
}
