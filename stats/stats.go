// Package stats is a read-only client for the off-chain stats service:
// rendered leaderboards, per-player ranks and protocol totals. Nothing
// here is authoritative; the ledgers are.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/decred/slog"

	voble "github.com/Aspag-Labs/voble-seeker"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank     int    `json:"rank"`
	Player   string `json:"player"`
	Username string `json:"username"`
	Score    uint64 `json:"score"`
	TimeMs   uint64 `json:"timeMs"`
	Guesses  int    `json:"guesses"`
}

// Rank is a single player's standing in one period.
type Rank struct {
	Rank    int    `json:"rank"`
	Total   int    `json:"total"`
	Score   uint64 `json:"score"`
	Prize   uint64 `json:"prize"`
	Claimed bool   `json:"claimed"`
}

// ProtocolStats are the service's aggregate counters.
type ProtocolStats struct {
	TotalGames     uint64 `json:"totalGames"`
	TotalPlayers   uint64 `json:"totalPlayers"`
	TotalPrizePool uint64 `json:"totalPrizePool"`
	LuckyDrawPool  uint64 `json:"luckyDrawPool"`
}

// VaultBalances are the live prize-vault balances, in base units.
type VaultBalances struct {
	Daily     uint64 `json:"daily"`
	Weekly    uint64 `json:"weekly"`
	Monthly   uint64 `json:"monthly"`
	LuckyDraw uint64 `json:"luckyDraw"`
}

// HistoryItem is one finished game from the service's database.
type HistoryItem struct {
	ID          int64  `json:"id"`
	Player      string `json:"player"`
	PeriodID    string `json:"period_id"`
	TargetWord  string `json:"target_word"`
	Score       uint64 `json:"score"`
	GuessesUsed int    `json:"guesses_used"`
	TimeMs      uint64 `json:"time_ms"`
	IsWon       bool   `json:"is_won"`
	CreatedAt   string `json:"created_at"`
}

// PlayerStats are one player's lifetime aggregates.
type PlayerStats struct {
	Player            string  `json:"player"`
	Username          string  `json:"username"`
	TotalGames        uint64  `json:"total_games"`
	GamesWon          uint64  `json:"games_won"`
	TotalScore        uint64  `json:"total_score"`
	BestScore         uint64  `json:"best_score"`
	AverageGuesses    float64 `json:"average_guesses"`
	GuessDistribution []int   `json:"guess_distribution"`
}

// ReferralEarning is one commission credited to a referrer.
type ReferralEarning struct {
	RefereeWallet string `json:"referee_wallet"`
	Commission    uint64 `json:"referral_commission"`
	CreatedAt     string `json:"created_at"`
}

// ReferralStats are one wallet's referral code and earnings.
type ReferralStats struct {
	Code             string            `json:"code"`
	ReferralLink     string            `json:"referralLink"`
	ReferralCount    int               `json:"referralCount"`
	ClaimableAmount  uint64            `json:"claimableAmount"`
	LifetimeEarnings uint64            `json:"lifetimeEarnings"`
	LastClaimedAt    string            `json:"lastClaimedAt"`
	RecentEarnings   []ReferralEarning `json:"recentEarnings"`
}

// LuckyDrawWinner is one past weekly draw result.
type LuckyDrawWinner struct {
	Week    string `json:"week"`
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
	Date    string `json:"date"`
}

// Client talks to the stats HTTP API.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     slog.Logger
}

func New(baseURL string, log slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("stats %s: http %d: %s", path, res.StatusCode, b)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Leaderboard fetches the rendered leaderboard for one period.
func (c *Client) Leaderboard(ctx context.Context, cad voble.Cadence, periodID string) ([]Entry, error) {
	q := url.Values{}
	q.Set("cadence", string(cad))
	q.Set("period", periodID)
	var resp struct {
		Entries []Entry `json:"entries"`
	}
	if err := c.get(ctx, "/leaderboard", q, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// PlayerRank fetches one player's standing for one period. A nil Rank
// means the player has no entry there.
func (c *Client) PlayerRank(ctx context.Context, cad voble.Cadence, periodID, player string) (*Rank, error) {
	q := url.Values{}
	q.Set("cadence", string(cad))
	q.Set("period", periodID)
	q.Set("player", player)
	var resp struct {
		Found bool `json:"found"`
		Rank  Rank `json:"rank"`
	}
	if err := c.get(ctx, "/rank", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, nil
	}
	return &resp.Rank, nil
}

// ProtocolStats fetches the service-wide totals.
func (c *Client) ProtocolStats(ctx context.Context) (*ProtocolStats, error) {
	var out ProtocolStats
	if err := c.get(ctx, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VaultBalances fetches the live balances of the four prize vaults.
func (c *Client) VaultBalances(ctx context.Context) (*VaultBalances, error) {
	// The service nests each balance under its vault name.
	type vault struct {
		Balance uint64 `json:"balance"`
	}
	var resp struct {
		Daily     vault `json:"daily"`
		Weekly    vault `json:"weekly"`
		Monthly   vault `json:"monthly"`
		LuckyDraw vault `json:"luckyDraw"`
	}
	if err := c.get(ctx, "/vault-balances", nil, &resp); err != nil {
		return nil, err
	}
	return &VaultBalances{
		Daily:     resp.Daily.Balance,
		Weekly:    resp.Weekly.Balance,
		Monthly:   resp.Monthly.Balance,
		LuckyDraw: resp.LuckyDraw.Balance,
	}, nil
}

// GameHistory fetches a page of one player's finished games along with
// their lifetime aggregates. Stats is nil for players the service has
// never seen.
func (c *Client) GameHistory(ctx context.Context, player string, limit, offset int) ([]HistoryItem, *PlayerStats, error) {
	q := url.Values{}
	q.Set("player", player)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var resp struct {
		Games []HistoryItem `json:"games"`
		Stats *PlayerStats  `json:"stats"`
	}
	if err := c.get(ctx, "/game/history", q, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Games, resp.Stats, nil
}

// ReferralStats fetches one wallet's referral code and commissions.
func (c *Client) ReferralStats(ctx context.Context, wallet string) (*ReferralStats, error) {
	q := url.Values{}
	q.Set("wallet", wallet)
	var out ReferralStats
	if err := c.get(ctx, "/referral/stats", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LuckyDrawWinners fetches the recent weekly draw results.
func (c *Client) LuckyDrawWinners(ctx context.Context) ([]LuckyDrawWinner, error) {
	var resp struct {
		Winners []LuckyDrawWinner `json:"winners"`
	}
	if err := c.get(ctx, "/lucky-draw/winners", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Winners, nil
}
