package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	voble "github.com/Aspag-Labs/voble-seeker"
)

// MaxGuesses is the number of guesses a session grants.
const MaxGuesses = 7

// LetterResult grades a single letter of a guess.
type LetterResult uint8

const (
	LetterAbsent  LetterResult = 0
	LetterPresent LetterResult = 1
	LetterCorrect LetterResult = 2
)

func (r LetterResult) String() string {
	switch r {
	case LetterAbsent:
		return "absent"
	case LetterPresent:
		return "present"
	case LetterCorrect:
		return "correct"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// Guess is one graded guess.
type Guess struct {
	Word   string
	Result []LetterResult
}

// Session is the decoded rollup session account. RevealedWord is only
// populated once the session completed.
type Session struct {
	Player       string
	PeriodID     string
	Guesses      []Guess
	GuessesUsed  int
	IsSolved     bool
	TimeMs       uint64
	Score        uint64
	Completed    bool
	RevealedWord string

	// IsCurrent reports whether the session belongs to the period the
	// client is playing.
	IsCurrent bool
}

// Terminal reports whether no further guesses are possible.
func (s *Session) Terminal() bool {
	return s.IsSolved || s.GuessesUsed >= MaxGuesses
}

// sessionAccount is the on-rollup wire form of a session.
type sessionAccount struct {
	Player     string   `json:"player"`
	PeriodID   string   `json:"periodId"`
	Guesses    []string `json:"guesses"`
	Results    [][]int  `json:"results"`
	IsSolved   bool     `json:"isSolved"`
	TimeMs     uint64   `json:"timeMs"`
	Score      uint64   `json:"score"`
	Completed  bool     `json:"completed"`
	TargetWord string   `json:"targetWord"`
}

// trimPad strips the NUL or space padding fixed-width account string
// fields carry.
func trimPad(s string) string {
	return strings.TrimRight(s, "\x00 ")
}

func decodeSession(data []byte, currentPeriod string) (*Session, error) {
	// Fixed-size account data is NUL padded.
	data = bytes.TrimRight(data, "\x00")

	var acc sessionAccount
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("malformed session account: %w", err)
	}
	if len(acc.Guesses) != len(acc.Results) {
		return nil, fmt.Errorf("malformed session account: %d guesses but %d results",
			len(acc.Guesses), len(acc.Results))
	}

	s := &Session{
		Player:      acc.Player,
		PeriodID:    trimPad(acc.PeriodID),
		GuessesUsed: len(acc.Guesses),
		IsSolved:    acc.IsSolved,
		TimeMs:      acc.TimeMs,
		Score:       acc.Score,
		Completed:   acc.Completed,
	}
	s.IsCurrent = s.PeriodID == currentPeriod
	for i, w := range acc.Guesses {
		res := make([]LetterResult, len(acc.Results[i]))
		for j, v := range acc.Results[i] {
			res[j] = LetterResult(v)
		}
		s.Guesses = append(s.Guesses, Guess{
			Word:   strings.ToLower(trimPad(w)),
			Result: res,
		})
	}
	if acc.Completed {
		s.RevealedWord = strings.ToLower(trimPad(acc.TargetWord))
	}
	return s, nil
}

// FetchSession reads the player's session from the rollup. A nil
// session with a nil error means the account does not exist.
func (c *VobleClient) FetchSession(ctx context.Context) (*Session, error) {
	player := c.Player()
	token, err := c.creds.AuthToken(ctx, c.wallet)
	if err != nil {
		return nil, err
	}
	info, err := c.rollup(token).GetAccountInfo(ctx, voble.SessionAddress(player))
	if err != nil {
		c.creds.RecordAuthFailure(player)
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	c.creds.ResetAuthFailures(player)
	if info == nil || !info.Exists {
		return nil, nil
	}
	return decodeSession(info.Data, c.PeriodID())
}
