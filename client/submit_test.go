package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	voble "github.com/Aspag-Labs/voble-seeker"
	"github.com/Aspag-Labs/voble-seeker/rpc"
)

// playingClient returns a client already in the playing phase with an
// empty current session on the rollup.
func playingClient(t *testing.T, base, rollup *fakeLedger) *VobleClient {
	t.Helper()
	c := newTestClient(t, base, rollup)
	seedCurrentSession(t, c, rollup)
	c.setLastSession(&Session{
		Player:    c.Player(),
		PeriodID:  c.PeriodID(),
		IsCurrent: true,
	})
	c.stampStartTime(testNow)
	c.transition(PhasePlaying)
	return c
}

func gradedSession(t *testing.T, c *VobleClient, words []string, solved, completed bool) []byte {
	t.Helper()
	results := make([][]int, len(words))
	for i := range words {
		results[i] = []int{0, 0, 1, 0, 0, 0}
	}
	if solved && len(results) > 0 {
		results[len(results)-1] = []int{2, 2, 2, 2, 2, 2}
	}
	acc := sessionAccount{
		Player:    c.Player(),
		PeriodID:  c.PeriodID(),
		Guesses:   words,
		Results:   results,
		IsSolved:  solved,
		Completed: completed,
		TimeMs:    42000,
	}
	if completed {
		acc.TargetWord = words[len(words)-1]
	}
	return encodeTestSession(t, acc)
}

func TestSubmitGuessRejectsInvalidWordLocally(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	err := c.SubmitGuess(context.Background(), "zzzzzz")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not in the word list")

	err = c.SubmitGuess(context.Background(), "cat")
	require.Error(t, err)
	require.Contains(t, err.Error(), "6 letters")

	// Neither attempt touched the network.
	require.Equal(t, 0, rollup.sentCount())
	require.Equal(t, PhasePlaying, c.Phase())
}

func TestSubmitGuessRejectsOutsidePlaying(t *testing.T) {
	c := newTestClient(t, newFakeLedger(), newFakeLedger())
	err := c.SubmitGuess(context.Background(), "planet")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot guess in phase idle")
}

func TestSubmitGuessHappyPath(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	rollup.onSend = func(tx *rpc.Transaction) {
		rollup.setAccount(voble.SessionAddress(c.Player()),
			gradedSession(t, c, []string{"PLANET"}, false, false))
	}

	var mu sync.Mutex
	var graded []Guess
	c.ntfns.RegisterGuessResult(func(g Guess, s *Session) {
		mu.Lock()
		graded = append(graded, g)
		mu.Unlock()
	})

	require.NoError(t, c.SubmitGuess(context.Background(), "planet"))
	require.Equal(t, PhasePlaying, c.Phase())
	require.Equal(t, 1, c.LastSession().GuessesUsed)
	require.Equal(t, 1, rollup.sentCount())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, graded, 1)
	require.Equal(t, "planet", graded[0].Word)
}

func TestSubmitGuessSendErrorReturnsToPlaying(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	rollup.sendErr = func(n int) error {
		return errors.New("insufficient funds for fee")
	}

	err := c.SubmitGuess(context.Background(), "planet")
	require.Error(t, err)
	require.Equal(t, rpc.MsgInsufficientFunds, err.Error())
	require.Equal(t, PhasePlaying, c.Phase())
	require.Equal(t, 0, c.LastSession().GuessesUsed)
}

func TestSubmitGuessWinningGuessCompletesGame(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	rollup.onSend = func(tx *rpc.Transaction) {
		rollup.setAccount(voble.SessionAddress(c.Player()),
			gradedSession(t, c, []string{"STREAM"}, true, true))
	}

	var mu sync.Mutex
	var ended *Session
	c.ntfns.RegisterGameEnded(func(s *Session) {
		mu.Lock()
		ended = s
		mu.Unlock()
	})

	require.NoError(t, c.SubmitGuess(context.Background(), "stream"))
	require.Equal(t, PhaseResult, c.Phase())

	// Guess and score commit both went through the rollup, gasless;
	// the base ledger saw nothing.
	require.Equal(t, 2, rollup.sentCount())
	require.Equal(t, 0, base.sentCount())
	for _, tx := range rollup.sent {
		require.NotEqual(t, c.Player(), tx.Message.FeePayer)
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, ended)
	require.True(t, ended.IsSolved)
	require.Equal(t, "stream", ended.RevealedWord)
}

func TestSubmitGuessExhaustionCompletesGame(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	words := []string{"PLANET", "STREAM", "WINTER", "SILVER", "ORANGE", "WONDER"}
	c.setLastSession(&Session{
		Player:      c.Player(),
		PeriodID:    c.PeriodID(),
		GuessesUsed: len(words),
		IsCurrent:   true,
	})
	rollup.onSend = func(tx *rpc.Transaction) {
		rollup.setAccount(voble.SessionAddress(c.Player()),
			gradedSession(t, c, append(words, "ABSENT"), false, true))
	}

	require.NoError(t, c.SubmitGuess(context.Background(), "absent"))
	require.Equal(t, PhaseResult, c.Phase())
	require.Equal(t, MaxGuesses, c.LastSession().GuessesUsed)
	require.False(t, c.LastSession().IsSolved)
}

func TestCompleteGameSimulationFailureStillReachesResult(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	rollup.simResult = &rpc.SimulateResult{Err: "InstructionError: [0, Custom(6010)]"}
	c.transition(PhaseCompleting)
	c.CompleteGame(context.Background())

	require.Equal(t, PhaseResult, c.Phase())
	// The commit is still attempted; the session already holds the
	// authoritative outcome either way.
	require.Equal(t, 1, rollup.sentCount())
	require.Equal(t, 0, base.sentCount())
}

func TestCompleteGameSendFailureStillReachesResult(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	rollup.sendErr = func(n int) error { return errors.New("node down") }
	c.transition(PhaseCompleting)
	c.CompleteGame(context.Background())

	require.Equal(t, PhaseResult, c.Phase())
}

func TestCompleteGameNoOpWhileInFlight(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	c.Lock()
	c.completing = true
	c.Unlock()

	c.transition(PhaseCompleting)
	c.CompleteGame(context.Background())

	// The latched invocation did nothing: no commit, no transition.
	require.Equal(t, PhaseCompleting, c.Phase())
	require.Equal(t, 0, rollup.sentCount())
	require.Equal(t, 0, base.sentCount())
}

func TestSubmitGuessRejectsConcurrentSubmit(t *testing.T) {
	base := newFakeLedger()
	rollup := newFakeLedger()
	c := playingClient(t, base, rollup)

	c.Lock()
	c.submitting = true
	c.Unlock()

	err := c.SubmitGuess(context.Background(), "planet")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already in flight")
	require.Equal(t, 0, rollup.sentCount())
}
