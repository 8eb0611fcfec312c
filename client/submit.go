package client

import (
	"context"
	"fmt"

	voble "github.com/Aspag-Labs/voble-seeker"
	"github.com/Aspag-Labs/voble-seeker/rpc"
	"github.com/Aspag-Labs/voble-seeker/wordlist"
)

func (c *VobleClient) elapsedMs() uint64 {
	c.RLock()
	start := c.startTime
	c.RUnlock()
	if start.IsZero() {
		return 0
	}
	d := c.now().Sub(start)
	if d < 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}

// SubmitGuess sends one guess to the rollup and re-reads the session
// for the authoritative grading. Invalid words are rejected locally
// before anything touches the network. When the guess ends the game
// the result is committed to the base ledger before this returns.
func (c *VobleClient) SubmitGuess(ctx context.Context, word string) error {
	word = wordlist.Normalize(word)
	if len(word) != wordlist.WordLength {
		return fmt.Errorf("guess must be %d letters", wordlist.WordLength)
	}
	if !wordlist.Valid(word) {
		return fmt.Errorf("%q is not in the word list", word)
	}

	c.Lock()
	if c.phase != PhasePlaying {
		phase := c.phase
		c.Unlock()
		return fmt.Errorf("cannot guess in phase %s", phase)
	}
	if c.submitting {
		c.Unlock()
		return fmt.Errorf("a guess is already in flight")
	}
	c.submitting = true
	prevUsed := 0
	if c.lastSession != nil {
		prevUsed = c.lastSession.GuessesUsed
	}
	c.Unlock()
	defer func() {
		c.Lock()
		c.submitting = false
		c.Unlock()
	}()

	c.transition(PhaseSubmitting)

	session, err := c.creds.SessionKey(c.Player())
	if err != nil {
		c.transition(PhasePlaying)
		return err
	}
	token, err := c.creds.AuthToken(ctx, c.wallet)
	if err != nil {
		c.transition(PhasePlaying)
		return err
	}

	player := c.Player()
	data, err := encodeIxData("submit_guess", map[string]any{
		"guess":  word,
		"timeMs": c.elapsedMs(),
	})
	if err != nil {
		c.transition(PhasePlaying)
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
	if _, err := sendSignedTx(ctx, c.rollup(token), session, []rpc.Instruction{ix}); err != nil {
		c.log.Warnf("submit guess failed: %v", err)
		if rpc.IsTransient(err) {
			c.creds.RecordAuthFailure(player)
		}
		c.transition(PhasePlaying)
		return fmt.Errorf("%s", rpc.NormalizeMessage(err))
	}
	c.creds.ResetAuthFailures(player)

	if err := sleep(ctx, c.settleDelay); err != nil {
		c.transition(PhasePlaying)
		return err
	}

	// The grading lives on the rollup, not in the send result. Re-read
	// until the new guess shows up.
	var updated *Session
	err = c.readbackPolicy.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		s, err := c.FetchSession(ctx)
		if err != nil {
			return false, err
		}
		if s == nil || !s.IsCurrent || s.GuessesUsed <= prevUsed {
			return false, nil
		}
		updated = s
		return true, nil
	})
	if err != nil {
		c.transition(PhasePlaying)
		return fmt.Errorf("guess sent but result not readable: %w", err)
	}

	c.setLastSession(updated)
	if n := len(updated.Guesses); n > 0 {
		c.ntfns.notifyGuessResult(updated.Guesses[n-1], updated)
	}

	if updated.Terminal() {
		c.transition(PhaseCompleting)
		c.CompleteGame(ctx)
		c.ntfns.notifyGameEnded(c.LastSession())
		return nil
	}
	c.transition(PhasePlaying)
	return nil
}

// CompleteGame sends the commit instruction on the rollup, gasless via
// the session key, bridging the finished session's score out to the
// three cadence leaderboards. It is best effort on the happy
// path: a simulation or send failure is logged and the client still
// reaches the result phase, since the session itself already holds
// the outcome. Safe to call again; re-invocations while a commit is
// in flight are no-ops.
func (c *VobleClient) CompleteGame(ctx context.Context) {
	c.Lock()
	if c.completing {
		c.Unlock()
		return
	}
	c.completing = true
	c.Unlock()
	defer func() {
		c.Lock()
		c.completing = false
		c.Unlock()
	}()
	defer c.transition(PhaseResult)

	session, err := c.creds.SessionKey(c.Player())
	if err != nil {
		c.log.Errorf("complete game: session key: %v", err)
		return
	}
	token, err := c.creds.AuthToken(ctx, c.wallet)
	if err != nil {
		c.log.Errorf("complete game: auth token: %v", err)
		return
	}
	ledger := c.rollup(token)

	player := c.Player()
	ids := voble.CurrentPeriodIDs(c.now())
	data, err := encodeIxData("complete_game", map[string]any{
		"dailyPeriod":   ids.Daily,
		"weeklyPeriod":  ids.Weekly,
		"monthlyPeriod": ids.Monthly,
		"timeMs":        c.elapsedMs(),
	})
	if err != nil {
		c.log.Errorf("complete game: %v", err)
		return
	}
	ix := rpc.Instruction{
		Program: voble.VobleProgramID,
		Accounts: []string{
			player,
			voble.UserProfileAddress(player),
			voble.SessionAddress(player),
			voble.LeaderboardAddress(ids.Daily, voble.CadenceDaily),
			voble.LeaderboardAddress(ids.Weekly, voble.CadenceWeekly),
			voble.LeaderboardAddress(ids.Monthly, voble.CadenceMonthly),
			voble.EventAuthorityAddress(),
		},
		Data: data,
	}

	bh, err := ledger.GetLatestBlockhash(ctx)
	if err != nil {
		c.log.Errorf("complete game: blockhash: %v", err)
		return
	}
	msg := &rpc.Message{
		FeePayer:        session.Address(),
		RecentBlockhash: bh,
		Instructions:    []rpc.Instruction{ix},
	}
	tx, err := signTx(session, msg)
	if err != nil {
		c.log.Errorf("complete game: %v", err)
		return
	}
	if res, err := ledger.SimulateTransaction(ctx, tx); err != nil {
		c.log.Warnf("complete game: simulate: %v", err)
	} else if res.Err != "" {
		c.log.Warnf("complete game: simulation reverted: %s", res.Err)
	}

	sig, err := ledger.SendTransaction(ctx, tx)
	if err != nil {
		c.log.Errorf("complete game: send: %v", err)
		return
	}
	if err := ledger.ConfirmTransaction(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		c.log.Warnf("complete game: confirm %s: %v", sig, err)
		return
	}
	c.log.Infof("score committed (tx %s)", sig)
}
