package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	voble "github.com/Aspag-Labs/voble-seeker"
	"github.com/Aspag-Labs/voble-seeker/rpc"
)

func startTimeStoreKey(periodID string) string {
	return "start_time_" + periodID
}

func (c *VobleClient) stampStartTime(t time.Time) {
	c.Lock()
	c.startTime = t
	c.Unlock()
	key := startTimeStoreKey(c.PeriodID())
	val := strconv.FormatInt(t.UnixMilli(), 10)
	if err := c.kv.Set(key, []byte(val)); err != nil {
		c.log.Warnf("persist start time: %v", err)
	}
	c.notifyUpdated()
}

func (c *VobleClient) storedStartTime() (time.Time, bool) {
	raw, ok, err := c.kv.Get(startTimeStoreKey(c.PeriodID()))
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (c *VobleClient) buyTicketIx() (rpc.Instruction, error) {
	player := c.Player()
	data, err := encodeIxData("buy_ticket", map[string]string{
		"period": c.PeriodID(),
	})
	if err != nil {
		return rpc.Instruction{}, err
	}
	return rpc.Instruction{
		Program: voble.VobleProgramID,
		Accounts: []string{
			player,
			voble.UserProfileAddress(player),
			voble.GlobalConfigAddress(),
			voble.SessionAddress(player),
			voble.TargetWordAddress(player),
			voble.VobleVaultAddress(),
			voble.PlatformVaultAddress(),
			voble.LuckyDrawVaultAddress(),
			voble.PermissionAddress(player),
			voble.DelegationProgramID,
		},
		Data: data,
	}, nil
}

func (c *VobleClient) resetIx() (rpc.Instruction, error) {
	player := c.Player()
	data, err := encodeIxData("reset_game", map[string]string{
		"period": c.PeriodID(),
	})
	if err != nil {
		return rpc.Instruction{}, err
	}
	return rpc.Instruction{
		Program: voble.VobleProgramID,
		Accounts: []string{
			player,
			voble.SessionAddress(player),
			voble.TargetWordAddress(player),
			voble.EventAuthorityAddress(),
		},
		Data: data,
	}, nil
}

// checkLeaderboards verifies the daily, weekly and monthly leaderboard
// accounts for the current instant exist on the base ledger. A missing
// one means the operator has not rolled the period over yet and a
// purchase would be wasted.
func (c *VobleClient) checkLeaderboards(ctx context.Context) error {
	ids := voble.CurrentPeriodIDs(c.now())
	probes := []struct {
		cad    voble.Cadence
		period string
	}{
		{voble.CadenceDaily, ids.Daily},
		{voble.CadenceWeekly, ids.Weekly},
		{voble.CadenceMonthly, ids.Monthly},
	}
	var missing []string
	for _, p := range probes {
		info, err := c.base.GetAccountInfo(ctx, voble.LeaderboardAddress(p.period, p.cad))
		if err != nil {
			return fmt.Errorf("leaderboard probe %s: %w", p.cad, err)
		}
		if info == nil || !info.Exists {
			missing = append(missing, fmt.Sprintf("%s (%s)", p.cad, p.period))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("leaderboards not initialized: %s", strings.Join(missing, ", "))
	}
	return nil
}

// preflightReset simulates the reset transaction on the rollup before
// any money moves. A transport failure aborts the start; a revert
// inside the program is expected (the ticket is not bought yet) and is
// tolerated.
func (c *VobleClient) preflightReset(ctx context.Context, session Signer, token string) error {
	ledger := c.rollup(token)
	bh, err := ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("game server unavailable: %w", err)
	}
	ix, err := c.resetIx()
	if err != nil {
		return err
	}
	msg := &rpc.Message{
		FeePayer:        session.Address(),
		RecentBlockhash: bh,
		Instructions:    []rpc.Instruction{ix},
	}
	tx, err := signTx(session, msg)
	if err != nil {
		return err
	}
	res, err := ledger.SimulateTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("game server unavailable: %w", err)
	}
	if res.Err != "" && !rpc.IsProgramRevert(res) {
		return fmt.Errorf("game server unavailable: simulation failed: %s", res.Err)
	}
	if res.Err != "" {
		c.log.Debugf("preflight reset reverted in-program (expected pre-purchase): %s", res.Err)
	}
	return nil
}

// sendReset drives the reset instruction on the rollup under the given
// policy. Every attempt uses a fresh blockhash. The program's
// "ticket already used" revert counts as success: the reset it asks
// for already happened.
func (c *VobleClient) sendReset(ctx context.Context, session Signer, token string,
	policy RetryPolicy) error {

	ledger := c.rollup(token)
	return policy.Do(ctx, func(ctx context.Context) error {
		ix, err := c.resetIx()
		if err != nil {
			return err
		}
		_, err = sendSignedTx(ctx, ledger, session, []rpc.Instruction{ix})
		if err != nil {
			if rpc.IsTicketAlreadyUsed(err) {
				c.log.Debugf("reset reports ticket already used, treating as done")
				return nil
			}
			c.log.Warnf("reset attempt failed: %v", err)
			return err
		}
		return nil
	})
}

// waitForCurrentSession polls the rollup until the session account
// shows a fresh game for the current period.
func (c *VobleClient) waitForCurrentSession(ctx context.Context, policy RetryPolicy) (*Session, error) {
	var got *Session
	err := policy.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		s, err := c.FetchSession(ctx)
		if err != nil {
			c.log.Debugf("session poll: %v", err)
			return false, err
		}
		if s == nil || !s.IsCurrent || s.Completed {
			return false, nil
		}
		got = s
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("session did not sync: %w", err)
	}
	return got, nil
}

// StartGame runs the paid entry saga: preflight checks, base-ledger
// ticket purchase, rollup session reset and synchronization. On
// success the client is in the playing phase with a stamped start
// time. A failure after purchase leaves TicketPurchased set so the
// player knows recovery will not charge again.
func (c *VobleClient) StartGame(ctx context.Context) error {
	if !c.transitionFrom(PhaseIdle, PhasePreflight) {
		return fmt.Errorf("game start already in progress (phase %s)", c.Phase())
	}
	c.log.Infof("starting game for period %s", c.PeriodID())

	session, err := c.creds.SessionKey(c.Player())
	if err != nil {
		c.fail(fmt.Errorf("session key: %w", err))
		return err
	}
	token, err := c.creds.AuthToken(ctx, c.wallet)
	if err != nil {
		c.fail(err)
		return err
	}

	if err := c.checkLeaderboards(ctx); err != nil {
		c.fail(err)
		return err
	}
	if err := c.preflightReset(ctx, session, token); err != nil {
		c.fail(err)
		return err
	}

	// Money moves here. Everything after this point must be safe to
	// retry without a second charge.
	c.transition(PhaseBuying)
	ix, err := c.buyTicketIx()
	if err != nil {
		c.fail(err)
		return err
	}
	sig, err := sendSignedTx(ctx, c.base, c.wallet, []rpc.Instruction{ix})
	if err != nil {
		c.fail(fmt.Errorf("buy ticket: %w", err))
		return err
	}
	c.setTicketPurchased(true)
	c.log.Infof("ticket purchased (tx %s)", sig)

	c.transition(PhaseResetting)
	if err := c.sendReset(ctx, session, token, c.resetPolicy); err != nil {
		err = fmt.Errorf("reset after purchase: %w", err)
		c.fail(err)
		return err
	}
	c.setVRFCompleted(true)

	c.transition(PhaseSyncing)
	s, err := c.waitForCurrentSession(ctx, c.syncPolicy)
	if err != nil {
		c.fail(err)
		return err
	}
	c.setLastSession(s)

	if err := sleep(ctx, c.settleDelay); err != nil {
		c.fail(err)
		return err
	}
	c.stampStartTime(c.now())
	c.transition(PhasePlaying)
	c.log.Infof("game started, %d guesses available", MaxGuesses)
	return nil
}

// Resume inspects the ledgers on startup and moves the client out of
// idle when an attempt is already underway: straight to playing for a
// live session, to result for a finished one, or through the recovery
// protocol when a paid ticket has no matching live session. Recovery
// never buys anything.
func (c *VobleClient) Resume(ctx context.Context) error {
	if c.Phase() != PhaseIdle {
		return nil
	}

	profile, err := c.FetchProfile(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	s, err := c.FetchSession(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	if s != nil && s.IsCurrent && s.Completed {
		if !c.transitionFrom(PhaseIdle, PhaseResult) {
			return nil
		}
		c.setLastSession(s)
		c.log.Infof("resumed into finished game (solved=%v)", s.IsSolved)
		return nil
	}

	if s != nil && s.IsCurrent {
		if !c.transitionFrom(PhaseIdle, PhasePlaying) {
			return nil
		}
		c.setLastSession(s)
		start, ok := c.storedStartTime()
		if !ok {
			start = c.now().Add(-time.Duration(s.TimeMs) * time.Millisecond)
		}
		c.stampStartTime(start)
		c.log.Infof("resumed live game with %d guesses used", s.GuessesUsed)
		return nil
	}

	paid := profile != nil && profile.LastPaidPeriod == c.PeriodID()
	if !paid {
		return nil
	}

	// Ticket paid for today but no live session: the delegation or
	// reset never landed. Run the one-shot recovery.
	if !c.transitionFrom(PhaseIdle, PhaseRecovering) {
		return nil
	}
	c.setTicketPurchased(true)
	c.log.Warnf("paid ticket for %s has no live session, recovering", c.PeriodID())

	err = c.recover(ctx)
	if err != nil {
		err = fmt.Errorf("could not recover your paid game: %w", err)
		c.fail(err)
		return err
	}
	return nil
}

func (c *VobleClient) recover(ctx context.Context) error {
	session, err := c.creds.SessionKey(c.Player())
	if err != nil {
		return err
	}
	token, err := c.creds.AuthToken(ctx, c.wallet)
	if err != nil {
		return err
	}
	if err := c.sendReset(ctx, session, token, c.recoverPolicy); err != nil {
		return err
	}
	if err := sleep(ctx, c.recoverSettle); err != nil {
		return err
	}
	s, err := c.waitForCurrentSession(ctx, c.syncPolicy)
	if err != nil {
		return err
	}
	c.setLastSession(s)
	c.setVRFCompleted(true)
	c.stampStartTime(c.now())
	c.transition(PhasePlaying)
	c.log.Infof("recovery complete, game is live")
	return nil
}
