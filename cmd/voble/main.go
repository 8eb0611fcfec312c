package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vctt94/bisonbotkit/logging"
	"golang.org/x/sync/errgroup"

	"github.com/Aspag-Labs/voble-seeker/client"
	"github.com/Aspag-Labs/voble-seeker/stats"
)

var (
	datadir      = flag.String("datadir", "", "Directory to load config file from")
	flagBaseRPC  = flag.String("baserpc", "", "Base ledger RPC URL")
	flagRollup   = flag.String("rollup", "", "Rollup RPC URL")
	flagStatsURL = flag.String("statsurl", "", "Stats service base URL")
	flagUsername = flag.String("username", "", "Username for profile initialization")
)

func realMain() error {
	flag.Parse()

	appCfg, err := client.LoadAppConfig(*datadir, client.ConfigOverrides{
		BaseRPCURL: *flagBaseRPC,
		RollupURL:  *flagRollup,
		StatsURL:   *flagStatsURL,
		Username:   *flagUsername,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	useStdout := false
	lb, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:        filepath.Join(appCfg.DataDir, "logs", "voble.log"),
		DebugLevel:     appCfg.Cfg.Debug,
		MaxLogFiles:    10,
		MaxBufferLines: 1000,
		UseStdout:      &useStdout,
	})
	if err != nil {
		return err
	}
	log := lb.Logger("VOBL")

	ntfns := client.NewNotificationManager()
	vc, err := client.New(&client.Config{
		DataDir:       appCfg.DataDir,
		BaseRPCURL:    appCfg.BaseRPCURL,
		RollupURL:     appCfg.RollupURL,
		Log:           log,
		Notifications: ntfns,
	})
	if err != nil {
		return fmt.Errorf("failed to create voble client: %v", err)
	}

	as := newAppstate(ctx, cancel, vc,
		stats.New(appCfg.StatsURL, log), log, lb, appCfg.Username)

	ntfns.RegisterPhaseChanged(func(from, to client.GamePhase) {
		as.setNotification(fmt.Sprintf("phase: %s", to))
	})
	ntfns.RegisterGameError(func(msg string) {
		as.setNotification("error: " + msg)
	})
	ntfns.RegisterGuessResult(func(g client.Guess, s *client.Session) {
		as.setNotification(fmt.Sprintf("guess %d/%d graded",
			s.GuessesUsed, client.MaxGuesses))
	})
	ntfns.RegisterGameEnded(func(s *client.Session) {
		if s != nil && s.IsSolved {
			as.setNotification(fmt.Sprintf("solved! the word was %s", s.RevealedWord))
		} else if s != nil {
			as.setNotification(fmt.Sprintf("out of guesses, the word was %s", s.RevealedWord))
		}
	})

	log.Infof("voble client starting, player %s, period %s",
		vc.Player(), vc.PeriodID())

	if err := vc.Resume(gctx); err != nil {
		log.Warnf("resume: %v", err)
	}

	watcher := client.NewSessionWatcher(vc, log, 0)
	g.Go(func() error { return watcher.Run(gctx) })
	defer watcher.Stop()

	p := tea.NewProgram(as)

	// Forward client events into the UI loop.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg := <-vc.UpdatesCh:
				p.Send(msg)
			case err := <-vc.ErrorsCh:
				log.Errorf("client error: %v", err)
				p.Send(client.UpdatedMsg{})
			}
		}
	})

	if _, err := p.Run(); err != nil {
		return err
	}
	cancel()
	return g.Wait()
}

func main() {
	err := realMain()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
