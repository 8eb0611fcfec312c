package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
	"github.com/vctt94/bisonbotkit/logging"

	voble "github.com/Aspag-Labs/voble-seeker"
	"github.com/Aspag-Labs/voble-seeker/client"
	"github.com/Aspag-Labs/voble-seeker/stats"
	"github.com/Aspag-Labs/voble-seeker/wordlist"
)

type appMode int

const (
	modeLobby appMode = iota
	modePlaying
	modeLeaderboard
	modeLogs
)

type appstate struct {
	sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	vc    *client.VobleClient
	stats *stats.Client

	log        slog.Logger
	logBackend *logging.LogBackend

	mode     appMode
	username string

	input        string
	notification string

	leaderboard []stats.Entry

	viewport    viewport.Model
	logBuffer   []string
	logViewport viewport.Model
}

func newAppstate(ctx context.Context, cancel context.CancelFunc,
	vc *client.VobleClient, sc *stats.Client, log slog.Logger,
	lb *logging.LogBackend, username string) *appstate {

	return &appstate{
		ctx:        ctx,
		cancel:     cancel,
		vc:         vc,
		stats:      sc,
		log:        log,
		logBackend: lb,
		username:   username,
		mode:       modeLobby,
	}
}

func (m *appstate) setNotification(s string) {
	m.Lock()
	m.notification = s
	m.Unlock()
}

func (m *appstate) Init() tea.Cmd {
	m.viewport = viewport.New(0, 0)
	m.logViewport = viewport.New(0, 0)
	m.logBuffer = make([]string, 0)
	return tea.EnterAltScreen
}

func (m *appstate) startGame() {
	go func() {
		if err := m.vc.StartGame(m.ctx); err != nil {
			m.log.Errorf("start game: %v", err)
		}
	}()
}

func (m *appstate) submitGuess(word string) {
	go func() {
		if err := m.vc.SubmitGuess(m.ctx, word); err != nil {
			m.setNotification(err.Error())
		}
	}()
}

func (m *appstate) fetchLeaderboard() {
	go func() {
		ctx, cancel := context.WithTimeout(m.ctx, 15*time.Second)
		defer cancel()
		entries, err := m.stats.Leaderboard(ctx, voble.CadenceDaily, m.vc.PeriodID())
		if err != nil {
			m.setNotification(fmt.Sprintf("leaderboard: %v", err))
			return
		}
		m.Lock()
		m.leaderboard = entries
		m.Unlock()
	}()
}

func (m *appstate) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Lock()
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height
		m.logViewport.Width = msg.Width
		m.logViewport.Height = msg.Height - 6
		m.Unlock()
		return m, nil
	case client.UpdatedMsg:
		if m.vc.Phase() == client.PhasePlaying && m.mode == modeLobby {
			m.mode = modePlaying
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *appstate) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.mode {
	case modeLogs:
		if key == "esc" {
			m.mode = modeLobby
			return m, nil
		}
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd

	case modeLeaderboard:
		if key == "esc" {
			m.mode = modeLobby
		}
		return m, nil

	case modePlaying:
		switch key {
		case "esc":
			m.mode = modeLobby
			return m, nil
		case "enter":
			m.Lock()
			word := m.input
			m.input = ""
			m.Unlock()
			if len(word) == wordlist.WordLength {
				m.submitGuess(word)
			} else {
				m.setNotification(fmt.Sprintf("need %d letters", wordlist.WordLength))
			}
			return m, nil
		case "backspace":
			m.Lock()
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			m.Unlock()
			return m, nil
		}
		if len(key) == 1 && key[0] >= 'a' && key[0] <= 'z' {
			m.Lock()
			if len(m.input) < wordlist.WordLength {
				m.input += key
			}
			m.Unlock()
		}
		return m, nil
	}

	// Lobby.
	switch key {
	case "s":
		if m.vc.Phase() == client.PhaseIdle {
			m.startGame()
		} else if m.vc.Phase() == client.PhasePlaying {
			m.mode = modePlaying
		}
	case "i":
		if m.username != "" {
			username := m.username
			go func() {
				if err := m.vc.InitializeProfile(m.ctx, username); err != nil {
					m.setNotification(err.Error())
				} else {
					m.setNotification("profile initialized")
				}
			}()
		} else {
			m.setNotification("set a username with --username first")
		}
	case "b":
		m.mode = modeLeaderboard
		m.fetchLeaderboard()
	case "r":
		if m.vc.Phase() == client.PhaseError {
			m.vc.Retry()
			m.setNotification("cleared, ready to start again")
		}
	case "v":
		m.mode = modeLogs
		if lines := m.logBackend.LastLogLines(100); len(lines) > 0 {
			m.logBuffer = lines
			m.logViewport.SetContent(strings.Join(lines, "\n"))
			m.logViewport.GotoBottom()
		}
	}
	return m, nil
}

// renderGuess shows a graded guess: correct letters upper case, present
// letters followed by '+', absent ones by '.'.
func renderGuess(g client.Guess) string {
	var b strings.Builder
	for i, r := range g.Word {
		mark := "."
		if i < len(g.Result) {
			switch g.Result[i] {
			case client.LetterCorrect:
				b.WriteString(strings.ToUpper(string(r)) + " ")
				continue
			case client.LetterPresent:
				mark = "+"
			}
		}
		b.WriteString(string(r) + mark)
	}
	return b.String()
}

func (m *appstate) View() string {
	m.Lock()
	defer m.Unlock()

	var b strings.Builder
	phase := m.vc.Phase()
	fmt.Fprintf(&b, "voble | period %s | phase %s\n", m.vc.PeriodID(), phase)
	if m.notification != "" {
		fmt.Fprintf(&b, "%s\n", m.notification)
	}
	b.WriteString("\n")

	switch m.mode {
	case modeLogs:
		if len(m.logBuffer) == 0 {
			b.WriteString("no logs yet\n")
		} else {
			b.WriteString(m.logViewport.View())
		}
		b.WriteString("\n[Esc] back\n")
		return b.String()

	case modeLeaderboard:
		b.WriteString("daily leaderboard\n\n")
		if len(m.leaderboard) == 0 {
			b.WriteString("  (loading or empty)\n")
		}
		for _, e := range m.leaderboard {
			name := e.Username
			if name == "" {
				name = e.Player
			}
			fmt.Fprintf(&b, "  %2d. %-20s %8d pts  %d guesses\n",
				e.Rank, name, e.Score, e.Guesses)
		}
		b.WriteString("\n[Esc] back\n")
		return b.String()

	case modePlaying:
		s := m.vc.LastSession()
		if s != nil {
			for _, g := range s.Guesses {
				fmt.Fprintf(&b, "  %s\n", renderGuess(g))
			}
			for i := s.GuessesUsed; i < client.MaxGuesses; i++ {
				b.WriteString("  _ _ _ _ _ _\n")
			}
			b.WriteString("\n")
		}
		switch phase {
		case client.PhaseSubmitting:
			b.WriteString("submitting guess...\n")
		case client.PhaseCompleting:
			b.WriteString("committing result...\n")
		case client.PhaseResult:
			if s != nil && s.IsSolved {
				fmt.Fprintf(&b, "solved in %d guesses! word: %s\n",
					s.GuessesUsed, s.RevealedWord)
			} else if s != nil {
				fmt.Fprintf(&b, "out of guesses. word: %s\n", s.RevealedWord)
			}
			b.WriteString("\n[b] leaderboard  [Esc] lobby\n")
		default:
			fmt.Fprintf(&b, "> %s\n", m.input)
			b.WriteString("\ntype a 6 letter word, [Enter] submit, [Esc] lobby\n")
		}
		return b.String()
	}

	// Lobby.
	fmt.Fprintf(&b, "player %s\n\n", m.vc.Player())
	switch phase {
	case client.PhaseIdle:
		b.WriteString("[s] start today's game  [b] leaderboard  [i] init profile  [v] logs\n")
	case client.PhaseError:
		fmt.Fprintf(&b, "error: %s\n", m.vc.Err())
		if m.vc.TicketPurchased() {
			b.WriteString("your ticket is paid, restart to recover the game\n")
		}
		b.WriteString("\n[r] reset  [v] logs\n")
	case client.PhasePlaying, client.PhaseResult:
		b.WriteString("[s] open game  [b] leaderboard  [v] logs\n")
	default:
		fmt.Fprintf(&b, "working: %s...\n", phase)
		if m.vc.TicketPurchased() {
			b.WriteString("ticket purchased\n")
		}
		if m.vc.VRFCompleted() {
			b.WriteString("word drawn\n")
		}
	}
	return b.String()
}
