package client

import "sync"

// Handlers for game events. The zero NotificationManager is not
// usable; create one with NewNotificationManager.

type OnPhaseChangedNtfn func(from, to GamePhase)
type OnGameErrorNtfn func(msg string)
type OnGuessResultNtfn func(g Guess, session *Session)
type OnGameEndedNtfn func(session *Session)

// NotificationManager fans out client events to registered handlers.
// Handlers run synchronously on the calling goroutine and must not
// block.
type NotificationManager struct {
	mu           sync.RWMutex
	phaseChanged []OnPhaseChangedNtfn
	gameError    []OnGameErrorNtfn
	guessResult  []OnGuessResultNtfn
	gameEnded    []OnGameEndedNtfn
}

func NewNotificationManager() *NotificationManager {
	return &NotificationManager{}
}

func (nm *NotificationManager) RegisterPhaseChanged(h OnPhaseChangedNtfn) {
	nm.mu.Lock()
	nm.phaseChanged = append(nm.phaseChanged, h)
	nm.mu.Unlock()
}

func (nm *NotificationManager) RegisterGameError(h OnGameErrorNtfn) {
	nm.mu.Lock()
	nm.gameError = append(nm.gameError, h)
	nm.mu.Unlock()
}

func (nm *NotificationManager) RegisterGuessResult(h OnGuessResultNtfn) {
	nm.mu.Lock()
	nm.guessResult = append(nm.guessResult, h)
	nm.mu.Unlock()
}

func (nm *NotificationManager) RegisterGameEnded(h OnGameEndedNtfn) {
	nm.mu.Lock()
	nm.gameEnded = append(nm.gameEnded, h)
	nm.mu.Unlock()
}

func (nm *NotificationManager) notifyPhaseChanged(from, to GamePhase) {
	nm.mu.RLock()
	hs := nm.phaseChanged
	nm.mu.RUnlock()
	for _, h := range hs {
		h(from, to)
	}
}

func (nm *NotificationManager) notifyError(msg string) {
	nm.mu.RLock()
	hs := nm.gameError
	nm.mu.RUnlock()
	for _, h := range hs {
		h(msg)
	}
}

func (nm *NotificationManager) notifyGuessResult(g Guess, session *Session) {
	nm.mu.RLock()
	hs := nm.guessResult
	nm.mu.RUnlock()
	for _, h := range hs {
		h(g, session)
	}
}

func (nm *NotificationManager) notifyGameEnded(session *Session) {
	nm.mu.RLock()
	hs := nm.gameEnded
	nm.mu.RUnlock()
	for _, h := range hs {
		h(session)
	}
}
