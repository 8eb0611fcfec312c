package rpc

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Normalized user-facing error vocabulary. Raw transport messages are
// mapped onto these before being shown.
const (
	MsgInsufficientFunds  = "Insufficient balance for transaction"
	MsgExpiredTransaction = "Transaction expired, please try again"
	MsgAccountInUse       = "Account already exists or is in use"
	MsgSimulationFailed   = "Transaction simulation failed"
	MsgRejectedByUser     = "Transaction was rejected"
	MsgUnknown            = "Unknown error occurred"
)

// NormalizeMessage maps an arbitrary ledger/transport error onto the
// fixed user-facing vocabulary. Errors that do not match any known
// pattern keep their own message rather than collapsing to "unknown".
func NormalizeMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient lamports"),
		strings.Contains(msg, "insufficient balance"):
		return MsgInsufficientFunds
	case strings.Contains(msg, "blockhash not found"),
		strings.Contains(msg, "blockhash expired"),
		strings.Contains(msg, "transaction expired"):
		return MsgExpiredTransaction
	case strings.Contains(msg, "already in use"),
		strings.Contains(msg, "already exists"):
		return MsgAccountInUse
	case strings.Contains(msg, "simulation failed"):
		return MsgSimulationFailed
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "rejected by user"):
		return MsgRejectedByUser
	}
	if strings.TrimSpace(err.Error()) == "" {
		return MsgUnknown
	}
	return err.Error()
}

// IsTicketAlreadyUsed reports whether err is the program's
// TicketAlreadyUsed revert (custom error 6032). The reset saga treats it
// as success: the ticket's session was already re-initialized.
func IsTicketAlreadyUsed(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "TicketAlreadyUsed") || strings.Contains(msg, "6032")
}

// IsProgramRevert reports whether a simulation result failed inside the
// program rather than in transport. Program-level reverts during
// preflight are tolerated; transport failures are not.
func IsProgramRevert(res *SimulateResult) bool {
	if res == nil || res.Err == "" {
		return false
	}
	if strings.Contains(res.Err, "InstructionError") || strings.Contains(res.Err, "Custom") {
		return true
	}
	return strings.Contains(strings.Join(res.Logs, " "), "Error Code:")
}

// IsTransient reports whether err looks like a network/availability
// failure worth retrying (and worth counting against the auth breaker),
// as opposed to a program rejection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pat := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"cors",
		"failed to fetch",
		"http 502",
		"http 503",
		"http 504",
	} {
		if strings.Contains(msg, pat) {
			return true
		}
	}
	return false
}
