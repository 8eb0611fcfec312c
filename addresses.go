package voble

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/decred/dcrd/crypto/blake256"
)

// Program identifiers on the base ledger.
const (
	VobleProgramID      = "VobLeWrdGa111111111111111111111111111111111"
	DelegationProgramID = "DELeGGvXpWV2fqJUhqcF5ZSYMS4JTLjteaAMARRSaeSh"
	PermissionProgramID = "ACLseoPoyC3cBqoUtkbjZ4aDrkurZW86v19pXz2XQnp1"
)

// Account role seeds. These match the program's seed constants; changing
// any of them changes every derived address.
const (
	SeedUserProfile       = "user_profile"
	SeedSession           = "session"
	SeedTargetWord        = "target_word"
	SeedGlobalConfig      = "global_config"
	SeedLeaderboard       = "leaderboard"
	SeedWinnerEntitlement = "winner_entitlement"
	SeedDailyPrizeVault   = "daily_prize_vault"
	SeedWeeklyPrizeVault  = "weekly_prize_vault"
	SeedMonthlyPrizeVault = "monthly_prize_vault"
	SeedPlatformVault     = "platform_vault"
	SeedLuckyDrawVault    = "lucky_draw_vault"
	SeedVobleVault        = "voble_vault"
	SeedPermission        = "permission"
	SeedEventAuthority    = "__event_authority"
)

// addrTag domain-separates address derivation from every other blake256
// use in this codebase.
var addrTag = blake256.Sum256([]byte("voble/addr/v0"))

var addrCache = struct {
	sync.RWMutex
	m map[string]string
}{m: make(map[string]string)}

// ResolveAddress derives the deterministic account address for the given
// program and ordered seeds. The derivation is a pure function of its
// inputs: identical calls always return the identical address, and the
// length-prefixed seed framing prevents collisions between different seed
// splits of the same bytes. Results are memoized.
func ResolveAddress(programID string, seeds ...[]byte) string {
	var key strings.Builder
	key.WriteString(programID)
	for _, s := range seeds {
		key.WriteByte('|')
		key.Write(s)
	}
	k := key.String()

	addrCache.RLock()
	cached, ok := addrCache.m[k]
	addrCache.RUnlock()
	if ok {
		return cached
	}

	h := blake256.New()
	h.Write(addrTag[:])
	h.Write([]byte(programID))
	for _, s := range seeds {
		// Length-prefix each seed so (ab, c) and (a, bc) never collide.
		h.Write([]byte{byte(len(s) >> 8), byte(len(s))})
		h.Write(s)
	}
	addr := hex.EncodeToString(h.Sum(nil))

	addrCache.Lock()
	addrCache.m[k] = addr
	addrCache.Unlock()
	return addr
}

// UserProfileAddress returns the durable profile account for a player.
func UserProfileAddress(player string) string {
	return ResolveAddress(VobleProgramID, []byte(SeedUserProfile), []byte(player))
}

// SessionAddress returns the per-player session account held on the rollup.
func SessionAddress(player string) string {
	return ResolveAddress(VobleProgramID, []byte(SeedSession), []byte(player))
}

// TargetWordAddress returns the account holding the player's secret word.
func TargetWordAddress(player string) string {
	return ResolveAddress(VobleProgramID, []byte(SeedTargetWord), []byte(player))
}

// GlobalConfigAddress returns the program's singleton config account.
func GlobalConfigAddress() string {
	return ResolveAddress(VobleProgramID, []byte(SeedGlobalConfig))
}

// LeaderboardAddress returns the leaderboard account for one cadence and
// period. The cadence discriminator byte keeps same-period ids apart.
func LeaderboardAddress(periodID string, c Cadence) string {
	return ResolveAddress(VobleProgramID, []byte(SeedLeaderboard), []byte(periodID), []byte{c.Byte()})
}

// WinnerEntitlementAddress returns the prize-claim account for a winner.
func WinnerEntitlementAddress(winner string, c Cadence, periodID string) string {
	return ResolveAddress(VobleProgramID, []byte(SeedWinnerEntitlement), []byte(winner), []byte(c), []byte(periodID))
}

// PermissionAddress returns the access-control account gating the
// player's delegated session on the rollup.
func PermissionAddress(player string) string {
	return ResolveAddress(PermissionProgramID, []byte(SeedPermission), []byte(player))
}

// EventAuthorityAddress returns the program's event authority account.
func EventAuthorityAddress() string {
	return ResolveAddress(VobleProgramID, []byte(SeedEventAuthority))
}

// PrizeVaultAddress returns the prize vault for a cadence.
func PrizeVaultAddress(c Cadence) string {
	switch c {
	case CadenceWeekly:
		return ResolveAddress(VobleProgramID, []byte(SeedWeeklyPrizeVault))
	case CadenceMonthly:
		return ResolveAddress(VobleProgramID, []byte(SeedMonthlyPrizeVault))
	default:
		return ResolveAddress(VobleProgramID, []byte(SeedDailyPrizeVault))
	}
}

// VobleVaultAddress returns the activity-points vault.
func VobleVaultAddress() string {
	return ResolveAddress(VobleProgramID, []byte(SeedVobleVault))
}

// PlatformVaultAddress returns the platform fee vault.
func PlatformVaultAddress() string {
	return ResolveAddress(VobleProgramID, []byte(SeedPlatformVault))
}

// LuckyDrawVaultAddress returns the lucky-draw vault.
func LuckyDrawVaultAddress() string {
	return ResolveAddress(VobleProgramID, []byte(SeedLuckyDrawVault))
}
