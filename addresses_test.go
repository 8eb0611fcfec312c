package voble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlayer = "02a1b2c3d4e5f60718293a4b5c6d7e8f9002a1b2c3d4e5f60718293a4b5c6d7e8f"

func TestResolveAddressDeterministic(t *testing.T) {
	a := ResolveAddress(VobleProgramID, []byte(SeedSession), []byte(testPlayer))
	b := ResolveAddress(VobleProgramID, []byte(SeedSession), []byte(testPlayer))
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestResolveAddressVariesWithEveryInput(t *testing.T) {
	base := ResolveAddress(VobleProgramID, []byte(SeedSession), []byte(testPlayer))

	assert.NotEqual(t, base, ResolveAddress(DelegationProgramID, []byte(SeedSession), []byte(testPlayer)),
		"program id must affect the address")
	assert.NotEqual(t, base, ResolveAddress(VobleProgramID, []byte(SeedTargetWord), []byte(testPlayer)),
		"role seed must affect the address")
	assert.NotEqual(t, base, ResolveAddress(VobleProgramID, []byte(SeedSession), []byte(testPlayer+"x")),
		"player key must affect the address")
}

func TestResolveAddressSeedFraming(t *testing.T) {
	// (ab, c) and (a, bc) must not collide.
	a := ResolveAddress(VobleProgramID, []byte("ab"), []byte("c"))
	b := ResolveAddress(VobleProgramID, []byte("a"), []byte("bc"))
	assert.NotEqual(t, a, b)
}

func TestRoleAddressesDistinctPerPlayer(t *testing.T) {
	seen := map[string]string{
		"session":     SessionAddress(testPlayer),
		"target word": TargetWordAddress(testPlayer),
		"profile":     UserProfileAddress(testPlayer),
		"permission":  PermissionAddress(testPlayer),
	}
	addrs := make(map[string]bool)
	for role, addr := range seen {
		require.False(t, addrs[addr], "role %s collides with another role", role)
		addrs[addr] = true
	}
}

func TestLeaderboardAddressCadenceSeparation(t *testing.T) {
	period := "2024-05-01"
	daily := LeaderboardAddress(period, CadenceDaily)
	weekly := LeaderboardAddress(period, CadenceWeekly)
	monthly := LeaderboardAddress(period, CadenceMonthly)

	assert.NotEqual(t, daily, weekly)
	assert.NotEqual(t, daily, monthly)
	assert.NotEqual(t, weekly, monthly)

	assert.Equal(t, daily, LeaderboardAddress(period, CadenceDaily))
	assert.NotEqual(t, daily, LeaderboardAddress("2024-05-02", CadenceDaily))
}

func TestWinnerEntitlementAddress(t *testing.T) {
	a := WinnerEntitlementAddress(testPlayer, CadenceDaily, "2024-05-01")
	b := WinnerEntitlementAddress(testPlayer, CadenceWeekly, "2024-05-01")
	c := WinnerEntitlementAddress(testPlayer, CadenceDaily, "2024-05-02")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestVaultAddressesDistinct(t *testing.T) {
	vaults := []string{
		PrizeVaultAddress(CadenceDaily),
		PrizeVaultAddress(CadenceWeekly),
		PrizeVaultAddress(CadenceMonthly),
		VobleVaultAddress(),
		PlatformVaultAddress(),
		LuckyDrawVaultAddress(),
	}
	seen := make(map[string]bool)
	for _, v := range vaults {
		require.False(t, seen[v], "vault address collision: %s", v)
		seen[v] = true
	}
}
