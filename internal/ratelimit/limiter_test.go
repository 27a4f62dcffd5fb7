package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestCooldownWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewCooldown(clock, 10*time.Second, nil)

	require.True(t, l.Allow("user-1", "draft_create"))
	require.False(t, l.Allow("user-1", "draft_create"))

	clock.Advance(9 * time.Second)
	require.False(t, l.Allow("user-1", "draft_create"))

	clock.Advance(time.Second)
	require.True(t, l.Allow("user-1", "draft_create"))
}

func TestCooldownKeysAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewCooldown(clock, 10*time.Second, nil)

	require.True(t, l.Allow("user-1", "draft_create"))
	require.True(t, l.Allow("user-2", "draft_create"))
	require.True(t, l.Allow("user-1", "trade_propose"))
	require.False(t, l.Allow("user-1", "draft_create"))
}

func TestCooldownPerActionOverrides(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewCooldown(clock, 10*time.Second, map[string]time.Duration{
		"trade_propose": 2 * time.Second,
		"read":          0,
	})

	require.True(t, l.Allow("user-1", "trade_propose"))
	clock.Advance(2 * time.Second)
	require.True(t, l.Allow("user-1", "trade_propose"))

	// A zero override disables throttling for that action.
	require.True(t, l.Allow("user-1", "read"))
	require.True(t, l.Allow("user-1", "read"))
}

func TestCooldownZeroWindowAllowsAll(t *testing.T) {
	l := NewCooldown(clockwork.NewFakeClock(), 0, nil)
	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("user-1", "anything"))
	}
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	require.True(t, l.Allow("user-1", "draft_create"))
	require.True(t, l.Allow("user-1", "draft_create"))
}
