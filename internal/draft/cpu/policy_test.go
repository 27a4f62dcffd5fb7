package cpu

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftday/mockdraft/internal/models"
)

func pool(n int) []models.Player {
	players := make([]models.Player, 0, n)
	for i := 1; i <= n; i++ {
		pos := models.PosWR
		if i%2 == 0 {
			pos = models.PosQB
		}
		players = append(players, models.Player{
			ID:            fmt.Sprintf("p%d", i),
			Name:          fmt.Sprintf("Player %d", i),
			Position:      pos,
			ConsensusRank: i,
		})
	}
	return players
}

func TestSelectPlayerEmptyPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := SelectPlayer(rng, nil, nil, DefaultWeights())
	require.Error(t, err)
}

func TestSelectPlayerNeedsOverride(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// p2 is the best QB and sits inside the window; a QB need should land on
	// it regardless of the random draw.
	for i := 0; i < 50; i++ {
		got, err := SelectPlayer(rng, pool(20), []models.Position{models.PosQB}, DefaultWeights())
		require.NoError(t, err)
		require.Equal(t, "p2", got.ID)
	}
}

func TestSelectPlayerNeedOutsideWindowIgnored(t *testing.T) {
	players := pool(20)
	// Make every windowed player a WR so a TE need cannot match.
	for i := 0; i < len(players); i++ {
		players[i].Position = models.PosWR
	}
	rng := rand.New(rand.NewSource(1))
	got, err := SelectPlayer(rng, players, []models.Position{models.PosTE}, Weights{Top: 1, Mid: 1})
	require.NoError(t, err)
	require.Equal(t, "p1", got.ID)
}

func TestSelectPlayerDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	counts := map[string]int{}
	const draws = 10000

	for i := 0; i < draws; i++ {
		got, err := SelectPlayer(rng, pool(20), nil, DefaultWeights())
		require.NoError(t, err)
		counts[got.ID]++
	}

	frac := func(id string) float64 { return float64(counts[id]) / draws }
	require.InDelta(t, 0.70, frac("p1"), 0.02)
	require.InDelta(t, 0.20, frac("p2"), 0.02)
	require.InDelta(t, 0.10, frac("p3"), 0.02)
	require.Zero(t, counts["p4"])
	require.Zero(t, counts["p5"])
}

func TestSelectPlayerSmallWindows(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	got, err := SelectPlayer(rng, pool(1), nil, Weights{Top: 0, Mid: 0})
	require.NoError(t, err)
	require.Equal(t, "p1", got.ID)

	// With two players a draw past Mid falls back to the second.
	got, err = SelectPlayer(rng, pool(2), nil, Weights{Top: 0, Mid: 0})
	require.NoError(t, err)
	require.Equal(t, "p2", got.ID)
}

func TestFlatten(t *testing.T) {
	w := DefaultWeights()

	require.Equal(t, w, w.Flatten(0))

	flat := w.Flatten(1)
	require.InDelta(t, 1.0/3.0, flat.Top, 1e-9)
	require.InDelta(t, 2.0/3.0, flat.Mid, 1e-9)

	half := w.Flatten(0.5)
	require.Greater(t, half.Top, flat.Top)
	require.Less(t, half.Top, w.Top)
}
