// Package cpu implements the automated selection policy. It is a pure
// function of its inputs: callers inject the random source, so behavior is
// deterministic under a seeded *rand.Rand.
package cpu

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/draftday/mockdraft/internal/models"
)

// windowSize is how many of the top-ranked remaining players a CPU team
// actually considers.
const windowSize = 5

// Weights tune the randomized tier selection inside the consideration window.
// With defaults the top-ranked player goes ~70% of the time, the second ~20%,
// the third ~10%.
type Weights struct {
	Top float64
	Mid float64
}

// DefaultWeights returns the standard selection weights.
func DefaultWeights() Weights {
	return Weights{Top: 0.7, Mid: 0.9}
}

// Flatten shifts the weights toward uniform by randomness in [0,1].
func (w Weights) Flatten(randomness float64) Weights {
	if randomness <= 0 {
		return w
	}
	if randomness > 1 {
		randomness = 1
	}
	// Uniform over three candidates would be {1/3, 2/3}.
	w.Top -= (w.Top - 1.0/3.0) * randomness
	w.Mid -= (w.Mid - 2.0/3.0) * randomness
	return w
}

// SelectPlayer chooses a player from the undrafted pool for a team with the
// given ordered positional needs. Players are considered in consensus-rank
// order; a need at any rank inside the window overrides pure value, modeling
// a team reaching for need. With no needs, selection is weighted-random over
// the top three of the window.
func SelectPlayer(rng *rand.Rand, pool []models.Player, needs []models.Position, w Weights) (*models.Player, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("no undrafted players remain")
	}

	window := make([]models.Player, len(pool))
	copy(window, pool)
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].ConsensusRank < window[j].ConsensusRank
	})
	if len(window) > windowSize {
		window = window[:windowSize]
	}

	if len(needs) > 0 {
		for i := range window {
			if matchesNeed(window[i].Position, needs) {
				return &window[i], nil
			}
		}
	}

	r := rng.Float64()
	switch {
	case r < w.Top || len(window) == 1:
		return &window[0], nil
	case r < w.Mid || len(window) == 2:
		return &window[1], nil
	default:
		return &window[2], nil
	}
}

func matchesNeed(pos models.Position, needs []models.Position) bool {
	for _, n := range needs {
		if n == pos {
			return true
		}
	}
	return false
}
