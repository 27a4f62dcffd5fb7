package draft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftday/mockdraft/internal/models"
)

func fullBaseOrder(rounds int) []string {
	order := make([]string, 0, rounds*models.TeamsPerRound)
	for r := 0; r < rounds; r++ {
		order = append(order, models.Teams[:]...)
	}
	return order
}

func TestBuildPickOrder(t *testing.T) {
	slots, err := BuildPickOrder(fullBaseOrder(3), 3)
	require.NoError(t, err)
	require.Len(t, slots, 3*models.TeamsPerRound)

	for i, slot := range slots {
		require.Equal(t, i+1, slot.Overall)
		require.Equal(t, i/models.TeamsPerRound+1, slot.Round)
		require.Equal(t, i%models.TeamsPerRound+1, slot.PickInRound)
		require.Empty(t, slot.TeamOverride)
	}
	require.Equal(t, 1, slots[0].Round)
	require.Equal(t, 3, slots[len(slots)-1].Round)
	require.Equal(t, models.TeamsPerRound, slots[len(slots)-1].PickInRound)
}

func TestBuildPickOrderShortBase(t *testing.T) {
	_, err := BuildPickOrder(fullBaseOrder(1), 2)
	require.Error(t, err)

	_, err = BuildPickOrder(fullBaseOrder(1), 0)
	require.Error(t, err)
}

func TestBuildFuturePicks(t *testing.T) {
	picks := BuildFuturePicks(2026, 2, 3)
	require.Len(t, picks, 3*2*len(models.Teams))

	for _, fp := range picks {
		require.GreaterOrEqual(t, fp.Year, 2027)
		require.LessOrEqual(t, fp.Year, 2029)
		require.Equal(t, fp.OriginalTeam, fp.OwnerTeam)
	}
}

func TestBuildFuturePicksDefaultYears(t *testing.T) {
	picks := BuildFuturePicks(2026, 1, 0)
	require.Len(t, picks, DefaultFutureYears*len(models.Teams))
}
