package draft

import (
	"fmt"

	"github.com/draftday/mockdraft/internal/models"
)

// DefaultFutureYears is how many drafts beyond the active year the ledger
// seeds tradable picks for.
const DefaultFutureYears = 3

// BuildPickOrder constructs the ordered slot sequence for rounds of a draft
// from the persisted base team order for the year. Overall numbers are
// assigned 1..N in source order; round and pick-in-round cycle over
// models.TeamsPerRound. The base order includes any pre-recorded compensatory
// slots in place.
func BuildPickOrder(baseOrder []string, rounds int) ([]models.DraftSlot, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("rounds must be at least 1, got %d", rounds)
	}
	need := rounds * models.TeamsPerRound
	if len(baseOrder) < need {
		return nil, fmt.Errorf("base order has %d teams, need %d for %d rounds",
			len(baseOrder), need, rounds)
	}

	slots := make([]models.DraftSlot, 0, need)
	for i := 0; i < need; i++ {
		slots = append(slots, models.DraftSlot{
			Overall:     i + 1,
			Round:       i/models.TeamsPerRound + 1,
			PickInRound: i%models.TeamsPerRound + 1,
			Team:        baseOrder[i],
		})
	}
	return slots, nil
}

// BuildFuturePicks seeds the future-pick ownership ledger: one entry per team
// per round for each of futureYears drafts beyond year, every entry owned by
// its original team. This is the only place future-pick ownership is seeded;
// all later ownership changes happen through trade execution.
func BuildFuturePicks(year, rounds, futureYears int) []models.FutureDraftPick {
	if futureYears <= 0 {
		futureYears = DefaultFutureYears
	}
	picks := make([]models.FutureDraftPick, 0, futureYears*rounds*len(models.Teams))
	for y := year + 1; y <= year+futureYears; y++ {
		for round := 1; round <= rounds; round++ {
			for _, team := range models.Teams {
				picks = append(picks, models.FutureDraftPick{
					Year:         y,
					Round:        round,
					OriginalTeam: team,
					OwnerTeam:    team,
				})
			}
		}
	}
	return picks
}
