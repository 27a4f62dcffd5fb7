package models

// TeamsPerRound is the number of base slots per draft round.
const TeamsPerRound = 32

// Teams lists the 32 team codes. Draft order sources and the future-pick
// ledger are keyed by these codes.
var Teams = []string{
	"ARI", "ATL", "BAL", "BUF", "CAR", "CHI", "CIN", "CLE",
	"DAL", "DEN", "DET", "GB", "HOU", "IND", "JAX", "KC",
	"LAC", "LAR", "LV", "MIA", "MIN", "NE", "NO", "NYG",
	"NYJ", "PHI", "PIT", "SEA", "SF", "TB", "TEN", "WAS",
}

// ValidTeam reports whether code is a known team code.
func ValidTeam(code string) bool {
	for _, t := range Teams {
		if t == code {
			return true
		}
	}
	return false
}
