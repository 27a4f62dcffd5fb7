package models

// Position is a player's roster position.
type Position string

const (
	PosQB Position = "QB"
	PosRB Position = "RB"
	PosWR Position = "WR"
	PosTE Position = "TE"
	PosOT Position = "OT"
	PosIO Position = "IOL"
	PosED Position = "EDGE"
	PosDT Position = "DT"
	PosLB Position = "LB"
	PosCB Position = "CB"
	PosS  Position = "S"
	PosK  Position = "K"
	PosP  Position = "P"
)

// Player is one entry in the draftable player catalog for a given year.
// ConsensusRank is 1-based; lower is better.
type Player struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Position      Position `json:"position"`
	College       string   `json:"college,omitempty"`
	ConsensusRank int      `json:"consensus_rank"`
	DraftYear     int      `json:"draft_year"`
}
