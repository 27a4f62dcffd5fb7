package trade

import (
	"fmt"
	"math"

	"github.com/draftday/mockdraft/internal/models"
)

// ValueConfig tunes the pick-value curve and CPU acceptance behavior.
type ValueConfig struct {
	// BaseValue is the value of the first overall pick.
	BaseValue float64 `yaml:"base_value"`
	// Decay is the per-slot exponential decay rate; the curve is
	// monotonically decreasing and front-loaded.
	Decay float64 `yaml:"decay"`
	// YearDiscount is the geometric uncertainty discount per year a future
	// pick is out.
	YearDiscount float64 `yaml:"year_discount"`
	// FirstRoundPremium multiplies future round-1 picks.
	FirstRoundPremium float64 `yaml:"first_round_premium"`
	// AcceptanceSlack is how far negative a net can be and still be accepted,
	// so CPUs occasionally take slightly unfavorable trades.
	AcceptanceSlack float64 `yaml:"acceptance_slack"`
	// NeedsPremium is the extra surplus a CPU demands before surrendering a
	// pick inside its consideration window, scaled by the draft's
	// cpu_needs_weight.
	NeedsPremium float64 `yaml:"needs_premium"`
}

// DefaultValueConfig returns the standard trade chart tuning.
func DefaultValueConfig() ValueConfig {
	return ValueConfig{
		BaseValue:         3000,
		Decay:             0.055,
		YearDiscount:      0.75,
		FirstRoundPremium: 1.1,
		AcceptanceSlack:   50,
		NeedsPremium:      200,
	}
}

// Evaluation is the structured outcome of CPU trade valuation, from the
// perspective of the CPU-controlled recipient.
type Evaluation struct {
	Accept            bool    `json:"accept"`
	Reason            string  `json:"reason"`
	CPUGivingValue    float64 `json:"cpu_giving_value"`
	CPUReceivingValue float64 `json:"cpu_receiving_value"`
	NetValue          float64 `json:"net_value"`
}

// CurrentPickValue maps a current-year overall slot to a trade value.
func (c ValueConfig) CurrentPickValue(overall int) float64 {
	if overall < 1 {
		return 0
	}
	return c.BaseValue * math.Exp(-c.Decay*float64(overall-1))
}

// FutureRoundValue values a future-year pick as the round's average
// current-year value, discounted per year of distance, with a premium on
// round-1 picks.
func (c ValueConfig) FutureRoundValue(currentYear, year, round int) float64 {
	first := (round-1)*models.TeamsPerRound + 1
	var sum float64
	for overall := first; overall < first+models.TeamsPerRound; overall++ {
		sum += c.CurrentPickValue(overall)
	}
	v := sum / float64(models.TeamsPerRound)

	yearsOut := year - currentYear
	if yearsOut < 1 {
		yearsOut = 1
	}
	v *= math.Pow(c.YearDiscount, float64(yearsOut))
	if round == 1 {
		v *= c.FirstRoundPremium
	}
	return v
}

// PieceValue resolves one trade piece to a scalar. Unknown piece tags are a
// TradeError; the union is closed.
func (c ValueConfig) PieceValue(d *models.Draft, piece models.TradePiece) (float64, error) {
	switch piece.Type {
	case models.TradePieceCurrentPick:
		return c.CurrentPickValue(piece.Overall), nil
	case models.TradePieceFuturePick:
		return c.FutureRoundValue(d.Config.DraftYear, piece.Year, piece.Round), nil
	default:
		return 0, models.TradeError(fmt.Sprintf("unknown trade piece type %q", piece.Type))
	}
}

// tradeWindow is how many upcoming slots a CPU treats as near-term when
// guarding against giving up picks it is about to use.
const tradeWindow = 5

// Evaluate values a proposal for a CPU recipient. Receiving is what the
// proposer gives; giving is what the proposer receives back. needs is the
// recipient's open positional needs; a near-term pick is only guarded when
// the team still has a need to spend it on.
func (c ValueConfig) Evaluate(d *models.Draft, t *models.Trade, needs []models.Position) (*Evaluation, error) {
	var receiving, giving float64
	for _, piece := range t.ProposerGives {
		v, err := c.PieceValue(d, piece)
		if err != nil {
			return nil, err
		}
		receiving += v
	}
	for _, piece := range t.ProposerReceives {
		v, err := c.PieceValue(d, piece)
		if err != nil {
			return nil, err
		}
		giving += v
	}

	eval := &Evaluation{
		CPUGivingValue:    giving,
		CPUReceivingValue: receiving,
		NetValue:          receiving - giving,
	}

	// A CPU about to pick from its window wants real surplus before selling
	// a slot it would have spent on one of its open needs. Teams with no
	// needs left fall through to the plain threshold.
	if d.Config.CPUNeedsWeight > 0 && len(needs) > 0 {
		required := c.NeedsPremium * d.Config.CPUNeedsWeight
		for _, piece := range t.ProposerReceives {
			if piece.Type != models.TradePieceCurrentPick {
				continue
			}
			if piece.Overall >= d.CurrentPick && piece.Overall < d.CurrentPick+tradeWindow && eval.NetValue < required {
				eval.Accept = false
				eval.Reason = fmt.Sprintf("pick %d is inside the team's need window and the return is light", piece.Overall)
				return eval, nil
			}
		}
	}

	if eval.NetValue >= -c.AcceptanceSlack {
		eval.Accept = true
		eval.Reason = "fair value"
	} else {
		eval.Reason = fmt.Sprintf("net value %.0f is below the acceptance threshold", eval.NetValue)
	}
	return eval, nil
}
