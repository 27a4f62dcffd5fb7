package catalog

import (
	"context"
	"fmt"

	"github.com/draftday/mockdraft/internal/models"
)

// Static serves reference data from memory. Used by tests and deployments
// that run without Postgres.
type Static struct {
	Players map[int][]models.Player
	Needs   map[string][]models.Position
	Orders  map[int][]string
}

func NewStatic() *Static {
	return &Static{
		Players: make(map[int][]models.Player),
		Needs:   make(map[string][]models.Position),
		Orders:  make(map[int][]string),
	}
}

func (s *Static) PlayersForYear(ctx context.Context, year int) ([]models.Player, error) {
	return s.Players[year], nil
}

func (s *Static) TeamNeeds(ctx context.Context, team string, year int) ([]models.Position, error) {
	return s.Needs[needsKey(team, year)], nil
}

func (s *Static) BaseOrder(ctx context.Context, year int) ([]string, error) {
	order, ok := s.Orders[year]
	if !ok {
		return nil, fmt.Errorf("no base order recorded for %d", year)
	}
	return order, nil
}

func (s *Static) SetNeeds(team string, year int, needs []models.Position) {
	s.Needs[needsKey(team, year)] = needs
}

func needsKey(team string, year int) string {
	return fmt.Sprintf("%s/%d", team, year)
}
