// Package catalog supplies the reference data the engine reads but never
// writes: the draftable player pool, per-team positional needs and the base
// pick order for a draft year.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftday/mockdraft/internal/draft"
	"github.com/draftday/mockdraft/internal/models"
)

// Schema creates the reference tables.
const Schema = `
CREATE TABLE IF NOT EXISTS mockdraft_players (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	position       TEXT NOT NULL,
	college        TEXT NOT NULL DEFAULT '',
	consensus_rank INT  NOT NULL,
	draft_year     INT  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mockdraft_players_year
	ON mockdraft_players (draft_year, consensus_rank);

CREATE TABLE IF NOT EXISTS mockdraft_team_needs (
	team       TEXT NOT NULL,
	draft_year INT  NOT NULL,
	rank       INT  NOT NULL,
	position   TEXT NOT NULL,
	PRIMARY KEY (team, draft_year, rank)
);

CREATE TABLE IF NOT EXISTS mockdraft_base_order (
	draft_year INT  NOT NULL,
	slot       INT  NOT NULL,
	team       TEXT NOT NULL,
	PRIMARY KEY (draft_year, slot)
);

CREATE TABLE IF NOT EXISTS mockdraft_users (
	id           UUID PRIMARY KEY,
	display_name TEXT NOT NULL,
	handle       TEXT NOT NULL DEFAULT ''
);
`

// Repository reads reference data from Postgres. It implements the engine's
// PlayerCatalog, NeedsSource, OrderSource and IdentityResolver interfaces.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the reference tables if missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

// PlayersForYear returns the pool for a draft year ordered by consensus rank.
func (r *Repository) PlayersForYear(ctx context.Context, year int) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, position, college, consensus_rank, draft_year
		 FROM mockdraft_players WHERE draft_year = $1 ORDER BY consensus_rank`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for %d: %w", year, err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Position, &p.College, &p.ConsensusRank, &p.DraftYear); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// TeamNeeds returns a team's positional needs ordered by priority.
func (r *Repository) TeamNeeds(ctx context.Context, team string, year int) ([]models.Position, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT position FROM mockdraft_team_needs
		 WHERE team = $1 AND draft_year = $2 ORDER BY rank`, team, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query needs for %s: %w", team, err)
	}
	defer rows.Close()

	var needs []models.Position
	for rows.Next() {
		var pos models.Position
		if err := rows.Scan(&pos); err != nil {
			return nil, fmt.Errorf("failed to scan need: %w", err)
		}
		needs = append(needs, pos)
	}
	return needs, rows.Err()
}

// BaseOrder returns the first-round team sequence for a draft year.
func (r *Repository) BaseOrder(ctx context.Context, year int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT team FROM mockdraft_base_order WHERE draft_year = $1 ORDER BY slot`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query base order for %d: %w", year, err)
	}
	defer rows.Close()

	var order []string
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, fmt.Errorf("failed to scan base order: %w", err)
		}
		order = append(order, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("no base order recorded for %d", year)
	}
	return order, nil
}

// Resolve returns the display identity of a registered user.
func (r *Repository) Resolve(ctx context.Context, userID uuid.UUID) (draft.Identity, error) {
	var identity draft.Identity
	err := r.pool.QueryRow(ctx,
		`SELECT display_name, handle FROM mockdraft_users WHERE id = $1`, userID).
		Scan(&identity.DisplayName, &identity.Handle)
	if errors.Is(err, pgx.ErrNoRows) {
		return draft.Identity{}, fmt.Errorf("user %s is not registered", userID)
	}
	if err != nil {
		return draft.Identity{}, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	return identity, nil
}

// SeedUsers upserts registered users for identity resolution.
func (r *Repository) SeedUsers(ctx context.Context, users map[uuid.UUID]draft.Identity) error {
	batch := &pgx.Batch{}
	for id, identity := range users {
		batch.Queue(
			`INSERT INTO mockdraft_users (id, display_name, handle)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				handle = EXCLUDED.handle`,
			id, identity.DisplayName, identity.Handle)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	return nil
}

// SeedPlayers upserts a player pool, replacing rank and position on conflict.
func (r *Repository) SeedPlayers(ctx context.Context, players []models.Player) error {
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(
			`INSERT INTO mockdraft_players (id, name, position, college, consensus_rank, draft_year)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				position = EXCLUDED.position,
				college = EXCLUDED.college,
				consensus_rank = EXCLUDED.consensus_rank,
				draft_year = EXCLUDED.draft_year`,
			p.ID, p.Name, p.Position, p.College, p.ConsensusRank, p.DraftYear)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed players: %w", err)
	}
	return nil
}

var errUnknownTeam = errors.New("catalog: unknown team")

// SeedBaseOrder replaces the base order for a year. Team codes are validated
// against the league set.
func (r *Repository) SeedBaseOrder(ctx context.Context, year int, order []string) error {
	for _, team := range order {
		if !models.ValidTeam(team) {
			return fmt.Errorf("%w: %s", errUnknownTeam, team)
		}
	}
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM mockdraft_base_order WHERE draft_year = $1`, year)
	for i, team := range order {
		batch.Queue(
			`INSERT INTO mockdraft_base_order (draft_year, slot, team) VALUES ($1, $2, $3)`,
			year, i+1, team)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed base order: %w", err)
	}
	return nil
}
