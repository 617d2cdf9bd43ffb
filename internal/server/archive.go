package server

import (
	"context"
	"embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"set-game-server/internal/setgame"
)

// Archive appends finished games to Postgres. Live room state is never
// stored here. A nil *Archive is valid and does nothing.
type Archive struct {
	pool *pgxpool.Pool
}

// OpenArchive connects to databaseURL. An empty URL yields a nil archive.
func OpenArchive(ctx context.Context, databaseURL string) (*Archive, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	return &Archive{pool: pool}, nil
}

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded goose migrations through a database/sql handle
// borrowed from the pool.
func (a *Archive) Migrate(ctx context.Context) error {
	if a == nil {
		return nil
	}
	db := stdlib.OpenDBFromPool(a.pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (a *Archive) RecordGameEnd(ctx context.Context, roomID string, sum setgame.GameSummary) error {
	if a == nil {
		return nil
	}
	const query = `
		INSERT INTO finished_games (id, room_id, winner, team_a_score, team_b_score, team_a_sets, team_b_sets)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
	`
	_, err := a.pool.Exec(ctx, query,
		uuid.NewString(), roomID, sum.Winner,
		sum.TeamAScore, sum.TeamBScore, sum.TeamASets, sum.TeamBSets,
	)
	if err != nil {
		return fmt.Errorf("record game end for room %s: %w", roomID, err)
	}
	return nil
}

// RecentGames returns up to limit finished games for roomID, newest first.
func (a *Archive) RecentGames(ctx context.Context, roomID string, limit int) ([]FinishedGame, error) {
	if a == nil {
		return []FinishedGame{}, nil
	}
	const query = `
		SELECT id::text, room_id, winner, team_a_score, team_b_score, team_a_sets, team_b_sets, finished_at
		FROM finished_games
		WHERE room_id = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`
	rows, err := a.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history for room %s: %w", roomID, err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (FinishedGame, error) {
		var g FinishedGame
		err := row.Scan(&g.ID, &g.RoomID, &g.Winner, &g.TeamAScore, &g.TeamBScore, &g.TeamASets, &g.TeamBSets, &g.FinishedAt)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history for room %s: %w", roomID, err)
	}
	if games == nil {
		games = []FinishedGame{}
	}
	return games, nil
}

func (a *Archive) Close() {
	if a == nil {
		return
	}
	a.pool.Close()
}
