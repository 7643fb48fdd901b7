package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sharpline/sharpline-go/internal/models"
)

const snapshotColumns = `id, game_id, bookmaker, snapshot_at, spread_home, spread_home_odds,
		spread_away_odds, total_line, over_odds, under_odds, moneyline_home, moneyline_away, created_at`

// SnapshotRepository handles database operations for odds snapshots.
// Snapshots are append-only; nothing here mutates an existing row.
type SnapshotRepository struct {
	pool DatabasePool
}

// NewSnapshotRepository creates a new snapshot repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*SnapshotRepository: The initialized repository.
func NewSnapshotRepository(pool DatabasePool) *SnapshotRepository {
	return &SnapshotRepository{
		pool: pool,
	}
}

// InsertBatch appends a batch of snapshots in a single statement.
// Duplicate (game, bookmaker, snapshot_at) rows from a replayed
// collection cycle are skipped.
//
// Parameters:
//
//	ctx: Context.
//	snapshots: Snapshots to append.
//
// Returns:
//
//	int64: Number of rows actually written.
//	error: Error if the insert fails.
func (r *SnapshotRepository) InsertBatch(ctx context.Context, snapshots []models.OddsSnapshot) (int64, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	const fieldsPerRow = 12
	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO odds_snapshots (id, game_id, bookmaker, snapshot_at, spread_home,
			spread_home_odds, spread_away_odds, total_line, over_odds, under_odds,
			moneyline_home, moneyline_away)
		VALUES `)

	args := make([]interface{}, 0, len(snapshots)*fieldsPerRow)
	for i, s := range snapshots {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < fieldsPerRow; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*fieldsPerRow+j+1)
		}
		sb.WriteString(")")
		args = append(args,
			s.ID, s.GameID, s.Bookmaker, s.SnapshotAt, s.SpreadHome,
			s.SpreadHomeOdds, s.SpreadAwayOdds, s.TotalLine, s.OverOdds, s.UnderOdds,
			s.MoneylineHome, s.MoneylineAway,
		)
	}
	sb.WriteString(" ON CONFLICT (game_id, bookmaker, snapshot_at) DO NOTHING")

	result, err := r.pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot batch: %w", err)
	}

	return result.RowsAffected(), nil
}

// History returns snapshots for a game in chronological order, optionally
// bounded by a lower timestamp and a row limit.
//
// Parameters:
//
//	ctx: Context.
//	req: Game ID plus optional since/limit filters.
//
// Returns:
//
//	[]models.OddsSnapshot: Matching snapshots, oldest first.
//	error: Error if retrieval fails.
func (r *SnapshotRepository) History(ctx context.Context, req models.OddsHistoryRequest) ([]models.OddsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odds_snapshots
		WHERE game_id = $1
	`
	args := []interface{}{req.GameID}

	if !req.Since.IsZero() {
		args = append(args, req.Since)
		query += fmt.Sprintf(" AND snapshot_at >= $%d", len(args))
	}
	query += " ORDER BY snapshot_at ASC"
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot history: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// LatestPerBook returns the most recent snapshot from every bookmaker
// quoting a game.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//
// Returns:
//
//	[]models.OddsSnapshot: One snapshot per bookmaker.
//	error: Error if retrieval fails.
func (r *SnapshotRepository) LatestPerBook(ctx context.Context, gameID string) ([]models.OddsSnapshot, error) {
	query := `
		SELECT DISTINCT ON (bookmaker) ` + snapshotColumns + `
		FROM odds_snapshots
		WHERE game_id = $1
		ORDER BY bookmaker, snapshot_at DESC
	`

	rows, err := r.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// Opening returns the chronologically first snapshot for a game and
// bookmaker, which is the opening line.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//	bookmaker: Bookmaker key.
//
// Returns:
//
//	*models.OddsSnapshot: The opening snapshot, or nil when none exists.
//	error: Error if retrieval fails.
func (r *SnapshotRepository) Opening(ctx context.Context, gameID, bookmaker string) (*models.OddsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odds_snapshots
		WHERE game_id = $1 AND bookmaker = $2
		ORDER BY snapshot_at ASC
		LIMIT 1
	`

	return r.queryOne(ctx, query, gameID, bookmaker)
}

// Latest returns the most recent snapshot for a game and bookmaker. Once
// a game has started this is its closing line.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//	bookmaker: Bookmaker key.
//
// Returns:
//
//	*models.OddsSnapshot: The latest snapshot, or nil when none exists.
//	error: Error if retrieval fails.
func (r *SnapshotRepository) Latest(ctx context.Context, gameID, bookmaker string) (*models.OddsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odds_snapshots
		WHERE game_id = $1 AND bookmaker = $2
		ORDER BY snapshot_at DESC
		LIMIT 1
	`

	return r.queryOne(ctx, query, gameID, bookmaker)
}

// Recent returns the newest n snapshots for a game and bookmaker, newest
// first. Movement analysis uses this window for steam detection and
// trend smoothing.
//
// Parameters:
//
//	ctx: Context.
//	gameID: Game identifier.
//	bookmaker: Bookmaker key.
//	n: Maximum snapshots to return.
//
// Returns:
//
//	[]models.OddsSnapshot: Up to n snapshots, newest first.
//	error: Error if retrieval fails.
func (r *SnapshotRepository) Recent(ctx context.Context, gameID, bookmaker string, n int) ([]models.OddsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odds_snapshots
		WHERE game_id = $1 AND bookmaker = $2
		ORDER BY snapshot_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, gameID, bookmaker, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// DeleteOlderThan removes snapshots captured before the cutoff.
//
// Parameters:
//
//	ctx: Context.
//	cutoff: Oldest snapshot time to keep.
//
// Returns:
//
//	int64: Number of snapshots removed.
//	error: Error if cleanup fails.
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM odds_snapshots WHERE snapshot_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *SnapshotRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*models.OddsSnapshot, error) {
	var s models.OddsSnapshot
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.GameID,
		&s.Bookmaker,
		&s.SnapshotAt,
		&s.SpreadHome,
		&s.SpreadHomeOdds,
		&s.SpreadAwayOdds,
		&s.TotalLine,
		&s.OverOdds,
		&s.UnderOdds,
		&s.MoneylineHome,
		&s.MoneylineAway,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &s, nil
}

func scanSnapshots(rows pgx.Rows) ([]models.OddsSnapshot, error) {
	var snapshots []models.OddsSnapshot
	for rows.Next() {
		var s models.OddsSnapshot
		err := rows.Scan(
			&s.ID,
			&s.GameID,
			&s.Bookmaker,
			&s.SnapshotAt,
			&s.SpreadHome,
			&s.SpreadHomeOdds,
			&s.SpreadAwayOdds,
			&s.TotalLine,
			&s.OverOdds,
			&s.UnderOdds,
			&s.MoneylineHome,
			&s.MoneylineAway,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
