package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sharpline/sharpline-go/internal/models"
)

// OpportunityRepository handles database operations for detected
// arbitrage and middle opportunities. Rows are point-in-time captures;
// they are inserted and aged out, never updated.
type OpportunityRepository struct {
	pool DatabasePool
}

// NewOpportunityRepository creates a new opportunity repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*OpportunityRepository: The initialized repository.
func NewOpportunityRepository(pool DatabasePool) *OpportunityRepository {
	return &OpportunityRepository{
		pool: pool,
	}
}

// Insert persists a detected opportunity. Legs and the middle window are
// stored as JSON documents.
//
// Parameters:
//
//	ctx: Context.
//	opp: Opportunity to persist.
//
// Returns:
//
//	error: Error if the insert fails.
func (r *OpportunityRepository) Insert(ctx context.Context, opp *models.Opportunity) error {
	leg1, err := json.Marshal(opp.Leg1)
	if err != nil {
		return fmt.Errorf("failed to encode leg1: %w", err)
	}
	leg2, err := json.Marshal(opp.Leg2)
	if err != nil {
		return fmt.Errorf("failed to encode leg2: %w", err)
	}
	var middleRange []byte
	if opp.MiddleRange != nil {
		middleRange, err = json.Marshal(opp.MiddleRange)
		if err != nil {
			return fmt.Errorf("failed to encode middle range: %w", err)
		}
	}

	query := `
		INSERT INTO opportunities (id, kind, sport, market, game_id, home_team, away_team,
			game_time, confidence, leg1, leg2, total_stake, max_profit, roi_percent,
			middle_range, middle_probability, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.pool.Exec(ctx, query,
		opp.ID, opp.Kind, opp.Sport, opp.Market, opp.GameID, opp.HomeTeam, opp.AwayTeam,
		opp.GameTime, opp.Confidence, leg1, leg2, opp.TotalStake, opp.MaxProfit, opp.ROIPercent,
		middleRange, opp.MiddleProbability, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity: %w", err)
	}

	return nil
}

// List returns opportunities newest first, filtered by the optional kind,
// sport and minimum ROI.
//
// Parameters:
//
//	ctx: Context.
//	req: Filter and limit parameters.
//
// Returns:
//
//	[]models.Opportunity: Matching opportunities.
//	error: Error if retrieval fails.
func (r *OpportunityRepository) List(ctx context.Context, req models.OpportunityListRequest) ([]models.Opportunity, error) {
	query := `
		SELECT id, kind, sport, market, game_id, home_team, away_team,
			game_time, confidence, leg1, leg2, total_stake, max_profit, roi_percent,
			middle_range, middle_probability, detected_at
		FROM opportunities
	`
	var args []interface{}
	var where []string

	if req.Kind != "" {
		args = append(args, req.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if req.Sport != "" {
		args = append(args, req.Sport)
		where = append(where, fmt.Sprintf("sport = $%d", len(args)))
	}
	if req.MinROI > 0 {
		args = append(args, req.MinROI)
		where = append(where, fmt.Sprintf("roi_percent >= $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY detected_at DESC"
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []models.Opportunity
	for rows.Next() {
		var opp models.Opportunity
		var leg1, leg2, middleRange []byte
		err := rows.Scan(
			&opp.ID,
			&opp.Kind,
			&opp.Sport,
			&opp.Market,
			&opp.GameID,
			&opp.HomeTeam,
			&opp.AwayTeam,
			&opp.GameTime,
			&opp.Confidence,
			&leg1,
			&leg2,
			&opp.TotalStake,
			&opp.MaxProfit,
			&opp.ROIPercent,
			&middleRange,
			&opp.MiddleProbability,
			&opp.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		if err := json.Unmarshal(leg1, &opp.Leg1); err != nil {
			return nil, fmt.Errorf("failed to decode leg1: %w", err)
		}
		if err := json.Unmarshal(leg2, &opp.Leg2); err != nil {
			return nil, fmt.Errorf("failed to decode leg2: %w", err)
		}
		if len(middleRange) > 0 {
			var mr models.MiddleRange
			if err := json.Unmarshal(middleRange, &mr); err != nil {
				return nil, fmt.Errorf("failed to decode middle range: %w", err)
			}
			opp.MiddleRange = &mr
		}
		opportunities = append(opportunities, opp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunities: %w", err)
	}

	return opportunities, nil
}

// DeleteForGames removes all opportunities for the given games. The scan
// service calls this before inserting a fresh batch so stale prices never
// linger next to recomputed ones.
//
// Parameters:
//
//	ctx: Context.
//	gameIDs: Games whose opportunities should be cleared.
//
// Returns:
//
//	int64: Number of opportunities removed.
//	error: Error if the delete fails.
func (r *OpportunityRepository) DeleteForGames(ctx context.Context, gameIDs []string) (int64, error) {
	if len(gameIDs) == 0 {
		return 0, nil
	}

	query := `DELETE FROM opportunities WHERE game_id = ANY($1)`

	result, err := r.pool.Exec(ctx, query, gameIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete opportunities for games: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteOlderThan removes opportunities detected before the cutoff.
//
// Parameters:
//
//	ctx: Context.
//	cutoff: Oldest detection time to keep.
//
// Returns:
//
//	int64: Number of opportunities removed.
//	error: Error if cleanup fails.
func (r *OpportunityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM opportunities WHERE detected_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old opportunities: %w", err)
	}

	return result.RowsAffected(), nil
}
