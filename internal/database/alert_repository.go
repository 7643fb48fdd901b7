package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sharpline/sharpline-go/internal/models"
)

// ErrAlertNotFound reports an update against an alert ID that does not
// exist.
var ErrAlertNotFound = errors.New("alert not found")

// AlertRepository handles database operations for line movement alerts.
type AlertRepository struct {
	pool DatabasePool
}

// NewAlertRepository creates a new alert repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*AlertRepository: The initialized repository.
func NewAlertRepository(pool DatabasePool) *AlertRepository {
	return &AlertRepository{
		pool: pool,
	}
}

// Create persists an alert unless one with the same fingerprint already
// exists, which makes re-analysis of the same snapshots idempotent.
//
// Parameters:
//
//	ctx: Context.
//	alert: Alert to persist.
//
// Returns:
//
//	bool: True when a new row was written, false on a fingerprint duplicate.
//	error: Error if the insert fails.
func (r *AlertRepository) Create(ctx context.Context, alert *models.LineMovementAlert) (bool, error) {
	query := `
		INSERT INTO movement_alerts (id, game_id, alert_type, severity, market, bookmaker,
			opening_line, current_line, movement, movement_percent, sharp_money,
			reverse_line, trend_direction, fingerprint, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (fingerprint) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		alert.ID, alert.GameID, alert.AlertType, alert.Severity, alert.Market, alert.Bookmaker,
		alert.OpeningLine, alert.CurrentLine, alert.Movement, alert.MovementPercent, alert.SharpMoney,
		alert.ReverseLine, alert.TrendDirection, alert.Fingerprint, alert.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create movement alert: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// List returns alerts newest first, filtered by the optional sport,
// severity and unread flags.
//
// Parameters:
//
//	ctx: Context.
//	req: Filter and limit parameters.
//
// Returns:
//
//	[]models.LineMovementAlert: Matching alerts.
//	error: Error if retrieval fails.
func (r *AlertRepository) List(ctx context.Context, req models.AlertListRequest) ([]models.LineMovementAlert, error) {
	query := `
		SELECT a.id, a.game_id, a.alert_type, a.severity, a.market, a.bookmaker,
			a.opening_line, a.current_line, a.movement, a.movement_percent, a.sharp_money,
			a.reverse_line, a.trend_direction, a.fingerprint, a.read, a.created_at, a.expires_at
		FROM movement_alerts a
	`
	var args []interface{}
	var where []string

	if req.Sport != "" {
		query += " JOIN games g ON g.id = a.game_id"
		args = append(args, req.Sport)
		where = append(where, fmt.Sprintf("g.sport = $%d", len(args)))
	}
	if req.Severity != "" {
		args = append(args, req.Severity)
		where = append(where, fmt.Sprintf("a.severity = $%d", len(args)))
	}
	if req.Unread {
		where = append(where, "a.read = false")
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY a.created_at DESC"
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movement alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ListUnnotified returns unread alerts at or above the given severity
// that have not expired, for the notifier to push.
//
// Parameters:
//
//	ctx: Context.
//	minSeverity: Lowest severity to include.
//	now: Reference time for expiry.
//
// Returns:
//
//	[]models.LineMovementAlert: Alerts pending notification.
//	error: Error if retrieval fails.
func (r *AlertRepository) ListUnnotified(ctx context.Context, minSeverity models.Severity, now time.Time) ([]models.LineMovementAlert, error) {
	severities := severityAtLeast(minSeverity)

	query := `
		SELECT id, game_id, alert_type, severity, market, bookmaker,
			opening_line, current_line, movement, movement_percent, sharp_money,
			reverse_line, trend_direction, fingerprint, read, created_at, expires_at
		FROM movement_alerts
		WHERE read = false AND severity = ANY($1) AND expires_at > $2
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, severities, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list unnotified alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// MarkRead flags an alert as read.
//
// Parameters:
//
//	ctx: Context.
//	id: Alert identifier.
//
// Returns:
//
//	error: ErrAlertNotFound when no alert has the ID, or the update error.
func (r *AlertRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE movement_alerts SET read = true WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrAlertNotFound)
	}

	return nil
}

// DeleteExpired removes alerts whose game has started.
//
// Parameters:
//
//	ctx: Context.
//	now: Reference time.
//
// Returns:
//
//	int64: Number of alerts removed.
//	error: Error if cleanup fails.
func (r *AlertRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM movement_alerts WHERE expires_at <= $1`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired alerts: %w", err)
	}

	return result.RowsAffected(), nil
}

func severityAtLeast(min models.Severity) []string {
	order := []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}
	var out []string
	found := false
	for _, s := range order {
		if s == min {
			found = true
		}
		if found {
			out = append(out, string(s))
		}
	}
	if !found {
		for _, s := range order {
			out = append(out, string(s))
		}
	}
	return out
}

func scanAlerts(rows pgx.Rows) ([]models.LineMovementAlert, error) {
	var alerts []models.LineMovementAlert
	for rows.Next() {
		var a models.LineMovementAlert
		err := rows.Scan(
			&a.ID,
			&a.GameID,
			&a.AlertType,
			&a.Severity,
			&a.Market,
			&a.Bookmaker,
			&a.OpeningLine,
			&a.CurrentLine,
			&a.Movement,
			&a.MovementPercent,
			&a.SharpMoney,
			&a.ReverseLine,
			&a.TrendDirection,
			&a.Fingerprint,
			&a.Read,
			&a.CreatedAt,
			&a.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}
