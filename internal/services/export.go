package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/utils"
)

// maxExportRows caps exports requested without an explicit limit.
const maxExportRows = 10000

// ExportSnapshotStore is the snapshot history surface the exporter reads.
type ExportSnapshotStore interface {
	History(ctx context.Context, req models.OddsHistoryRequest) ([]models.OddsSnapshot, error)
}

// ExportAlertStore is the alert listing surface the exporter reads.
type ExportAlertStore interface {
	List(ctx context.Context, req models.AlertListRequest) ([]models.LineMovementAlert, error)
}

var (
	_ ExportSnapshotStore = (*database.SnapshotRepository)(nil)
	_ ExportAlertStore    = (*database.AlertRepository)(nil)
)

// ExportService writes snapshot and alert rows as CSV for offline analysis.
type ExportService struct {
	snapshots ExportSnapshotStore
	alerts    ExportAlertStore
}

// NewExportService creates a new export service.
func NewExportService(snapshots ExportSnapshotStore, alerts ExportAlertStore) *ExportService {
	return &ExportService{
		snapshots: snapshots,
		alerts:    alerts,
	}
}

var snapshotCSVHeader = []string{
	"id", "game_id", "bookmaker", "snapshot_at",
	"spread_home", "spread_home_odds", "spread_away_odds",
	"total_line", "over_odds", "under_odds",
	"moneyline_home", "moneyline_away",
}

var alertCSVHeader = []string{
	"id", "game_id", "alert_type", "severity", "market", "bookmaker",
	"opening_line", "current_line", "movement", "movement_percent",
	"sharp_money", "reverse_line", "trend_direction", "read",
	"created_at", "expires_at",
}

// WriteSnapshots writes the snapshot history for a game as CSV, header row
// first, and returns the number of data rows written. Requests without a
// limit are capped at maxExportRows.
func (s *ExportService) WriteSnapshots(ctx context.Context, w io.Writer, req models.OddsHistoryRequest) (int, error) {
	if req.GameID == "" {
		return 0, utils.NewValidationError("export game_id is required")
	}
	if req.Limit <= 0 || req.Limit > maxExportRows {
		req.Limit = maxExportRows
	}

	snapshots, err := s.snapshots.History(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshots for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotCSVHeader); err != nil {
		return 0, fmt.Errorf("failed to write snapshot header: %w", err)
	}
	for i := range snapshots {
		if err := cw.Write(snapshotCSVRow(&snapshots[i])); err != nil {
			return 0, fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush snapshot export: %w", err)
	}

	return len(snapshots), nil
}

// WriteAlerts writes movement alerts matching the request as CSV, header row
// first, and returns the number of data rows written. Requests without a
// limit are capped at maxExportRows.
func (s *ExportService) WriteAlerts(ctx context.Context, w io.Writer, req models.AlertListRequest) (int, error) {
	if req.Limit <= 0 || req.Limit > maxExportRows {
		req.Limit = maxExportRows
	}

	alerts, err := s.alerts.List(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to load alerts for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(alertCSVHeader); err != nil {
		return 0, fmt.Errorf("failed to write alert header: %w", err)
	}
	for i := range alerts {
		if err := cw.Write(alertCSVRow(&alerts[i])); err != nil {
			return 0, fmt.Errorf("failed to write alert row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush alert export: %w", err)
	}

	return len(alerts), nil
}

func snapshotCSVRow(s *models.OddsSnapshot) []string {
	return []string{
		s.ID.String(),
		s.GameID,
		s.Bookmaker,
		s.SnapshotAt.UTC().Format(time.RFC3339),
		s.SpreadHome.String(),
		strconv.Itoa(s.SpreadHomeOdds),
		strconv.Itoa(s.SpreadAwayOdds),
		s.TotalLine.String(),
		strconv.Itoa(s.OverOdds),
		strconv.Itoa(s.UnderOdds),
		strconv.Itoa(s.MoneylineHome),
		strconv.Itoa(s.MoneylineAway),
	}
}

func alertCSVRow(a *models.LineMovementAlert) []string {
	return []string{
		a.ID.String(),
		a.GameID,
		string(a.AlertType),
		string(a.Severity),
		string(a.Market),
		a.Bookmaker,
		a.OpeningLine.String(),
		a.CurrentLine.String(),
		a.Movement.String(),
		a.MovementPercent.String(),
		strconv.FormatBool(a.SharpMoney),
		strconv.FormatBool(a.ReverseLine),
		string(a.TrendDirection),
		strconv.FormatBool(a.Read),
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
