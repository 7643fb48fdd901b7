package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer provides utilities for tracing domain operations.
// It allows detailed tracking of pipeline activities like odds collection,
// movement analysis and opportunity scanning.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a new instance of BusinessTracer.
//
// Returns:
//   - A pointer to an initialized BusinessTracer.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{tracer: GetTracer("sharpline/business")}
}

// TraceOddsCollection starts a span for tracing one provider fetch.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - provider: The odds feed being called.
//   - sport: The sport key being collected.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceOddsCollection(ctx context.Context, provider string, sport string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "odds_collection")
	span.SetAttributes(
		attribute.String("provider", provider),
		attribute.String("sport", sport),
	)
	return ctx, span
}

// RecordCollectionMetrics records metrics for one collection pass onto a span.
//
// Parameters:
//   - span: The span to update.
//   - metrics: The collection metrics to record.
func (bt *BusinessTracer) RecordCollectionMetrics(span trace.Span, metrics CollectionMetrics) {
	span.SetAttributes(
		attribute.Int("games_seen", metrics.GamesSeen),
		attribute.Int("snapshots_saved", metrics.SnapshotsSaved),
		attribute.Int("books_failed", metrics.BooksFailed),
		attribute.Int64("collection_time_ms", metrics.CollectionTime.Milliseconds()),
		attribute.Float64("success_rate", metrics.SuccessRate),
	)
}

// TraceMovementAnalysis starts a span for tracing movement rule evaluation.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - gameID: The game whose line history is analyzed.
//   - market: The market being analyzed.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceMovementAnalysis(ctx context.Context, gameID string, market string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "movement_analysis")
	span.SetAttributes(
		attribute.String("game_id", gameID),
		attribute.String("market", market),
	)
	return ctx, span
}

// RecordMovementResult records the outcome of a movement analysis onto a span.
//
// Parameters:
//   - span: The span to update.
//   - result: The movement analysis result to record.
func (bt *BusinessTracer) RecordMovementResult(span trace.Span, result MovementResult) {
	span.SetAttributes(
		attribute.Int("alerts_created", result.AlertsCreated),
		attribute.Bool("steam_detected", result.SteamDetected),
		attribute.Bool("reverse_line", result.ReverseLine),
		attribute.Float64("largest_move", result.LargestMove),
	)
}

// TraceOpportunityScan starts a span for tracing an arbitrage or middle scan.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - kind: The opportunity kind being scanned for.
//   - sport: The sport key being scanned.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceOpportunityScan(ctx context.Context, kind string, sport string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "opportunity_scan")
	span.SetAttributes(
		attribute.String("kind", kind),
		attribute.String("sport", sport),
	)
	return ctx, span
}

// RecordOpportunityMetrics records scan statistics onto a span.
//
// Parameters:
//   - span: The span to update.
//   - metrics: The scan metrics to record.
func (bt *BusinessTracer) RecordOpportunityMetrics(span trace.Span, metrics OpportunityMetrics) {
	span.SetAttributes(
		attribute.Int("candidate_pairs", metrics.CandidatePairs),
		attribute.Int("opportunities_found", metrics.Found),
		attribute.Float64("best_roi_percent", metrics.BestROIPercent),
		attribute.Int64("scan_time_ms", metrics.ScanTime.Milliseconds()),
	)
}

// TraceEnsemblePrediction starts a span for tracing an ensemble run.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - gameID: The game being predicted.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceEnsemblePrediction(ctx context.Context, gameID string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "ensemble_prediction")
	span.SetAttributes(attribute.String("game_id", gameID))
	return ctx, span
}

// RecordPredictionResult records the blended prediction onto a span.
//
// Parameters:
//   - span: The span to update.
//   - result: The prediction result to record.
func (bt *BusinessTracer) RecordPredictionResult(span trace.Span, result PredictionResult) {
	span.SetAttributes(
		attribute.String("winner", result.Winner),
		attribute.Float64("confidence", result.Confidence),
		attribute.Float64("spread", result.Spread),
		attribute.String("agreement", result.Agreement),
	)
}

// TraceNotification starts a span for tracing notification delivery.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - notificationType: The type of notification being sent.
//   - channel: The delivery channel (e.g., "telegram").
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceNotification(ctx context.Context, notificationType string, channel string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "notification")
	span.SetAttributes(
		attribute.String("notification_type", notificationType),
		attribute.String("channel", channel),
	)
	return ctx, span
}

// RecordNotificationResult records the outcome of a notification attempt onto a span.
//
// Parameters:
//   - span: The span to update.
//   - success: Whether the notification was sent successfully.
//   - recipientCount: The number of recipients.
//   - err: Any error that occurred during sending.
func (bt *BusinessTracer) RecordNotificationResult(span trace.Span, success bool, recipientCount int, err error) {
	span.SetAttributes(
		attribute.Bool("success", success),
		attribute.Int("recipient_count", recipientCount),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// CollectionMetrics defines the structure for tracking odds collection statistics in telemetry.
type CollectionMetrics struct {
	GamesSeen      int
	SnapshotsSaved int
	BooksFailed    int
	CollectionTime time.Duration
	SuccessRate    float64
}

// MovementResult defines the structure for tracking movement analysis outcomes in telemetry.
type MovementResult struct {
	AlertsCreated int
	SteamDetected bool
	ReverseLine   bool
	LargestMove   float64
}

// OpportunityMetrics defines the structure for tracking opportunity scan statistics in telemetry.
type OpportunityMetrics struct {
	CandidatePairs int
	Found          int
	BestROIPercent float64
	ScanTime       time.Duration
}

// PredictionResult defines the structure for tracking ensemble outcomes in telemetry.
type PredictionResult struct {
	Winner     string
	Confidence float64
	Spread     float64
	Agreement  string
}
