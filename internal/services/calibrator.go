package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/utils"
)

const (
	defaultLookbackDays      = 120
	defaultMinSampleSize     = 20
	defaultSparseSampleSize  = 10
	defaultConfidenceFloor   = 50.0
	defaultConfidenceCeiling = 95.0

	// A spread past this many points counts as lopsided.
	bigSpreadPoints = 10.0
)

// situationBucket is one situational slice of graded predictions.
// Sparse buckets (weather) use the lower sample floor because the
// condition itself is rare.
type situationBucket struct {
	Label       string
	Description string
	Sparse      bool
	Matches     func(game *models.Game, spread float64) bool
}

var situationBuckets = []situationBucket{
	{
		Label:       "night_game",
		Description: "night games",
		Matches:     func(g *models.Game, _ float64) bool { return g.IsNightGame() },
	},
	{
		Label:       "division_game",
		Description: "division games",
		Matches:     func(g *models.Game, _ float64) bool { return g.Division },
	},
	{
		Label:       "big_spread",
		Description: "double-digit spreads",
		Matches:     func(_ *models.Game, spread float64) bool { return math.Abs(spread) > bigSpreadPoints },
	},
	{
		Label:       "bad_weather",
		Description: "bad weather",
		Sparse:      true,
		Matches:     func(g *models.Game, _ float64) bool { return g.HasBadWeather() },
	},
	{
		Label:       "rest_mismatch",
		Description: "uneven rest",
		Matches:     func(g *models.Game, _ float64) bool { return g.RestDayDiff() >= 2 },
	},
}

// CalibrationStore is the persistence surface the calibrator needs.
type CalibrationStore interface {
	CalibrationSamples(ctx context.Context, sport models.Sport) ([]database.CalibrationSample, error)
	UpsertModifier(ctx context.Context, m *models.ConfidenceModifier) error
	ListModifiers(ctx context.Context) ([]models.ConfidenceModifier, error)
}

var _ CalibrationStore = (*database.PredictionRepository)(nil)

// ConfidenceCalibrator learns, per situational bucket, how stated
// confidence compared to realized accuracy, and applies the learned
// modifiers to fresh predictions.
type ConfidenceCalibrator struct {
	store         CalibrationStore
	lookback      time.Duration
	minSamples    int
	sparseSamples int
	floor         float64
	ceiling       float64
}

// NewConfidenceCalibrator creates a calibrator with the configured
// lookback window, sample floors and confidence band.
func NewConfidenceCalibrator(store CalibrationStore, cfg config.CalibrationConfig) *ConfidenceCalibrator {
	lookbackDays := cfg.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	minSamples := cfg.MinSampleSize
	if minSamples <= 0 {
		minSamples = defaultMinSampleSize
	}
	sparse := cfg.WeatherMinSampleSize
	if sparse <= 0 {
		sparse = defaultSparseSampleSize
	}
	floor := cfg.ConfidenceFloor
	if floor <= 0 {
		floor = defaultConfidenceFloor
	}
	ceiling := cfg.ConfidenceCeiling
	if ceiling <= 0 || ceiling <= floor {
		ceiling = defaultConfidenceCeiling
	}
	return &ConfidenceCalibrator{
		store:         store,
		lookback:      time.Duration(lookbackDays) * 24 * time.Hour,
		minSamples:    minSamples,
		sparseSamples: sparse,
		floor:         floor,
		ceiling:       ceiling,
	}
}

// Recalibrate recomputes a sport's situational modifiers from graded
// predictions inside the lookback window and stores the refreshed set.
// Buckets without enough samples emit nothing and keep whatever
// modifier was stored before.
func (c *ConfidenceCalibrator) Recalibrate(ctx context.Context, sport models.Sport, now time.Time) ([]models.ConfidenceModifier, error) {
	samples, err := c.store.CalibrationSamples(ctx, sport)
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-c.lookback)
	var modifiers []models.ConfidenceModifier
	for _, bucket := range situationBuckets {
		var matched, correct int
		var confidenceSum float64
		for i := range samples {
			s := &samples[i]
			if s.Game.StartTime.Before(cutoff) {
				continue
			}
			if !bucket.Matches(&s.Game, s.Spread) {
				continue
			}
			matched++
			confidenceSum += s.Confidence
			if s.Correct {
				correct++
			}
		}

		floor := c.minSamples
		if bucket.Sparse {
			floor = c.sparseSamples
		}
		if matched < floor {
			continue
		}

		actual := float64(correct) / float64(matched) * 100
		expected := confidenceSum / float64(matched)
		m := models.ConfidenceModifier{
			Situation:          situationKey(sport, bucket.Label),
			Modifier:           1 + (actual-expected)/100,
			BasedOnGames:       matched,
			HistoricalAccuracy: actual,
			ExpectedAccuracy:   expected,
			ConfidenceLevel:    sampleConfidence(matched, floor),
		}
		if err := c.store.UpsertModifier(ctx, &m); err != nil {
			return nil, err
		}
		modifiers = append(modifiers, m)
	}

	return modifiers, nil
}

// ApplyModifiers multiplies a fresh prediction's confidence by every
// stored modifier whose situation matches the game, clamps the result
// to the configured band, and appends a reasoning line per applied
// shift. A prediction with no matching situations says so explicitly.
func (c *ConfidenceCalibrator) ApplyModifiers(ctx context.Context, p *models.EnsemblePrediction, game *models.Game) error {
	if p == nil || game == nil {
		return utils.NewValidationError("calibration needs a prediction and its game")
	}

	stored, err := c.store.ListModifiers(ctx)
	if err != nil {
		return err
	}
	byKey := make(map[string]models.ConfidenceModifier, len(stored))
	for _, m := range stored {
		byKey[m.Situation] = m
	}

	adjusted := p.FinalConfidence
	applied := 0
	for _, bucket := range situationBuckets {
		if !bucket.Matches(game, p.FinalSpread) {
			continue
		}
		m, ok := byKey[situationKey(p.Sport, bucket.Label)]
		if !ok {
			continue
		}
		adjusted *= m.Modifier
		applied++
		p.Reasoning = append(p.Reasoning, fmt.Sprintf(
			"%s: confidence %+.1f%% (accuracy %.1f%% vs %.1f%% expected over %d games)",
			bucket.Description, (m.Modifier-1)*100,
			m.HistoricalAccuracy, m.ExpectedAccuracy, m.BasedOnGames,
		))
	}
	if applied == 0 {
		p.Reasoning = append(p.Reasoning, "no situational adjustments apply")
	}

	p.FinalConfidence = math.Min(math.Max(adjusted, c.floor), c.ceiling)
	return nil
}

// situationKey namespaces a bucket label by sport so sports calibrate
// independently.
func situationKey(sport models.Sport, label string) string {
	return string(sport) + ":" + label
}

func sampleConfidence(matched, floor int) models.ConfidenceLevel {
	switch {
	case matched >= 3*floor:
		return models.ConfidenceHigh
	case matched >= 2*floor:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
