package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/utils"
	"github.com/sharpline/sharpline-go/pkg/oddsmath"
)

const (
	defaultBankroll      = 1000.0
	defaultKellyFraction = 0.25
)

// BetStore is the persistence surface the advisor needs.
type BetStore interface {
	Insert(ctx context.Context, bet *models.BetRecord) error
	Get(ctx context.Context, id uuid.UUID) (*models.BetRecord, error)
	List(ctx context.Context, status models.BetStatus, limit int) ([]models.BetRecord, error)
	Settle(ctx context.Context, bet *models.BetRecord) error
	CLVSummary(ctx context.Context) (*models.CLVSummary, error)
}

var _ BetStore = (*database.BetRepository)(nil)

// StakeAdvisor sizes stakes, prices expected value, and keeps the bet
// log that closing line value is graded against.
type StakeAdvisor struct {
	store           BetStore
	defaultBankroll float64
	kellyFraction   float64
}

// NewStakeAdvisor creates an advisor with the configured bankroll
// defaults.
func NewStakeAdvisor(store BetStore, cfg config.BankrollConfig) *StakeAdvisor {
	bankroll := cfg.DefaultBankroll
	if bankroll <= 0 {
		bankroll = defaultBankroll
	}
	fraction := cfg.KellyFraction
	if fraction <= 0 || fraction > 1 {
		fraction = defaultKellyFraction
	}
	return &StakeAdvisor{
		store:           store,
		defaultBankroll: bankroll,
		kellyFraction:   fraction,
	}
}

// Kelly sizes a stake for the requested price and win probability.
// Bankroll and fraction fall back to the configured defaults when the
// request leaves them zero.
func (s *StakeAdvisor) Kelly(req models.KellyRequest) (*oddsmath.KellyResult, error) {
	bankroll := req.Bankroll
	if bankroll == 0 {
		bankroll = s.defaultBankroll
	}
	fraction := req.Fraction
	if fraction == 0 {
		fraction = s.kellyFraction
	}

	dec, err := oddsmath.AmericanToDecimal(req.AmericanOdds)
	if err != nil {
		return nil, utils.NewValidationErrorf("%v", err)
	}
	result, err := oddsmath.KellyStake(dec, req.TrueProb, bankroll, fraction)
	if err != nil {
		return nil, utils.NewValidationErrorf("%v", err)
	}
	return &result, nil
}

// ExpectedValue prices a stake at the requested odds against the
// caller's win probability.
func (s *StakeAdvisor) ExpectedValue(req models.EVRequest) (*oddsmath.EVResult, error) {
	if req.Stake <= 0 {
		return nil, utils.NewValidationError("stake must be positive")
	}
	if req.TrueProb <= 0 || req.TrueProb >= 1 {
		return nil, utils.NewValidationError("true probability must be between 0 and 1")
	}
	result, err := oddsmath.ExpectedValue(req.AmericanOdds, req.TrueProb, req.Stake)
	if err != nil {
		return nil, utils.NewValidationErrorf("%v", err)
	}
	return &result, nil
}

// RecordBet logs a pending bet with its price frozen at record time.
func (s *StakeAdvisor) RecordBet(ctx context.Context, req models.RecordBetRequest) (*models.BetRecord, error) {
	bet := &models.BetRecord{
		ID:           uuid.New(),
		GameID:       req.GameID,
		Sport:        models.Sport(req.Sport),
		Market:       models.MarketType(req.Market),
		Selection:    req.Selection,
		Bookmaker:    req.Bookmaker,
		AmericanOdds: req.AmericanOdds,
		Line:         decimal.NewFromFloat(req.Line),
		Stake:        decimal.NewFromFloat(req.Stake),
		Status:       models.BetPending,
		Profit:       decimal.Zero,
		PlacedAt:     time.Now().UTC(),
	}
	if err := bet.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, bet); err != nil {
		return nil, err
	}
	return bet, nil
}

// SettleBet closes a pending bet with the game outcome, computes its
// profit, and grades closing line value against the closing price.
// Returns nil when no bet with the ID exists.
func (s *StakeAdvisor) SettleBet(ctx context.Context, id uuid.UUID, req models.SettleBetRequest) (*models.BetRecord, error) {
	bet, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, nil
	}
	if bet.IsSettled() {
		return nil, utils.NewValidationErrorf("bet %s already settled", id)
	}

	status := models.BetStatus(req.Result)
	switch status {
	case models.BetWon, models.BetLost, models.BetPush:
	default:
		return nil, utils.NewValidationErrorf("unknown result %q", req.Result)
	}

	switch status {
	case models.BetWon:
		dec, err := oddsmath.AmericanToDecimal(bet.AmericanOdds)
		if err != nil {
			return nil, utils.NewValidationErrorf("%v", err)
		}
		bet.Profit = bet.Stake.Mul(decimal.NewFromFloat(dec - 1)).Round(2)
	case models.BetLost:
		bet.Profit = bet.Stake.Neg()
	case models.BetPush:
		bet.Profit = decimal.Zero
	}

	clv, err := oddsmath.ClosingLineValue(bet.AmericanOdds, req.ClosingOdds, bet.Stake.InexactFloat64())
	if err != nil {
		return nil, utils.NewValidationErrorf("%v", err)
	}
	closingOdds := req.ClosingOdds
	clvPercent := math.Round(clv.CLVPercent*100) / 100
	beatClose := clv.BeatClose
	settledAt := time.Now().UTC()

	bet.Status = status
	bet.ClosingOdds = &closingOdds
	bet.CLVPercent = &clvPercent
	bet.BeatClose = &beatClose
	bet.SettledAt = &settledAt

	if err := s.store.Settle(ctx, bet); err != nil {
		return nil, err
	}
	return bet, nil
}

// ListBets returns logged bets newest first, optionally filtered by
// status.
func (s *StakeAdvisor) ListBets(ctx context.Context, status models.BetStatus, limit int) ([]models.BetRecord, error) {
	return s.store.List(ctx, status, limit)
}

// CLVReport aggregates closing line value across the settled bet log.
func (s *StakeAdvisor) CLVReport(ctx context.Context) (*models.CLVSummary, error) {
	return s.store.CLVSummary(ctx)
}
