package providers

import (
	"context"
	"fmt"
	"sync"
)

// FixtureProvider serves a fixed set of payloads. It backs development
// runs without an API key and deterministic pipeline tests.
type FixtureProvider struct {
	mu     sync.RWMutex
	games  []RawGameOdds
	scores []RawGameScore
	err    error
}

// NewFixtureProvider creates a provider that returns the given payloads.
func NewFixtureProvider(games []RawGameOdds) *FixtureProvider {
	return &FixtureProvider{games: games}
}

// Name returns the provider identifier used in errors and alerts.
func (p *FixtureProvider) Name() string {
	return "fixture"
}

// SetGames replaces the odds payloads served by subsequent fetches.
func (p *FixtureProvider) SetGames(games []RawGameOdds) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.games = games
}

// SetScores replaces the score payloads served by subsequent fetches.
func (p *FixtureProvider) SetScores(scores []RawGameScore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores = scores
}

// SetError makes every subsequent fetch fail with err. Passing nil
// clears the injected failure.
func (p *FixtureProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// FetchOdds returns the configured payloads, narrowed to opts.SportKey
// when one is set.
func (p *FixtureProvider) FetchOdds(ctx context.Context, opts FetchOptions) ([]RawGameOdds, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.err != nil {
		return nil, p.err
	}

	games := make([]RawGameOdds, 0, len(p.games))
	for _, game := range p.games {
		if opts.SportKey != "" && game.SportKey != opts.SportKey {
			continue
		}
		games = append(games, game)
	}
	return games, nil
}

// FetchScores returns the configured score payloads for a sport.
func (p *FixtureProvider) FetchScores(ctx context.Context, sportKey string, daysFrom int) ([]RawGameScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.err != nil {
		return nil, p.err
	}

	scores := make([]RawGameScore, 0, len(p.scores))
	for _, score := range p.scores {
		if sportKey != "" && score.SportKey != sportKey {
			continue
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// StubBettingFeed serves configured per-game public betting splits. It
// stands in until a real percentages source exists; games without a
// configured split report an error so callers skip reverse line movement
// classification instead of guessing.
type StubBettingFeed struct {
	mu     sync.RWMutex
	splits map[string]PublicBettingSnapshot
}

// NewStubBettingFeed creates an empty stub feed.
func NewStubBettingFeed() *StubBettingFeed {
	return &StubBettingFeed{
		splits: make(map[string]PublicBettingSnapshot),
	}
}

// Set records the public betting split for a game.
func (f *StubBettingFeed) Set(snapshot PublicBettingSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.splits[snapshot.GameID] = snapshot
}

// FetchPercentages returns the configured split for a game.
func (f *StubBettingFeed) FetchPercentages(ctx context.Context, gameID string) (PublicBettingSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return PublicBettingSnapshot{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	snapshot, ok := f.splits[gameID]
	if !ok {
		return PublicBettingSnapshot{}, fmt.Errorf("no public betting data for game %s", gameID)
	}
	return snapshot, nil
}
