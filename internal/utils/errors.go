package utils

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError represents an error occurring during data validation.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
//
// Parameters:
//   - message: The validation error message.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
//
// Parameters:
//   - format: The format string.
//   - args: Arguments for the format string.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// ProviderRateLimitedError signals that an odds provider rejected a call
// for quota reasons. The pipeline skips the call and retries next cycle.
type ProviderRateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
}

// Error returns the error message string.
func (e *ProviderRateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %s rate limited", e.Provider)
}

// NewProviderRateLimitedError creates a rate-limit error for a provider.
func NewProviderRateLimitedError(provider string, retryAfter time.Duration) error {
	return &ProviderRateLimitedError{Provider: provider, RetryAfter: retryAfter}
}

// IsProviderRateLimited reports whether err is a ProviderRateLimitedError.
func IsProviderRateLimited(err error) bool {
	var target *ProviderRateLimitedError
	return errors.As(err, &target)
}

// ProviderUnavailableError signals a total provider outage. The sport's
// cycle is aborted and logged; other sports continue independently.
type ProviderUnavailableError struct {
	Provider string
	Cause    error
}

// Error returns the error message string.
func (e *ProviderUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("provider %s unavailable", e.Provider)
}

// Unwrap exposes the underlying transport or protocol error.
func (e *ProviderUnavailableError) Unwrap() error {
	return e.Cause
}

// NewProviderUnavailableError creates an outage error for a provider.
func NewProviderUnavailableError(provider string, cause error) error {
	return &ProviderUnavailableError{Provider: provider, Cause: cause}
}

// IsProviderUnavailable reports whether err is a ProviderUnavailableError.
func IsProviderUnavailable(err error) bool {
	var target *ProviderUnavailableError
	return errors.As(err, &target)
}

// TeamMatchError signals that a raw quote's team name could not be matched
// to a tracked game. The quote is skipped; the name is never guessed.
type TeamMatchError struct {
	RawName string
	Source  string
}

// Error returns the error message string.
func (e *TeamMatchError) Error() string {
	return fmt.Sprintf("cannot match team %q from %s to a tracked game", e.RawName, e.Source)
}

// NewTeamMatchError creates a team-match failure for a raw provider name.
func NewTeamMatchError(rawName, source string) error {
	return &TeamMatchError{RawName: rawName, Source: source}
}

// IsTeamMatchFailure reports whether err is a TeamMatchError.
func IsTeamMatchFailure(err error) bool {
	var target *TeamMatchError
	return errors.As(err, &target)
}

// InsufficientHistoryError signals that a game does not yet have enough
// snapshots for a classification. Callers suppress it silently.
type InsufficientHistoryError struct {
	GameID string
	Needed int
	Have   int
}

// Error returns the error message string.
func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("game %s has %d snapshots, need %d", e.GameID, e.Have, e.Needed)
}

// NewInsufficientHistoryError creates a history-shortage marker for a game.
func NewInsufficientHistoryError(gameID string, needed, have int) error {
	return &InsufficientHistoryError{GameID: gameID, Needed: needed, Have: have}
}

// IsInsufficientHistory reports whether err is an InsufficientHistoryError.
func IsInsufficientHistory(err error) bool {
	var target *InsufficientHistoryError
	return errors.As(err, &target)
}

// MalformedQuoteError signals that a bookmaker's quote is missing required
// odds fields. That book's quote is dropped for the market; other books
// continue.
type MalformedQuoteError struct {
	Bookmaker string
	Market    string
	Missing   string
}

// Error returns the error message string.
func (e *MalformedQuoteError) Error() string {
	return fmt.Sprintf("malformed %s quote from %s: missing %s", e.Market, e.Bookmaker, e.Missing)
}

// NewMalformedQuoteError creates a malformed-quote error for a book/market.
func NewMalformedQuoteError(bookmaker, market, missing string) error {
	return &MalformedQuoteError{Bookmaker: bookmaker, Market: market, Missing: missing}
}

// IsMalformedQuote reports whether err is a MalformedQuoteError.
func IsMalformedQuote(err error) bool {
	var target *MalformedQuoteError
	return errors.As(err, &target)
}
