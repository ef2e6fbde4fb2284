package services

import (
	"errors"
	"fmt"

	"lifequest-api/models"
)

var (
	// ErrNotFound covers both "does not exist" and "belongs to someone else".
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount is returned for negative XP, or zero where a positive
	// amount is required.
	ErrInvalidAmount = errors.New("invalid xp amount")

	// ErrLevelUpNotEligible is returned when XP does not exceed the current
	// level's threshold. See LevelUpNotEligibleError for the shortfall.
	ErrLevelUpNotEligible = errors.New("not eligible for level up")

	// ErrAlreadyCompleted guards tasks, quests and experiments against a
	// second completion (and a second set of grants).
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrAlreadyProcessed guards journals against being finalized twice.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrTransactionFailure wraps storage errors that aborted a transaction.
	// Nothing from the aborted operation was persisted.
	ErrTransactionFailure = errors.New("transaction failed")

	// ErrUnsupportedEntityType is returned for entity tags without an adapter.
	ErrUnsupportedEntityType = errors.New("unsupported entity type")

	// ErrInvalidSource is returned for an unknown source type or a missing
	// source id on a non ad-hoc grant.
	ErrInvalidSource = errors.New("invalid xp source")

	// ErrInvalidInput is returned for malformed create/update payloads.
	ErrInvalidInput = errors.New("invalid input")

	// ErrObjectStoreDisabled is returned by export when no bucket is configured.
	ErrObjectStoreDisabled = errors.New("object store not configured")
)

// LevelUpNotEligibleError carries the XP still needed before a level-up.
type LevelUpNotEligibleError struct {
	EntityType models.EntityType
	EntityID   string
	Level      int
	TotalXP    int64
	Shortfall  int64
}

func (e *LevelUpNotEligibleError) Error() string {
	return fmt.Sprintf("%s %s cannot level up from %d: %d xp, %d more needed",
		e.EntityType, e.EntityID, e.Level, e.TotalXP, e.Shortfall)
}

func (e *LevelUpNotEligibleError) Unwrap() error {
	return ErrLevelUpNotEligible
}

func notFound(entityType models.EntityType, id string) error {
	return notFoundRecord(string(entityType), id)
}

func notFoundRecord(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err means the target is missing or not owned.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrLevelUpNotEligible) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrUnsupportedEntityType) ||
		errors.Is(err, ErrInvalidSource) ||
		errors.Is(err, ErrInvalidInput)
}

func isDomainError(err error) bool {
	return IsNotFound(err) || IsClientError(err) || errors.Is(err, ErrTransactionFailure)
}

// txError surfaces storage failures as ErrTransactionFailure and passes
// domain errors through untouched.
func txError(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
}
