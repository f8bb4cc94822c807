package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration prevents a session from starting.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation is recoverable; the caller should prompt again.
	ErrValidation = errors.New("validation error")
	// ErrInvariant signals a driver bug such as acting out of turn.
	ErrInvariant = errors.New("invariant violation")
)

var (
	// ErrUnknownCategory is returned when the bank has no such category.
	ErrUnknownCategory = fmt.Errorf("%w: unknown category", ErrConfiguration)
	// ErrEmptyBank is returned when a category holds no questions.
	ErrEmptyBank = fmt.Errorf("%w: empty question bank", ErrConfiguration)
	// ErrParticipantCount is returned for counts outside [MinParticipants, MaxParticipants].
	ErrParticipantCount = fmt.Errorf("%w: participant count must be between %d and %d", ErrConfiguration, MinParticipants, MaxParticipants)
	// ErrMalformedQuestion is returned by loaders for questions the game cannot serve.
	ErrMalformedQuestion = fmt.Errorf("%w: malformed question", ErrConfiguration)

	// ErrEmptyName is returned when a submitted name is blank after trimming.
	ErrEmptyName = fmt.Errorf("%w: empty name", ErrValidation)

	ErrSlotOutOfRange     = fmt.Errorf("%w: slot out of range", ErrInvariant)
	ErrNameAlreadySet     = fmt.Errorf("%w: name already set for slot", ErrInvariant)
	ErrNoCurrentQuestion  = fmt.Errorf("%w: no current question", ErrInvariant)
	ErrNoTurn             = fmt.Errorf("%w: no participant has been picked", ErrInvariant)
	ErrUnnamedParticipant = fmt.Errorf("%w: current participant has no name", ErrInvariant)
	ErrOptionOutOfRange   = fmt.Errorf("%w: option out of range", ErrInvariant)
	ErrSessionNotFound    = fmt.Errorf("%w: game session not found", ErrInvariant)
)

// Kind returns the wire label of the error category.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	default:
		return "internal"
	}
}
