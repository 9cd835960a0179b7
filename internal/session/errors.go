package session

import (
	"errors"

	"github.com/localsend-web/server/internal/models"
)

// Page and manager errors.
var (
	ErrPageNotFound = errors.New("session: page not found")
	ErrPageSettled  = errors.New("session: page no longer accepts loads")
	ErrNotRetryable = errors.New("session: page state does not allow retry")
)

// LoadError is the single error type returned by Loader.Load.
// Message is user-visible text.
type LoadError struct {
	Kind    models.ErrorKind
	Status  int // upstream HTTP status, 0 when no response was received
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a manual retry may succeed. Missing sessions are
// terminal and auth challenges are answered with a PIN instead.
func (e *LoadError) Retryable() bool {
	switch e.Kind {
	case models.ErrorKindRequestFailed, models.ErrorKindParseFailed, models.ErrorKindNetworkFailed:
		return true
	default:
		return false
	}
}

// KindOf returns the ErrorKind of err, or network_failed for foreign errors.
func KindOf(err error) models.ErrorKind {
	var le *LoadError
	if asLoadError(err, &le) {
		return le.Kind
	}
	return models.ErrorKindNetworkFailed
}

// IsAuthChallenge reports whether err asks for a (different) PIN.
func IsAuthChallenge(err error) bool {
	var le *LoadError
	return asLoadError(err, &le) && le.Kind == models.ErrorKindAuthRequired
}

func asLoadError(err error, target **LoadError) bool {
	return err != nil && errors.As(err, target)
}
