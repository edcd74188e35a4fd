package predict

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Failure kinds, matched with errors.Is.
var (
	// ErrModelUnavailable covers transport failures, 429/5xx and an open circuit.
	ErrModelUnavailable = eris.New("model unavailable")
	// ErrModelRejected means the model server refused the query (4xx).
	ErrModelRejected = eris.New("model rejected query")
	// ErrBadResponse means the response could not be interpreted.
	ErrBadResponse = eris.New("bad model response")
)

// Error is a classified model failure.
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := "predict: " + e.Kind.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the failure kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or nil if err is not a model failure.
func KindOf(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return nil
}
