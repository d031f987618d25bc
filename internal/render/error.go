package render

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindTimeout Kind = iota
	KindHTTP
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Error classifies a failed render so the operator can tell "the site
// blocked me" apart from "the page never loaded". All kinds are handled by
// the same retry policy upstream.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("render %s: %s (HTTP %d)", e.URL, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("render %s: %s: %v", e.URL, e.Kind, e.Err)
	}

	return fmt.Sprintf("render %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsTimeout(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindTimeout
}

func IsBlocked(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindBlocked
}
