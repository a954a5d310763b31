package scheduler

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrUnknownRule      = errors.New("unknown rule type")
	ErrMalformedRule    = errors.New("malformed rule")
	ErrUnknownStrength  = errors.New("unknown rule strength")
)

// Kind classifies a scheduling failure
type Kind int

const (
	KindValidation Kind = iota + 1
	KindInfeasible
	KindTimeout
	KindInvalidModel
	KindExtraction
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInfeasible:
		return "infeasible"
	case KindTimeout:
		return "timeout"
	case KindInvalidModel:
		return "invalid_model"
	case KindExtraction:
		return "extraction"
	default:
		return "internal"
	}
}

// Error is returned by Scheduler for every failed request
type Error struct {
	Kind        Kind
	Msg         string
	Err         error
	Explanation []string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API answers with
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Explanation returns the explanation attached to err, if any
func Explanation(err error) []string {
	var se *Error
	if errors.As(err, &se) {
		return se.Explanation
	}
	return nil
}
