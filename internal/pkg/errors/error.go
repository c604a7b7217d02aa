package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrUnauthorized  = errors.New("unauthorized access")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict: resource was modified concurrently")
	ErrInternal      = errors.New("internal server error")
	ErrInvalidState  = errors.New("operation not allowed in current state")
	ErrFraudBlocked  = errors.New("payment blocked by fraud gate")
	ErrReviewPending = errors.New("payment held for fraud review")
	ErrDelivery      = errors.New("webhook delivery failed")
	ErrScheduler     = errors.New("scheduler record processing failed")
)

// Kind classifies an Error. Each kind unwraps to one of the sentinels above so
// callers can keep using errors.Is.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindInvalidState
	KindFraudBlocked
	KindReviewRequired
	KindDelivery
	KindScheduler
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindFraudBlocked:
		return "fraud_blocked"
	case KindReviewRequired:
		return "review_required"
	case KindDelivery:
		return "delivery_error"
	case KindScheduler:
		return "scheduler_error"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindInvalidState:
		return ErrInvalidState
	case KindFraudBlocked:
		return ErrFraudBlocked
	case KindReviewRequired:
		return ErrReviewPending
	case KindDelivery:
		return ErrDelivery
	case KindScheduler:
		return ErrScheduler
	default:
		return ErrInternal
	}
}

// Error is the typed error returned by the payment engine.
type Error struct {
	Kind    Kind
	Message string
	// Reason is a short machine-readable diagnostic, e.g. "expired" or
	// "already_completed" for invalid state errors.
	Reason string
	// Ref points at a related record (the fraud review id for review errors).
	Ref string
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the wrapped cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", what, id), Ref: id}
}

func InvalidState(message, reason string) *Error {
	return &Error{Kind: KindInvalidState, Message: message, Reason: reason}
}

func FraudBlocked(score int) *Error {
	return &Error{Kind: KindFraudBlocked, Message: fmt.Sprintf("payment blocked by risk score %d", score)}
}

func ReviewRequired(reviewID string, score int) *Error {
	return &Error{
		Kind:    KindReviewRequired,
		Message: fmt.Sprintf("payment held for manual review (risk score %d)", score),
		Ref:     reviewID,
	}
}

func Delivery(message string, err error) *Error {
	return &Error{Kind: KindDelivery, Message: message, Err: err}
}

func Scheduler(subscriptionID string, err error) *Error {
	return &Error{Kind: KindScheduler, Message: "subscription " + subscriptionID, Ref: subscriptionID, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
