package failure

import (
	"errors"
	"fmt"
)

// Error is a failure with a Reason, a message and an optional cause.
type Error struct {
	Reason  Reason `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same Reason, so sentinels work with errors.Is
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// New returns an *Error with no cause.
func New(reason Reason, message string) error {
	return &Error{Reason: reason, Message: message}
}

// Newf formats message.
func Newf(reason Reason, format string, args ...any) error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches reason and message to cause. A nil cause yields nil.
func Wrap(reason Reason, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Reason: reason, Message: message, Cause: cause}
}

// ReasonOf returns the Reason of the outermost *Error in err's chain.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonUnknown
}

// Has reports whether err carries reason anywhere in its chain.
func Has(err error, reason Reason) bool {
	return errors.Is(err, &Error{Reason: reason})
}

// Only reports whether err is non-nil and every error joined into it
// carries reason.
func Only(err error, reason Reason) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *Error:
		return e.Reason == reason
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if !Only(inner, reason) {
				return false
			}
		}
		return true
	}
	return Only(errors.Unwrap(err), reason)
}

var (
	ErrWeakPassword           = New(ReasonWeakPassword, "password does not meet the strength policy")
	ErrSignatureInvalid       = New(ReasonSignatureInvalid, "signed prekey signature does not verify")
	ErrDecryptionFailed       = New(ReasonDecryptionFailed, "cannot decrypt custody data")
	ErrPreKeysExhausted       = New(ReasonPreKeysExhausted, "no one-time prekeys available")
	ErrUntrustedIdentity      = New(ReasonUntrustedIdentity, "identity key does not match the pinned key")
	ErrRegistrationInProgress = New(ReasonRegistrationInProgress, "device registration already in progress")
	ErrNotFound               = New(ReasonNotFound, "not found")
	ErrAlreadyExists          = New(ReasonAlreadyExists, "already exists")
	ErrUnauthenticated        = New(ReasonUnauthenticated, "invalid credentials")
)

// Network wraps a transport failure.
func Network(op string, cause error) error {
	return Wrap(ReasonNetworkError, op, cause)
}

// Generation wraps a key generation failure.
func Generation(step string, cause error) error {
	return Wrap(ReasonGenerationFailure, "generate "+step, cause)
}

// InvalidArg returns an INVALID_ARGUMENT failure.
func InvalidArg(msg string) error { return New(ReasonInvalidArgument, msg) }

// FailedPrecondition returns a FAILED_PRECONDITION failure.
func FailedPrecondition(msg string) error { return New(ReasonFailedPrecondition, msg) }

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) error {
	if cause == nil {
		return New(ReasonInternal, msg)
	}
	return Wrap(ReasonInternal, msg, cause)
}
