// Package failure defines the typed failure reasons surfaced to callers.
//
// Every error that crosses a service boundary is (or wraps) an *Error
// carrying a Reason, so presentation code can pick a user-facing message
// with ReasonOf without looking at cryptographic internals.
//
// # Notes
//
// PreKeysExhausted is a signal rather than a fault: the allocator reports it
// through its return values and only the session layer turns it into a
// logged degraded-mode notice.
package failure
