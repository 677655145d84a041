package failure

// Reason is a stable, machine-readable failure code.
type Reason string

const (
	ReasonUnknown                Reason = "UNKNOWN"
	ReasonWeakPassword           Reason = "WEAK_PASSWORD"
	ReasonSignatureInvalid       Reason = "SIGNATURE_INVALID"
	ReasonDecryptionFailed       Reason = "DECRYPTION_FAILED"
	ReasonPreKeysExhausted       Reason = "PREKEYS_EXHAUSTED"
	ReasonNetworkError           Reason = "NETWORK_ERROR"
	ReasonGenerationFailure      Reason = "GENERATION_FAILURE"
	ReasonConcurrencyViolation   Reason = "CONCURRENCY_VIOLATION"
	ReasonUntrustedIdentity      Reason = "UNTRUSTED_IDENTITY"
	ReasonRegistrationInProgress Reason = "REGISTRATION_IN_PROGRESS"
	ReasonInvalidArgument        Reason = "INVALID_ARGUMENT"
	ReasonNotFound               Reason = "NOT_FOUND"
	ReasonAlreadyExists          Reason = "ALREADY_EXISTS"
	ReasonUnauthenticated        Reason = "UNAUTHENTICATED"
	ReasonFailedPrecondition     Reason = "FAILED_PRECONDITION"
	ReasonRateLimited            Reason = "RATE_LIMITED"
	ReasonInternal               Reason = "INTERNAL"
)

// UserMessage returns a short sentence suitable for end users.
func (r Reason) UserMessage() string {
	switch r {
	case ReasonWeakPassword:
		return "Password is too weak. Use at least 12 characters with upper and lower case letters, a number and a symbol."
	case ReasonSignatureInvalid:
		return "A key bundle failed signature verification and was not used."
	case ReasonDecryptionFailed:
		return "Wrong password, or the stored keys cannot be decrypted."
	case ReasonPreKeysExhausted:
		return "The contact has no one-time prekeys left; the session was set up without one."
	case ReasonNetworkError:
		return "Could not reach the server. Please try again."
	case ReasonGenerationFailure:
		return "Key generation failed. Nothing was uploaded."
	case ReasonUntrustedIdentity:
		return "The contact's identity key changed. Verify the safety number before trusting it."
	case ReasonRegistrationInProgress:
		return "A device registration is already running."
	case ReasonUnauthenticated:
		return "Invalid username or password."
	case ReasonRateLimited:
		return "Too many requests. Slow down."
	}
	return "Something went wrong."
}
