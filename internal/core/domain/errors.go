package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors, which are wrapped and
// returned as-is by the adapters.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an insert collided with an existing entity.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document format or action.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrCorruption indicates a stored record or compound key could not be
	// decoded. The entry is unusable; it is never silently skipped.
	ErrCorruption = errors.New("corrupted storage entry")

	// ErrInvalidTransition indicates a task status write-back that is not
	// allowed from the task's current status.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrUnauthorized indicates a credential failed verification or does not
	// grant the requested action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDecoderFault indicates a document decoder crashed while parsing.
	ErrDecoderFault = errors.New("document decoder fault")

	// Payload Errors.
	//
	// All payload errors wrap ErrPayload so callers can report them as
	// client-data errors without enumerating the variants.

	// ErrPayload indicates the uploaded payload could not be accepted.
	ErrPayload = errors.New("invalid payload")

	// ErrMissingPayload indicates the payload was empty.
	ErrMissingPayload = payloadError("missing payload")

	// ErrMalformedPayload indicates the payload did not parse in the declared format.
	ErrMalformedPayload = payloadError("malformed payload")

	// ErrPayloadTooLarge indicates the payload exceeded the configured size limit.
	ErrPayloadTooLarge = payloadError("payload too large")

	// ErrPayloadTimeout indicates no payload bytes arrived within the chunk timeout.
	ErrPayloadTimeout = payloadError("payload read timed out")

	// ErrPayloadTransport indicates the payload stream failed while being read.
	ErrPayloadTransport = payloadError("payload transport failure")
)

// payloadError builds a payload error variant that matches ErrPayload.
func payloadError(msg string) error {
	return &kindError{msg: msg, kind: ErrPayload}
}

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

// Is reports whether target is the error's kind, so errors.Is(err, ErrPayload)
// holds for every payload variant.
func (e *kindError) Is(target error) bool { return target == e.kind }

// IsClientError reports whether err is caused by caller-supplied data rather
// than a server-side storage fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPayload) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedType)
}
