package types

import "errors"

// Sentinel error kinds surfaced to the user. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrTransport  = errors.New("transport error")
	ErrDomain     = errors.New("domain error")
)

// Fallback messages used when the backend does not provide one.
const (
	GenericTransportMessage = "Could not reach the analysis server. Check that the API is running."
	GenericDomainMessage    = "The server could not analyze this transfer function."
)

// RequestError is a user-displayable failure of one submission.
type RequestError struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewValidationError builds a RequestError of kind ErrValidation.
func NewValidationError(msg string) *RequestError {
	return &RequestError{Kind: ErrValidation, Message: msg}
}

// Message returns the user-facing text of err: the RequestError message when
// err carries one, else a generic connectivity message.
func Message(err error) string {
	var re *RequestError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return GenericTransportMessage
}
