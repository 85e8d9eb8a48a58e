package events

import "fmt"

// InvalidParametersError reports a bad search parameter. It is returned
// before any provider call is made.
type InvalidParametersError struct {
	Field   string
	Message string
}

func (e InvalidParametersError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthError means the provider API key is missing or was rejected. Status is
// zero when no request was made (key absent from configuration).
type AuthError struct {
	Status  int
	Message string
}

func (e AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("provider auth: %s", e.Message)
	}
	return fmt.Sprintf("provider auth (%d): %s", e.Status, e.Message)
}

// ProviderError is a non-2xx provider response or a transport failure.
// Status is zero for transport failures.
type ProviderError struct {
	Status  int
	Message string
}

func (e ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("provider request: %s", e.Message)
	}
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// MalformedResponseError is a 2xx provider response whose body could not be
// decoded into the expected shape.
type MalformedResponseError struct {
	Err error
}

func (e MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed provider response: %v", e.Err)
}

func (e MalformedResponseError) Unwrap() error {
	return e.Err
}
