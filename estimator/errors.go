package estimator

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed or incomplete architecture model.
// Always client-caused; surfaced as a 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports that the pricing catalog returned no product
// matching the requested criteria. The cause is ambiguous (bad region or
// instance type, or a catalog gap), so it is surfaced as a 500.
type NotFoundError struct {
	Kind     string
	Region   string
	Criteria string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s price found [region=%s, criteria=%s]", e.Kind, e.Region, e.Criteria)
}

// ProviderError reports a failed catalog call (network, auth, throttling).
type ProviderError struct {
	Kind string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("pricing catalog call failed [kind=%s]: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
