// server/internal/bidding/errors.go
package bidding

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so transport layers can map it to a
// status code without parsing messages.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidState      Kind = "invalid_state"
	KindEligibilityFailed Kind = "eligibility_failed"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation"
)

// Error is the typed failure every service operation returns. Reasons is
// populated for eligibility and validation failures and carries the full list
// of deficiencies, not just the first.
type Error struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	Reasons []string `json:"reasons,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// AsServiceError unwraps err into an *Error when it carries one.
func AsServiceError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func invalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func eligibilityFailed(reasons []string) *Error {
	return &Error{
		Kind:    KindEligibilityFailed,
		Message: "You do not meet the eligibility criteria for this load",
		Reasons: reasons,
	}
}

func validation(reasons []string) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid request", Reasons: reasons}
}
