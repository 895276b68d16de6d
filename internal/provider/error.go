// Package provider defines the failure taxonomy shared by the outbound call
// provider clients. The dialer decides whether to fall back by matching the
// error kind, never by inspecting message text.
package provider

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure.
type Kind string

const (
	// KindValidation marks a request rejected before any network call.
	KindValidation Kind = "validation"
	// KindPlanLimitation marks a capability unavailable on the current
	// subscription plan. This is the only kind that triggers fallback.
	KindPlanLimitation Kind = "plan_limitation"
	// KindPermission marks insufficient authorization.
	KindPermission Kind = "permission"
	// KindProvider marks any other provider or network failure.
	KindProvider Kind = "provider"
)

// Error carries a classified provider failure along with the raw response
// body for diagnostics.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Payload    []byte
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider: %s: %s (status=%d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, e.Message)
}

// Validation builds a KindValidation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// FromStatus classifies an HTTP failure status. planLimitationOn404 is set by
// clients whose provider signals missing plan capability as a 404.
func FromStatus(status int, msg string, payload []byte, planLimitationOn404 bool) *Error {
	kind := KindProvider
	switch {
	case planLimitationOn404 && status == 404:
		kind = KindPlanLimitation
	case status == 403:
		kind = KindPermission
	}
	return &Error{Kind: kind, StatusCode: status, Message: msg, Payload: payload}
}

// KindOf returns the kind of err, or KindProvider when err is not a
// classified provider error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindProvider
}

// IsPlanLimitation reports whether err is a plan-limitation failure.
func IsPlanLimitation(err error) bool {
	return KindOf(err) == KindPlanLimitation
}

// IsPermission reports whether err is an authorization failure.
func IsPermission(err error) bool {
	return KindOf(err) == KindPermission
}

// IsValidation reports whether err was rejected before any network call.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
