package models

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSession is returned when there is no signed-in user
var ErrNoSession = errors.New("no current session")

// ErrorKind classifies identity provider failures
type ErrorKind string

const (
	KindInvalidCredentials  ErrorKind = "invalid_credentials"
	KindPolicyViolation     ErrorKind = "policy_violation"
	KindDuplicateUser       ErrorKind = "duplicate_user"
	KindInvalidCode         ErrorKind = "invalid_code"
	KindExpired             ErrorKind = "expired"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindUnknown             ErrorKind = "unknown"
)

// AuthError is a classified provider failure. Message is what the provider
// reported and is shown to the user as is.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewError creates an AuthError without a cause
func NewError(kind ErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// WrapError creates an AuthError around cause
func WrapError(kind ErrorKind, message string, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: cause}
}

// Classify turns any error into an AuthError. Context timeouts and
// cancellations count as the provider being unavailable.
func Classify(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return WrapError(KindProviderUnavailable, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return WrapError(KindProviderUnavailable, "request canceled", err)
	}
	return WrapError(KindUnknown, err.Error(), err)
}

// UserMessage returns the text to display for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := Classify(err).Message
	if msg == "" {
		return string(Classify(err).Kind)
	}
	return msg
}

// IsKind reports whether err classifies as kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && Classify(err).Kind == kind
}
