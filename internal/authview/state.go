// Package authview holds the state machine behind the authentication views.
package authview

import (
	"errors"
	"time"

	"github.com/brizzai/cogauth/internal/auth/models"
)

var (
	// ErrBusy is returned when an operation is attempted while another one is outstanding
	ErrBusy = errors.New("an operation is already in progress")
	// ErrInvalidTransition is returned when an operation is not allowed from the current view
	ErrInvalidTransition = errors.New("operation not allowed in the current view")
)

// State is the view currently shown
type State int

const (
	StateSignIn State = iota
	StateSignUp
	StateConfirmSignUp
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateSignIn:
		return "sign_in"
	case StateSignUp:
		return "sign_up"
	case StateConfirmSignUp:
		return "confirm_sign_up"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Field identifies one credential input
type Field int

const (
	FieldEmail Field = iota
	FieldPassword
	FieldConfirmPassword
	FieldVerificationCode
)

// Credentials are the values of the open form
type Credentials struct {
	Email            string
	Password         string
	ConfirmPassword  string
	VerificationCode string
}

// Snapshot is a copy of the controller state for rendering
type Snapshot struct {
	State        State
	Credentials  Credentials
	User         *models.SessionUser
	ErrorMessage string
	Busy         bool
}

// Options are fixed for the lifetime of a controller
type Options struct {
	// Timeout bounds each provider call. Zero waits forever.
	Timeout time.Duration
}
