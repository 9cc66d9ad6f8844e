// Package views orchestrates each screen: it fetches what the screen needs,
// runs the aggregation engine over it and returns display-ready models.
//
// Loaders never fail. A backend problem is logged and surfaces as a short
// message on the model next to an empty or neutral display. Actions that
// the user triggers (create, submit, login) return an *Error instead.
package views

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/results"
)

// Backend is the subset of the API client the screens use.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, username, email, password string) (*api.RegisterResponse, error)
	Me(ctx context.Context) (*api.User, error)
	Projects(ctx context.Context) ([]api.Project, error)
	Project(ctx context.Context, id results.ID) (*api.Project, error)
	CreateProject(ctx context.Context, in api.ProjectInput) (*api.Project, error)
	UpdateProject(ctx context.Context, id results.ID, in api.ProjectInput) (*api.Project, error)
	DeleteProject(ctx context.Context, id results.ID) error
	Results(ctx context.Context, projectID results.ID, year string) ([]results.Record, error)
	Measures(ctx context.Context, projectID results.ID) (*results.Measures, error)
	AnalyzeRaw(ctx context.Context, w api.Window, opinions []api.Opinion) (*results.Record, error)
	AnalyzeCSV(ctx context.Context, w api.Window, filename string, file io.Reader) (*results.Record, error)
}

var _ Backend = (*api.Client)(nil)

// now is swapped in tests.
var now = time.Now

// ErrValidation matches every error raised by input validation.
var ErrValidation = errors.New("validation failed")

// Kind classifies an action failure.
type Kind int

const (
	// KindValidation means the input was rejected before any network call.
	KindValidation Kind = iota + 1
	// KindBackend means the backend call failed.
	KindBackend
)

// Error is an action failure with a message fit for the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrValidation) match validation failures.
func (e *Error) Is(target error) bool {
	return target == ErrValidation && e.Kind == KindValidation
}

func invalid(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func backendFailure(err error, fallback string) error {
	return &Error{Kind: KindBackend, Message: api.Message(err, fallback), Err: err}
}

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
