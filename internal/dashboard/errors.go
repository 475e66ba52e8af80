package dashboard

import (
	"errors"
	"fmt"
)

// Errors a Source reports. Implementations wrap them so callers can match
// with errors.Is.
var (
	ErrNetwork  = errors.New("dashboard: data source unavailable")
	ErrAuth     = errors.New("dashboard: authentication required")
	ErrNotFound = errors.New("dashboard: not found")
)

// TeamsLoadError reports a failed team-list fetch.
type TeamsLoadError struct {
	Err error
}

func (e *TeamsLoadError) Error() string {
	return fmt.Sprintf("load teams: %v", e.Err)
}

func (e *TeamsLoadError) Unwrap() error { return e.Err }

// ProjectDetailLoadError reports a failed detail fetch for one project.
type ProjectDetailLoadError struct {
	ProjectID string
	Err       error
}

func (e *ProjectDetailLoadError) Error() string {
	return fmt.Sprintf("load project %s: %v", e.ProjectID, e.Err)
}

func (e *ProjectDetailLoadError) Unwrap() error { return e.Err }

func teamsMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "Your session has expired. Please sign in again."
	default:
		return "Could not load your teams. Try again."
	}
}

func projectMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrNotFound):
		return "This project no longer exists."
	default:
		return "Could not load the project iterations. Try again."
	}
}
