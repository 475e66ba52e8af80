package httpx

import (
	"errors"
	"net/http"

	"github.com/teamtempo/tempo/internal/repository"
	"github.com/teamtempo/tempo/internal/service/auth"
	"github.com/teamtempo/tempo/internal/service/project"
	"github.com/teamtempo/tempo/internal/service/team"
)

// statusFor maps service and repository errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, team.ErrInvalid),
		errors.Is(err, project.ErrInvalid),
		errors.Is(err, auth.ErrInvalid),
		errors.Is(err, repository.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its mapped status. Internal errors are
// logged and replaced by a generic message.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		msg = "internal error"
	case status == http.StatusNotFound:
		msg = "not found"
	}
	writeError(w, status, msg)
}
