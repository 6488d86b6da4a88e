package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/service"
)

// fail writes the {"error": ...} envelope for a service error. Unmapped
// errors become a 500 carrying fallback so internals never leak. Partial
// staff provisioning keeps its own wording: the operator must know whether
// an account was left behind.
func fail(c echo.Context, err error, fallback string) error {
	status, msg := classify(err)
	if msg == "" {
		msg = fallback
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func classify(err error) (int, string) {
	var incomplete *service.IncompleteStaffError
	var comp *service.CompensationError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrNoMatchingCode),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrUnknownPermission):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrAuthzUnavailable):
		return http.StatusServiceUnavailable, "authorization temporarily unavailable"
	case errors.Is(err, service.ErrPhoneUnknown),
		errors.Is(err, service.ErrNotStaff):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrPhoneTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, err.Error()
	case errors.As(err, &incomplete):
		return http.StatusInternalServerError, incomplete.Error()
	case errors.As(err, &comp):
		return http.StatusInternalServerError, comp.Error()
	}
	return http.StatusInternalServerError, ""
}
