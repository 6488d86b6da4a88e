package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/service"
)

// SessionHandler answers driver clients polling their session.
type SessionHandler struct {
	Sessions *service.SessionManager
	Log      *zap.SugaredLogger
}

func NewSessionHandler(sessions *service.SessionManager, log *zap.SugaredLogger) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Log: log}
}

type validateReq struct {
	IdentityID   string `json:"identity_id"`
	SessionToken string `json:"session_token"`
}

// Validate compares the device's token with the register. An inconclusive
// read answers 503 so that the client keeps its session and retries.
func (h *SessionHandler) Validate(c echo.Context) error {
	var req validateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.IdentityID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identity_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	status, err := h.Sessions.Revalidate(ctx, req.IdentityID, req.SessionToken)
	if err != nil {
		h.Log.Warnw("session revalidation inconclusive", "identity_id", req.IdentityID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session state unavailable, retry later"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(status)})
}
