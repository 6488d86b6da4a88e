package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/service"
)

// ResetHandler runs password reset by one-time code.
type ResetHandler struct {
	Reset *service.PasswordResetter
	Log   *zap.SugaredLogger
}

func NewResetHandler(reset *service.PasswordResetter, log *zap.SugaredLogger) *ResetHandler {
	return &ResetHandler{Reset: reset, Log: log}
}

type issueCodeReq struct {
	Phone string `json:"phone"`
}

type verifyCodeReq struct {
	Phone       string `json:"phone"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *ResetHandler) Request(c echo.Context) error {
	var req issueCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Reset.Issue(ctx, req.Phone); err != nil {
		if status, _ := classify(err); status == http.StatusInternalServerError {
			h.Log.Errorw("issue code failed", "error", err)
		}
		return fail(c, err, "could not create a reset code")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "a verification code has been sent"})
}

func (h *ResetHandler) Verify(c echo.Context) error {
	var req verifyCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Reset.VerifyAndReset(ctx, req.Phone, req.OTP, req.NewPassword); err != nil {
		if status, _ := classify(err); status == http.StatusInternalServerError {
			h.Log.Errorw("password reset failed", "error", err)
		}
		return fail(c, err, "password reset failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "password updated"})
}
