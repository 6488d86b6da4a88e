package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/middleware"
	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
)

// AdminHandler serves permission introspection, the audit log and the
// audited moderation mutations.
type AdminHandler struct {
	Authz     *service.Authorizer
	Audit     *service.AuditLogger
	Moderator *service.Moderator
	Log       *zap.SugaredLogger
}

func NewAdminHandler(authz *service.Authorizer, audit *service.AuditLogger, mod *service.Moderator, log *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{Authz: authz, Audit: audit, Moderator: mod, Log: log}
}

// MyPermissions lists the caller's effective permission keys.
func (h *AdminHandler) MyPermissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	id := middleware.UserID(c)
	perms, err := h.Authz.EffectivePermissions(ctx, id)
	if err != nil {
		h.Log.Errorw("effective permissions failed", "identity_id", id, "error", err)
		return fail(c, err, "load permissions failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}

// CheckPermission answers whether the caller holds one key. A denial is a
// normal 200 answer here; only a store failure is an error.
func (h *AdminHandler) CheckPermission(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	key := model.Permission(c.Param("key"))
	ok, err := h.Authz.Check(ctx, middleware.UserID(c), key)
	if err != nil {
		return fail(c, err, "permission check failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"permission": key, "allowed": ok})
}

// AuditLogs pages through the ledger, newest first.
func (h *AdminHandler) AuditLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	entries, err := h.Audit.List(ctx, limit, offset)
	if err != nil {
		h.Log.Errorw("list audit logs failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list audit logs failed"})
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries, "limit": limit, "offset": offset})
}

type premiumReq struct {
	Premium   bool       `json:"premium"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *AdminHandler) SetDriverPremium(c echo.Context) error {
	var req premiumReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Moderator.SetDriverPremium(ctx, middleware.UserID(c), c.Param("id"), req.Premium, req.ExpiresAt); err != nil {
		return h.mutationFailed(c, "set premium", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type verifyReq struct {
	Verified bool `json:"verified"`
}

func (h *AdminHandler) SetDriverVerified(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Moderator.SetDriverVerified(ctx, middleware.UserID(c), c.Param("id"), req.Verified); err != nil {
		return h.mutationFailed(c, "set verified", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *AdminHandler) DeleteBanner(c echo.Context) error {
	return h.deleteRow(c, "delete banner", h.Moderator.DeleteBanner)
}

func (h *AdminHandler) DeleteReview(c echo.Context) error {
	return h.deleteRow(c, "delete review", h.Moderator.DeleteReview)
}

func (h *AdminHandler) DeleteMessage(c echo.Context) error {
	return h.deleteRow(c, "delete message", h.Moderator.DeleteMessage)
}

func (h *AdminHandler) deleteRow(c echo.Context, op string, del func(context.Context, string, uint64) error) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := del(ctx, middleware.UserID(c), id); err != nil {
		return h.mutationFailed(c, op, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type messageStatusReq struct {
	Status string `json:"status"`
}

func (h *AdminHandler) SetMessageStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req messageStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Moderator.SetMessageStatus(ctx, middleware.UserID(c), id, model.MessageStatus(req.Status)); err != nil {
		return h.mutationFailed(c, "set message status", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *AdminHandler) mutationFailed(c echo.Context, op string, err error) error {
	if status, _ := classify(err); status == http.StatusInternalServerError {
		h.Log.Errorw(op+" failed", "actor_id", middleware.UserID(c), "error", err)
	}
	return fail(c, err, op+" failed")
}
