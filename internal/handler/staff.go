package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/middleware"
	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
)

// StaffHandler exposes staff provisioning to admins.
type StaffHandler struct {
	Staff *service.StaffProvisioner
	Log   *zap.SugaredLogger
}

func NewStaffHandler(staff *service.StaffProvisioner, log *zap.SugaredLogger) *StaffHandler {
	return &StaffHandler{Staff: staff, Log: log}
}

type createStaffReq struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FullName    string   `json:"full_name"`
	Phone       string   `json:"phone"`
	Permissions []string `json:"permissions"`
	Template    string   `json:"template"`
	AdminID     string   `json:"admin_id"`
}

type updateStaffReq struct {
	StaffID     string   `json:"staff_id"`
	FullName    string   `json:"full_name"`
	Phone       string   `json:"phone"`
	Password    string   `json:"password"`
	Permissions []string `json:"permissions"`
	Template    string   `json:"template"`
	AdminID     string   `json:"admin_id"`
}

// grantSet applies a template when no explicit keys were sent.
func grantSet(perms []string, template string) ([]string, bool) {
	if len(perms) > 0 || template == "" {
		return perms, true
	}
	expanded, ok := model.ExpandTemplate(template)
	if !ok {
		return nil, false
	}
	out := make([]string, len(expanded))
	for i, p := range expanded {
		out[i] = string(p)
	}
	return out, true
}

// callerMatches rejects requests whose admin_id is not the authenticated
// caller, so no admin can act under another's name in the audit log.
func callerMatches(c echo.Context, adminID string) bool {
	return adminID != "" && adminID == middleware.UserID(c)
}

func (h *StaffHandler) Create(c echo.Context) error {
	var req createStaffReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AdminID == "" {
		req.AdminID = middleware.UserID(c)
	}
	if !callerMatches(c, req.AdminID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin_id does not match the signed-in admin"})
	}
	perms, ok := grantSet(req.Permissions, req.Template)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown permission template"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	identity, err := h.Staff.Create(ctx, service.CreateStaffInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Phone:       req.Phone,
		Permissions: perms,
		AdminID:     req.AdminID,
	})
	if err != nil {
		h.logFailure("create", "", err)
		return fail(c, err, "create staff failed")
	}
	email := ""
	if identity.Email != nil {
		email = *identity.Email
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"user":    echo.Map{"id": identity.ID, "email": email},
	})
}

func (h *StaffHandler) Update(c echo.Context) error {
	var req updateStaffReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if id := c.Param("id"); id != "" {
		if req.StaffID != "" && req.StaffID != id {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "staff_id does not match the path"})
		}
		req.StaffID = id
	}
	if req.AdminID == "" {
		req.AdminID = middleware.UserID(c)
	}
	if !callerMatches(c, req.AdminID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin_id does not match the signed-in admin"})
	}
	perms, ok := grantSet(req.Permissions, req.Template)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown permission template"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	err := h.Staff.Update(ctx, service.UpdateStaffInput{
		StaffID:     req.StaffID,
		FullName:    req.FullName,
		Phone:       req.Phone,
		Password:    req.Password,
		Permissions: perms,
		AdminID:     req.AdminID,
	})
	if err != nil {
		h.logFailure("update", req.StaffID, err)
		return fail(c, err, "update staff failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *StaffHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	id := c.Param("id")
	if err := h.Staff.Remove(ctx, id, middleware.UserID(c)); err != nil {
		h.logFailure("delete", id, err)
		return fail(c, err, "delete staff failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// logFailure keeps expected rejections out of the error log.
func (h *StaffHandler) logFailure(op, staffID string, err error) {
	if errors.Is(err, service.ErrValidation) || errors.Is(err, service.ErrPhoneTaken) ||
		errors.Is(err, service.ErrEmailTaken) || errors.Is(err, service.ErrNotStaff) {
		return
	}
	h.Log.Errorw("staff "+op+" failed", "staff_id", staffID, "error", err)
}
