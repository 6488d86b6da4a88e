package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/middleware"
	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
)

const requestTimeout = 5 * time.Second

// AuthHandler serves sign-in, sign-out and the caller's own profile.
type AuthHandler struct {
	Auth       *service.Authenticator
	Identities service.IdentityStore
	Authz      *service.Authorizer
	Log        *zap.SugaredLogger
}

func NewAuthHandler(auth *service.Authenticator, identities service.IdentityStore, authz *service.Authorizer, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{Auth: auth, Identities: identities, Authz: authz, Log: log}
}

type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	User         model.Identity `json:"user"`
	Access       tokenPart      `json:"access"`
	SessionToken string         `json:"session_token,omitempty"`
}

// Login verifies phone and password. Drivers also receive the session token
// their device must present when revalidating.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Phone, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) && !errors.Is(err, service.ErrValidation) {
			h.Log.Errorw("login failed", "error", err)
		}
		return fail(c, err, "login failed")
	}
	return c.JSON(http.StatusOK, loginResp{
		User:         res.Identity,
		Access:       tokenPart{Token: res.Access.Token, Expires: res.Access.Exp},
		SessionToken: res.SessionToken,
	})
}

// Logout clears the driver session register. It is idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Auth.Logout(ctx, middleware.UserID(c)); err != nil {
		h.Log.Errorw("logout failed", "identity_id", middleware.UserID(c), "error", err)
		return fail(c, err, "logout failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type meResp struct {
	User        model.Identity     `json:"user"`
	Permissions []model.Permission `json:"permissions"`
}

// Me returns the caller's identity and effective permissions, both re-read
// from the store.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	id := middleware.UserID(c)
	identity, err := h.Identities.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "load profile failed")
	}
	perms, err := h.Authz.EffectivePermissions(ctx, id)
	if err != nil {
		h.Log.Errorw("effective permissions failed", "identity_id", id, "error", err)
		return fail(c, err, "load permissions failed")
	}
	return c.JSON(http.StatusOK, meResp{User: identity, Permissions: perms})
}
