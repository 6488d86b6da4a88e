package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-identity/internal/model"
)

type permissionEntry struct {
	Key   model.Permission `json:"key"`
	Label string           `json:"label"`
}

type catalogResp struct {
	Permissions []permissionEntry             `json:"permissions"`
	Templates   map[string][]model.Permission `json:"templates"`
}

// PermissionCatalog lists every permission key with its label and the
// templates that pre-select them. The answer is static and identical for
// every caller.
func PermissionCatalog(c echo.Context) error {
	all := model.AllPermissions()
	resp := catalogResp{
		Permissions: make([]permissionEntry, 0, len(all)),
		Templates:   map[string][]model.Permission{},
	}
	for _, p := range all {
		resp.Permissions = append(resp.Permissions, permissionEntry{Key: p, Label: p.Label()})
	}
	for _, name := range model.TemplateNames() {
		perms, _ := model.ExpandTemplate(name)
		resp.Templates[name] = perms
	}
	return c.JSON(http.StatusOK, resp)
}
