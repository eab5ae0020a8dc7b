package handlers

import (
	"strconv"

	"github.com/anonto42/nano-social/backend/internal/identity"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func okWithMeta(c echo.Context, status int, data any, meta echo.Map) error {
	return c.JSON(status, echo.Map{"success": true, "data": data, "meta": meta})
}

// currentUser returns the caller resolved by the identity middleware.
func currentUser(c echo.Context) (*models.User, error) {
	u := identity.CurrentUser(c)
	if u == nil {
		return nil, apperrors.ErrMissingToken
	}
	return u, nil
}

func uintParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.InvalidArg("invalid " + name)
	}
	return uint(id), nil
}

// bindAndValidate decodes the body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperrors.InvalidArg("invalid request payload")
	}
	return c.Validate(req)
}

// pageParams parses page/limit query values with defaults and a ceiling.
func pageParams(c echo.Context, defLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defLimit
	}
	return page, limit
}

func compactUsers(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, len(users))
	for i := range users {
		out[i] = users[i].ToCompact()
	}
	return out
}
