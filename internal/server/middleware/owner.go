package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/pkg/common"
)

// OwnerHeader identifies the tenant every /api request acts for. There
// is no further authentication layer; the header is trusted as-is.
const OwnerHeader = "X-Owner-ID"

func OwnerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner := strings.TrimSpace(c.Request().Header.Get(OwnerHeader))
		if owner == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing " + OwnerHeader + " header"})
		}

		c.(*AppContext).Owner = common.Owner(owner)
		return next(c)
	}
}
