package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/logger"
)

func ListEntitiesHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	entities, err := cc.App.Store.ListEntities(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list entities", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, entities)
}
