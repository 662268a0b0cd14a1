package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/logger"
)

func GetNetworkHandler(c echo.Context) error {
	type getNetworkParams struct {
		Limit int `query:"limit" validate:"omitempty,min=1"`
	}

	params := new(getNetworkParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	projection, err := cc.App.Service.GetGraph(ctx, cc.Owner, params.Limit)
	if err != nil {
		logger.Error("Failed to project graph", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, projection)
}

func GetMetricsHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	snapshots, err := cc.App.Service.GetMetrics(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list metrics", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, snapshots)
}
