package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/entity"
	"github.com/casegraph/backend/pkg/logger"
)

// MergeEntitiesHandler folds duplicate canonical entities into a
// surviving primary. The merge is applied atomically and a metrics
// recompute is queued afterwards.
func MergeEntitiesHandler(c echo.Context) error {
	type mergeEntitiesBody struct {
		PrimaryID    string   `json:"primary_id" validate:"required"`
		DuplicateIDs []string `json:"duplicate_ids" validate:"required,min=1"`
	}

	type mergeEntitiesResponse struct {
		Message string                  `json:"message"`
		Entity  *common.CanonicalEntity `json:"entity,omitempty"`
	}

	data := new(mergeEntitiesBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, mergeEntitiesResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, mergeEntitiesResponse{
			Message: "Invalid request body",
		})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	merged, err := cc.App.Service.MergeEntities(ctx, cc.Owner, data.PrimaryID, data.DuplicateIDs)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusNotFound, mergeEntitiesResponse{
				Message: "Entity not found",
			})
		}
		if errors.Is(err, entity.ErrMergeSelf) || errors.Is(err, entity.ErrMergeNoTargets) {
			return c.JSON(http.StatusBadRequest, mergeEntitiesResponse{
				Message: err.Error(),
			})
		}
		logger.Error("Failed to merge entities", "primary", data.PrimaryID, "err", err)
		return c.JSON(http.StatusInternalServerError, mergeEntitiesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, mergeEntitiesResponse{
		Message: "Entities merged successfully",
		Entity:  &merged,
	})
}
