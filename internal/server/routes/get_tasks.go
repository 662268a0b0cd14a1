package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

func GetTaskHandler(c echo.Context) error {
	type getTaskParams struct {
		TaskID string `param:"id" validate:"required"`
	}

	type getTaskResponse struct {
		Message string       `json:"message"`
		Task    *common.Task `json:"task,omitempty"`
	}

	params := new(getTaskParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getTaskResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getTaskResponse{
			Message: "Invalid request params",
		})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	task, err := cc.App.Service.GetTaskStatus(ctx, cc.Owner, params.TaskID)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusNotFound, getTaskResponse{
				Message: "Task not found",
			})
		}
		logger.Error("Failed to get task", "task", params.TaskID, "err", err)
		return c.JSON(http.StatusInternalServerError, getTaskResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getTaskResponse{
		Message: "Task found",
		Task:    &task,
	})
}
