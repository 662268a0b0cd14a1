package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/pipeline"
)

// RetryTaskHandler re-enqueues a failed task. The document resumes at
// its first incomplete stage rather than from the beginning.
func RetryTaskHandler(c echo.Context) error {
	type retryTaskParams struct {
		TaskID string `param:"id" validate:"required"`
	}

	type retryTaskResponse struct {
		Message string       `json:"message"`
		Task    *common.Task `json:"task,omitempty"`
	}

	params := new(retryTaskParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, retryTaskResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, retryTaskResponse{
			Message: "Invalid request params",
		})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	task, err := cc.App.Service.RetryTask(ctx, cc.Owner, params.TaskID)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusNotFound, retryTaskResponse{
				Message: "Task not found",
			})
		}
		if pipeline.IsPermanent(err) {
			return c.JSON(http.StatusConflict, retryTaskResponse{
				Message: err.Error(),
			})
		}
		logger.Error("Failed to retry task", "task", params.TaskID, "err", err)
		return c.JSON(http.StatusInternalServerError, retryTaskResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, retryTaskResponse{
		Message: "Task requeued",
		Task:    &task,
	})
}
