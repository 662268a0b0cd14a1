package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/pipeline"
	"github.com/casegraph/backend/pkg/store"
)

// App bundles the shared clients handlers need.
type App struct {
	Store   store.Storage
	Queue   queue.Queue
	Service *pipeline.Service
}

// AppContext wraps the echo context with the shared app clients and the
// resolved request owner.
type AppContext struct {
	echo.Context
	App   *App
	Owner common.Owner
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, ""}
			return next(cc)
		}
	}
}
