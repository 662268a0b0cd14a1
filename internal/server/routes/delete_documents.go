package routes

import (
	"net/http"
	"time"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/logger"
)

// DeleteDocumentHandler soft-deletes a document. In-flight pipeline
// stages observe the flag and skip further work; already-applied graph
// contributions are kept.
func DeleteDocumentHandler(c echo.Context) error {
	type deleteDocumentParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type deleteDocumentResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteDocumentParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteDocumentResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteDocumentResponse{
			Message: "Invalid request params",
		})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	doc, err := cc.App.Store.GetDocument(ctx, cc.Owner, params.DocumentID)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusNotFound, deleteDocumentResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to get document", "document", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteDocumentResponse{
			Message: "Internal server error",
		})
	}

	doc.Deleted = true
	doc.UpdatedAt = time.Now().UTC()
	if err := cc.App.Store.SaveDocument(ctx, doc); err != nil {
		logger.Error("Failed to delete document", "document", doc.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteDocumentResponse{
		Message: "Document deleted",
	})
}
