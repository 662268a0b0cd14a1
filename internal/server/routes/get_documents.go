package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

func ListDocumentsHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	docs, err := cc.App.Store.ListDocuments(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list documents", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	// Raw text can be large; the listing only carries metadata.
	for i := range docs {
		docs[i].RawText = ""
	}

	return c.JSON(http.StatusOK, docs)
}

func GetDocumentHandler(c echo.Context) error {
	type getDocumentParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type getDocumentResponse struct {
		Message  string           `json:"message"`
		Document *common.Document `json:"document,omitempty"`
		Tasks    []common.Task    `json:"tasks,omitempty"`
	}

	params := new(getDocumentParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getDocumentResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getDocumentResponse{
			Message: "Invalid request params",
		})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	doc, err := cc.App.Store.GetDocument(ctx, cc.Owner, params.DocumentID)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusNotFound, getDocumentResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to get document", "document", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, getDocumentResponse{
			Message: "Internal server error",
		})
	}

	tasks, err := cc.App.Store.ListDocumentTasks(ctx, cc.Owner, doc.ID)
	if err != nil {
		logger.Error("Failed to list document tasks", "document", doc.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getDocumentResponse{
		Message:  "Document found",
		Document: &doc,
		Tasks:    tasks,
	})
}

func GetDocumentAnalysesHandler(c echo.Context) error {
	type getAnalysesParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	params := new(getAnalysesParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	analyses, err := cc.App.Service.ListAnalyses(ctx, cc.Owner, params.DocumentID)
	if err != nil {
		logger.Error("Failed to list analyses", "document", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, analyses)
}
