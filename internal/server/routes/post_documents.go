package routes

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

// UploadDocumentHandler stores an uploaded file on disk, records the
// document, and enqueues the processing pipeline for it.
func UploadDocumentHandler(c echo.Context) error {
	type uploadDocumentResponse struct {
		Message  string           `json:"message"`
		Document *common.Document `json:"document,omitempty"`
		Task     *common.Task     `json:"task,omitempty"`
	}

	cc := c.(*middleware.AppContext)

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadDocumentResponse{
			Message: "No file provided",
		})
	}

	docID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, uploadDocumentResponse{
			Message: "Internal server error",
		})
	}

	dir := filepath.Join(util.GetEnvString("UPLOAD_DIR", "uploads"), string(cc.Owner))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("Failed to create upload dir", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadDocumentResponse{
			Message: "Internal server error",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadDocumentResponse{
			Message: "Could not open file",
		})
	}
	defer src.Close()

	dstPath := filepath.Join(dir, docID+filepath.Ext(file.Filename))
	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error("Failed to write upload", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadDocumentResponse{
			Message: "Internal server error",
		})
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		logger.Error("Failed to write upload", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadDocumentResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	doc := common.Document{
		ID:        docID,
		Owner:     cc.Owner,
		Filename:  file.Filename,
		FilePath:  dstPath,
		Status:    common.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := cc.App.Store.SaveDocument(ctx, doc); err != nil {
		logger.Error("Failed to save document", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadDocumentResponse{
			Message: "Internal server error",
		})
	}

	task, err := cc.App.Service.EnqueueDocument(ctx, cc.Owner, doc.ID)
	if err != nil {
		logger.Error("Failed to enqueue document", "document", doc.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadDocumentResponse{
			Message:  "Document stored but could not be queued",
			Document: &doc,
		})
	}

	return c.JSON(http.StatusOK, uploadDocumentResponse{
		Message:  "Document uploaded successfully",
		Document: &doc,
		Task:     &task,
	})
}

// ProcessDocumentHandler re-enqueues an existing document, picking up at
// its first incomplete stage.
func ProcessDocumentHandler(c echo.Context) error {
	type processDocumentParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type processDocumentResponse struct {
		Message string       `json:"message"`
		Task    *common.Task `json:"task,omitempty"`
	}

	params := new(processDocumentParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, processDocumentResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, processDocumentResponse{
			Message: "Invalid request params",
		})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	task, err := cc.App.Service.EnqueueDocument(ctx, cc.Owner, params.DocumentID)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusNotFound, processDocumentResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to enqueue document", "document", params.DocumentID, "err", err)
		return c.JSON(http.StatusBadRequest, processDocumentResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, processDocumentResponse{
		Message: "Processing started",
		Task:    &task,
	})
}

// RequestAnalysisHandler queues an LLM analysis of a document's text.
func RequestAnalysisHandler(c echo.Context) error {
	type requestAnalysisBody struct {
		DocumentID string `param:"id" validate:"required"`
		Kind       string `json:"kind"`
	}

	type requestAnalysisResponse struct {
		Message string       `json:"message"`
		Task    *common.Task `json:"task,omitempty"`
	}

	data := new(requestAnalysisBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, requestAnalysisResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, requestAnalysisResponse{
			Message: "Invalid request body",
		})
	}

	kind := common.AnalysisKind(data.Kind)
	switch kind {
	case "", common.AnalysisSummary:
		kind = common.AnalysisSummary
	case common.AnalysisSentiment, common.AnalysisArguments:
	default:
		return c.JSON(http.StatusBadRequest, requestAnalysisResponse{
			Message: "Unknown analysis kind",
		})
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	task, err := cc.App.Service.RequestAnalysis(ctx, cc.Owner, data.DocumentID, kind)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusNotFound, requestAnalysisResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to request analysis", "document", data.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, requestAnalysisResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, requestAnalysisResponse{
		Message: "Analysis queued",
		Task:    &task,
	})
}
