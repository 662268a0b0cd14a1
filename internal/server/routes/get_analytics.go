package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

// AnalyticsSummaryHandler returns owner-wide counts: documents by
// status, entity and alias totals, and the current graph size.
func AnalyticsSummaryHandler(c echo.Context) error {
	type analyticsSummaryResponse struct {
		Documents        int                           `json:"documents"`
		DocumentsByState map[common.DocumentStatus]int `json:"documents_by_state"`
		Entities         int                           `json:"entities"`
		Aliases          int                           `json:"aliases"`
		Nodes            int                           `json:"nodes"`
		Edges            int                           `json:"edges"`
	}

	cc := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	docs, err := cc.App.Store.ListDocuments(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list documents", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	entities, err := cc.App.Store.ListEntities(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list entities", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	aliases, err := cc.App.Store.ListAliases(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list aliases", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	nodes, err := cc.App.Store.ListNodes(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list nodes", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	edges, err := cc.App.Store.ListEdges(ctx, cc.Owner)
	if err != nil {
		logger.Error("Failed to list edges", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	byState := make(map[common.DocumentStatus]int)
	for _, doc := range docs {
		byState[doc.Status]++
	}

	return c.JSON(http.StatusOK, analyticsSummaryResponse{
		Documents:        len(docs),
		DocumentsByState: byState,
		Entities:         len(entities),
		Aliases:          len(aliases),
		Nodes:            len(nodes),
		Edges:            len(edges),
	})
}
