package api

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"focus-time-service/internal/focus-manager/insights"
	"focus-time-service/internal/focus-manager/services"
)

type InsightHandler struct {
	Service *services.InsightService
}

func NewInsightHandler(service *services.InsightService) *InsightHandler {
	return &InsightHandler{Service: service}
}

// GetInsights serves the cached result of the most recent analysis run.
func (h *InsightHandler) GetInsights(ctx context.Context, c *app.RequestContext) {
	list, ranAt := h.Service.Latest()
	if list == nil {
		list = []insights.Insight{}
	}
	c.JSON(http.StatusOK, utils.H{"insights": list, "generated_at": ranAt})
}

// RefreshInsights recomputes insights on demand and serves the fresh list.
func (h *InsightHandler) RefreshInsights(ctx context.Context, c *app.RequestContext) {
	list := h.Service.Refresh()
	if list == nil {
		list = []insights.Insight{}
	}
	c.JSON(http.StatusOK, utils.H{"insights": list, "count": len(list)})
}
