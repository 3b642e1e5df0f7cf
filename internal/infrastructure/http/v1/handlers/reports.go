package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmledger/internal/domain/alerts"
	"pharmledger/internal/domain/reports"
	"pharmledger/internal/infrastructure/http/v1/dto"
)

// ScanEnqueuer queues an asynchronous alert scan.
type ScanEnqueuer interface {
	EnqueueManualScan(ctx context.Context) error
}

// ReportsHandler handles HTTP requests for reports and stock alerts.
type ReportsHandler struct {
	*BaseHandler
	service  *reports.Service
	alerts   *alerts.Service
	enqueuer ScanEnqueuer
}

// NewReportsHandler creates a new reports handler. enqueuer may be nil.
func NewReportsHandler(base *BaseHandler, service *reports.Service, alertSvc *alerts.Service, enqueuer ScanEnqueuer) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
		alerts:      alertSvc,
		enqueuer:    enqueuer,
	}
}

// Dashboard handles GET /reports/dashboard
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDashboard(d))
}

// SalesSummary handles GET /reports/sales-summary?from=&to=
func (h *ReportsHandler) SalesSummary(c *gin.Context) {
	var q dto.SalesSummaryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, err := q.Range()
	if err != nil {
		h.Error(c, err)
		return
	}

	summary, err := h.service.SalesSummary(c.Request.Context(), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSalesSummary(summary))
}

// Alerts handles GET /alerts. The catalogue is scanned synchronously.
func (h *ReportsHandler) Alerts(c *gin.Context) {
	report, err := h.alerts.Scan(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AlertsResponse{Report: report, Rules: dto.FromAlertRules(h.alerts.Rules())})
}

// QueueScan handles POST /alerts/scan. Without a queue the scan runs inline.
func (h *ReportsHandler) QueueScan(c *gin.Context) {
	if h.enqueuer == nil {
		h.Alerts(c)
		return
	}
	if err := h.enqueuer.EnqueueManualScan(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.ScanQueuedResponse{Queued: true})
}
