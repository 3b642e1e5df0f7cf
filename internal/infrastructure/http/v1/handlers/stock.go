package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmledger/internal/domain/registers/stock"
	"pharmledger/internal/infrastructure/http/v1/dto"
)

// StockHandler serves the stock movement ledger.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock ledger handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// ListMovements handles GET /stock-movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	filter, ok := h.movementFilter(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromMovementView))
}

// Totals handles GET /stock/totals
func (h *StockHandler) Totals(c *gin.Context) {
	filter, ok := h.movementFilter(c)
	if !ok {
		return
	}

	totals, err := h.service.Totals(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if totals == nil {
		totals = []stock.KindTotal{}
	}
	h.OK(c, dto.MovementTotalsResponse{Totals: totals})
}

func (h *StockHandler) movementFilter(c *gin.Context) (stock.MovementFilter, bool) {
	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return stock.MovementFilter{}, false
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return stock.MovementFilter{}, false
	}
	return filter, true
}
