package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmledger/internal/domain/documents/sale"
	"pharmledger/internal/infrastructure/export"
	"pharmledger/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for sales.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Record handles POST /sales.
// The stock decrement, number allocation and sale rows commit together.
func (h *SaleHandler) Record(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	recorded, err := h.service.RecordSale(ctx, cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	view, err := h.service.Get(ctx, recorded.ID)
	if err != nil {
		// committed already; answer with what RecordSale returned
		h.Created(c, dto.FromSale(recorded))
		return
	}
	h.Created(c, dto.FromSaleView(view))
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSaleView(view))
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromSale))
}

// Export handles GET /sales/export as an xlsx workbook.
func (h *SaleHandler) Export(c *gin.Context) {
	var q dto.SaleQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	sales, err := h.service.ExportLines(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSales(&buf, sales); err != nil {
		h.Error(c, fmt.Errorf("write workbook: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.SalesFilename(time.Now())))
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}
