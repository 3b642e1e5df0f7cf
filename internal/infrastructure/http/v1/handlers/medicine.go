package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/registers/stock"
	"pharmledger/internal/infrastructure/http/v1/dto"
)

const defaultExpiringDays = 30

// MedicineHandler serves the medicine catalogue and its stock operations.
type MedicineHandler struct {
	*BaseHandler
	service *medicine.Service
	stock   *stock.Service
}

// NewMedicineHandler creates a new medicine handler.
func NewMedicineHandler(base *BaseHandler, service *medicine.Service, stockSvc *stock.Service) *MedicineHandler {
	return &MedicineHandler{BaseHandler: base, service: service, stock: stockSvc}
}

// List handles GET /medicines.
func (h *MedicineHandler) List(c *gin.Context) {
	var q dto.MedicineQuery
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
	h.OK(c, dto.NewListResponse(result, dto.FromMedicineView))
}

// LowStock handles GET /medicines/low-stock.
func (h *MedicineHandler) LowStock(c *gin.Context) {
	result, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromMedicineView))
}

// Expiring handles GET /medicines/expiring?days=N.
func (h *MedicineHandler) Expiring(c *gin.Context) {
	days := h.ParseIntQuery(c, "days", defaultExpiringDays)
	if days < 0 {
		h.Error(c, apperror.NewFieldValidation("days", "must not be negative"))
		return
	}

	result, err := h.service.Expiring(c.Request.Context(), days)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromMedicineView))
}

// Get handles GET /medicines/:id.
func (h *MedicineHandler) Get(c *gin.Context) {
	medicineID, ok := h.ParamID(c)
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMedicineView(view))
}

// Create handles POST /medicines. The opening quantity is posted as an "in" movement.
func (h *MedicineHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.MedicineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := req.ToEntity(nil)
	if err != nil {
		h.Error(c, err)
		return
	}

	newID, err := h.service.Upsert(ctx, m)
	if err != nil {
		h.Error(c, err)
		return
	}
	view, err := h.service.Get(ctx, newID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMedicineView(view))
}

// Update handles PUT /medicines/:id. Quantity in the body is ignored.
func (h *MedicineHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.MedicineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.service.GetByID(ctx, medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	m, err := req.ToEntity(existing)
	if err != nil {
		h.Error(c, err)
		return
	}
	if _, err := h.service.Upsert(ctx, m); err != nil {
		h.Error(c, err)
		return
	}

	view, err := h.service.Get(ctx, medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMedicineView(view))
}

// Delete handles DELETE /medicines/:id.
func (h *MedicineHandler) Delete(c *gin.Context) {
	medicineID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), medicineID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Archive handles POST /medicines/:id/archive.
func (h *MedicineHandler) Archive(c *gin.Context) {
	medicineID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.ArchiveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.service.Archive(c.Request.Context(), medicineID, req.Archived); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Adjust handles POST /medicines/:id/adjust.
func (h *MedicineHandler) Adjust(c *gin.Context) {
	medicineID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}
	adj, err := req.ToAdjustment(medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, quantity, err := h.service.AdjustQuantity(c.Request.Context(), adj)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AdjustResponse{Movement: dto.FromMovement(*movement), Quantity: quantity})
}

// Movements handles GET /medicines/:id/movements.
func (h *MedicineHandler) Movements(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	if _, err := h.service.GetByID(ctx, medicineID); err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.stock.History(ctx, medicineID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromMovementView))
}
