package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmledger/internal/domain/documents/prescription"
	"pharmledger/internal/infrastructure/http/v1/dto"
)

// PrescriptionHandler handles HTTP requests for prescriptions.
type PrescriptionHandler struct {
	*BaseHandler
	service *prescription.Service
}

// NewPrescriptionHandler creates a new prescription handler.
func NewPrescriptionHandler(base *BaseHandler, service *prescription.Service) *PrescriptionHandler {
	return &PrescriptionHandler{BaseHandler: base, service: service}
}

// Create handles POST /prescriptions.
func (h *PrescriptionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PrescriptionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	newID, err := h.service.Record(ctx, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	view, err := h.service.Get(ctx, newID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromPrescriptionView(view))
}

// Get handles GET /prescriptions/:id.
func (h *PrescriptionHandler) Get(c *gin.Context) {
	prescriptionID, ok := h.ParamID(c)
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), prescriptionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPrescriptionView(view))
}

// List handles GET /prescriptions.
func (h *PrescriptionHandler) List(c *gin.Context) {
	var q dto.PrescriptionQuery
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
	h.OK(c, dto.NewListResponse(result, dto.FromPrescriptionView))
}
