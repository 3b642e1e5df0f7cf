// Package handlers provides HTTP request handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmledger/internal/domain"
	"pharmledger/internal/infrastructure/http/v1/dto"
)

// CatalogHandler provides generic CRUD handlers for reference catalogs.
// Req is the create/update body, Resp the rendered entity.
type CatalogHandler[T domain.CatalogEntity, Req any, Resp any] struct {
	*BaseHandler
	service *domain.CatalogService[T]

	mapCreate func(req Req) T
	mapUpdate func(req Req, existing T) T
	mapToDTO  func(entity T) Resp
}

// CatalogHandlerConfig configures the catalog handler.
type CatalogHandlerConfig[T domain.CatalogEntity, Req any, Resp any] struct {
	Service   *domain.CatalogService[T]
	MapCreate func(req Req) T
	MapUpdate func(req Req, existing T) T
	MapToDTO  func(entity T) Resp
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler[T domain.CatalogEntity, Req any, Resp any](
	base *BaseHandler,
	cfg CatalogHandlerConfig[T, Req, Resp],
) *CatalogHandler[T, Req, Resp] {
	return &CatalogHandler[T, Req, Resp]{
		BaseHandler: base,
		service:     cfg.Service,
		mapCreate:   cfg.MapCreate,
		mapUpdate:   cfg.MapUpdate,
		mapToDTO:    cfg.MapToDTO,
	}
}

// List handles GET /{entity}.
func (h *CatalogHandler[T, Req, Resp]) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToListFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, h.mapToDTO))
}

// Get handles GET /{entity}/:id.
func (h *CatalogHandler[T, Req, Resp]) Get(c *gin.Context) {
	entityID, ok := h.ParamID(c)
	if !ok {
		return
	}

	entity, err := h.service.GetByID(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.mapToDTO(entity))
}

// Create handles POST /{entity}.
func (h *CatalogHandler[T, Req, Resp]) Create(c *gin.Context) {
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}

	entity := h.mapCreate(req)
	if err := h.service.Create(c.Request.Context(), entity); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, h.mapToDTO(entity))
}

// Update handles PUT /{entity}/:id.
func (h *CatalogHandler[T, Req, Resp]) Update(c *gin.Context) {
	ctx := c.Request.Context()

	entityID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.service.GetByID(ctx, entityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	updated := h.mapUpdate(req, existing)
	if err := h.service.Update(ctx, updated); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.mapToDTO(updated))
}

// Delete handles DELETE /{entity}/:id. Referenced entities are refused with 409.
func (h *CatalogHandler[T, Req, Resp]) Delete(c *gin.Context) {
	entityID, ok := h.ParamID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), entityID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
