package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/infrastructure/storage/postgres"
)

// AuditReader reads the audit trail of an entity.
type AuditReader interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

var auditedEntities = map[string]bool{
	"category":     true,
	"supplier":     true,
	"medicine":     true,
	"sale":         true,
	"prescription": true,
}

// AuditHandler serves entity history.
type AuditHandler struct {
	*BaseHandler
	reader AuditReader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, reader AuditReader) *AuditHandler {
	return &AuditHandler{BaseHandler: base, reader: reader}
}

// History handles GET /audit/:entityType/:id
func (h *AuditHandler) History(c *gin.Context) {
	entityType := c.Param("entityType")
	if !auditedEntities[entityType] {
		h.Error(c, apperror.NewFieldValidation("entityType", "unknown entity type").WithDetail("value", entityType))
		return
	}
	entityID, ok := h.ParamID(c)
	if !ok {
		return
	}

	entries, err := h.reader.GetEntityHistory(c.Request.Context(), entityType, entityID, h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []postgres.AuditEntry{}
	}
	h.OK(c, gin.H{"items": entries})
}
