// Package domain provides the repository contracts and generic catalogue service.
package domain

import (
	"context"
	"strings"

	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
)

// --- Filter & Pagination ---

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches names (case-insensitive substring)
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// IncludeArchived includes rows with the deletion mark set
	IncludeArchived bool

	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   defaultLimit,
		OrderBy: "name",
	}
}

// Normalize clamps pagination into the accepted range.
func (f *ListFilter) Normalize() {
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Repository Interfaces ---

// CatalogRepository defines CRUD operations for reference data.
type CatalogRepository[T entity.Validatable] interface {
	Create(ctx context.Context, entity T) error

	// GetByID returns apperror NotFound when missing
	GetByID(ctx context.Context, id id.ID) (T, error)

	// Update bumps updated_at; missing rows return NotFound
	Update(ctx context.Context, entity T) error

	// Delete removes the row. Rows still referenced fail with a referential violation.
	Delete(ctx context.Context, id id.ID) error

	List(ctx context.Context, filter ListFilter) (ListResult[T], error)

	Exists(ctx context.Context, id id.ID) (bool, error)

	// ExistsByName checks for a name, ignoring the row with excludeID
	ExistsByName(ctx context.Context, name string, excludeID id.ID) (bool, error)
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	BeforeDelete HookEvent = "before_delete"
	AfterDelete  HookEvent = "after_delete"
)

// Hook is a function that runs at specific lifecycle points.
// Before-hooks run inside the transaction and may abort it;
// after-hooks run once it has committed.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes hooks for the event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// RunAll executes every hook for the event and returns the errors it collected.
func (r *HookRegistry[T]) RunAll(ctx context.Context, event HookEvent, entity T) []error {
	var errs []error
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *HookRegistry[T]) OnBeforeCreate(hook Hook[T]) { r.On(BeforeCreate, hook) }
func (r *HookRegistry[T]) OnAfterCreate(hook Hook[T])  { r.On(AfterCreate, hook) }
func (r *HookRegistry[T]) OnBeforeUpdate(hook Hook[T]) { r.On(BeforeUpdate, hook) }
func (r *HookRegistry[T]) OnAfterUpdate(hook Hook[T])  { r.On(AfterUpdate, hook) }
func (r *HookRegistry[T]) OnBeforeDelete(hook Hook[T]) { r.On(BeforeDelete, hook) }
func (r *HookRegistry[T]) OnAfterDelete(hook Hook[T])  { r.On(AfterDelete, hook) }

// --- Audit ---

// AuditAction names what happened to an entity.
type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditArchive AuditAction = "archive"
)

// AuditRecorder writes the entity audit trail. Implementations participate
// in the caller's transaction.
type AuditRecorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes any) error
}

// NopAuditRecorder discards audit entries.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, string, id.ID, AuditAction, any) error { return nil }
