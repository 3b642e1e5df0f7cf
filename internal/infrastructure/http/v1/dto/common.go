// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = time.DateOnly

// --- List ---

// ListQuery holds the common list query parameters.
type ListQuery struct {
	Search          string `form:"search"`
	Limit           int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset          int    `form:"offset" binding:"omitempty,min=0"`
	OrderBy         string `form:"orderBy"`
	IncludeArchived bool   `form:"includeArchived"`
}

// ToListFilter converts the query to a domain filter.
func (q ListQuery) ToListFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	f.IncludeArchived = q.IncludeArchived
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page with fn.
func NewListResponse[E, T any](res domain.ListResult[E], fn func(E) T) ListResponse[T] {
	items := make([]T, len(res.Items))
	for i, e := range res.Items {
		items[i] = fn(e)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// --- Simple responses ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Field helpers ---

// Money formats an amount with two decimals.
func Money(m types.Money) string {
	return m.StringFixed(2)
}

// FormatDate formats a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDatePtr formats an optional date.
func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperror.NewFieldValidation(field, "date must be YYYY-MM-DD").
			WithDetail("value", value)
	}
	return t, nil
}

// ParseDatePtr parses an optional date. Empty strings map to nil.
func ParseDatePtr(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseDayStart parses a YYYY-MM-DD range bound as the instant that business day begins.
func ParseDayStart(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), types.BusinessLocation())
	if err != nil {
		return time.Time{}, apperror.NewFieldValidation(field, "date must be YYYY-MM-DD").
			WithDetail("value", value)
	}
	return t, nil
}

// ParseDayStartPtr parses an optional range bound. Empty strings map to nil.
func ParseDayStartPtr(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := ParseDayStart(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseMoney parses a decimal amount.
func ParseMoney(field, value string) (types.Money, error) {
	m, err := types.NewMoneyFromString(strings.TrimSpace(value))
	if err != nil {
		return types.Zero(), apperror.NewFieldValidation(field, "amount must be a decimal number").
			WithDetail("value", value)
	}
	return m, nil
}

// ParseOptionalID parses an optional id. Empty strings map to nil.
func ParseOptionalID(field string, value *string) (*id.ID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := id.Parse(strings.TrimSpace(*value))
	if err != nil {
		return nil, apperror.NewFieldValidation(field, "invalid id format")
	}
	return &parsed, nil
}

// IDString formats an optional id.
func IDString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

// trimPtr returns nil for blank strings.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
