package memory

import (
	"cmp"
	"slices"
	"strings"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
)

// orderFields maps a sortable field to its comparison.
type orderFields[T any] map[string]func(a, b T) int

// sortItems orders items like the SQL repositories: "-field" descends,
// ties break on id in the same direction.
func sortItems[T any](items []T, orderBy string, fields orderFields[T], fallback string, idOf func(T) id.ID) error {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		orderBy = fallback
	}

	desc := false
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		desc = true
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}
	field = strings.TrimSpace(field)

	compare, ok := fields[field]
	if !ok {
		return apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}

	slices.SortStableFunc(items, func(a, b T) int {
		c := compare(a, b)
		if c == 0 {
			c = compareIDs(idOf(a), idOf(b))
		}
		if desc {
			return -c
		}
		return c
	})
	return nil
}

func compareIDs(a, b id.ID) int {
	return slices.Compare(a[:], b[:])
}

// paginate cuts a page and reports the total before cutting.
func paginate[T any](items []T, filter domain.ListFilter) domain.ListResult[T] {
	result := domain.ListResult[T]{
		Items:      make([]T, 0),
		TotalCount: int64(len(items)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	start := min(max(filter.Offset, 0), len(items))
	end := len(items)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(items))
	}
	result.Items = append(result.Items, items[start:end]...)
	return result
}

// containsFold is the ILIKE '%term%' of the SQL repositories.
func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}

func optContainsFold(s *string, term string) bool {
	return s != nil && containsFold(*s, term)
}

func inIDs(ids []id.ID, v id.ID) bool {
	return len(ids) == 0 || slices.Contains(ids, v)
}

func cmpString(a, b string) int { return cmp.Compare(a, b) }

func cmpOptString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}
