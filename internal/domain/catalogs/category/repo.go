package category

import (
	"pharmledger/internal/domain"
)

// Repository defines the interface for Category persistence.
// Create and Update map a unique-name violation to a Duplicate error.
type Repository interface {
	domain.CatalogRepository[*Category]
}
