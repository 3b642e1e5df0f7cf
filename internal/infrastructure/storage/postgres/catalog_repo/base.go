// Package catalog_repo provides PostgreSQL implementations for catalogue repositories.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
	"pharmledger/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides common CRUD operations for catalogue tables.
// Embed this in specific catalogue repositories.
type BaseCatalogRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	newFn      func() T

	// archivable tables carry a deletion_mark column
	archivable bool
}

// NewBaseCatalogRepo creates a new base catalogue repository.
func NewBaseCatalogRepo[T any](
	txManager *postgres.TxManager,
	tableName, entityName string,
	selectCols []string,
	newFn func() T,
) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		entityName: entityName,
		selectCols: selectCols,
		newFn:      newFn,
		archivable: slices.Contains(selectCols, "deletion_mark"),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// columnsOf keeps the entity's db fields that exist in selectCols.
func (r *BaseCatalogRepo[T]) columnsOf(entity T, skip ...string) map[string]any {
	data := postgres.StructToMap(entity)
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if slices.Contains(skip, col) {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered
}

// Create inserts a new entity using its "db" tags.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, entity T) error {
	data := r.columnsOf(entity)
	if len(data) == 0 {
		return errors.New("no db tags found in entity")
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, postgres.TranslateError(err))
	}
	return nil
}

// Update writes every column except id and creation stamps.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)
	entityID, ok := data["id"]
	if !ok {
		return errors.New("entity has no 'id' field with db tag")
	}

	// Exclude immutable fields from SET
	set := r.columnsOf(entity, "id", "created_at", "created_by")
	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(set).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, postgres.TranslateError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID)
	}
	return nil
}

// baseSelect creates a SELECT builder.
func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves entity by ID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Limit(1), entityID.String())
}

// FindOne executes a SELECT query and returns a single entity.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	entity := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, key)
		}
		return entity, fmt.Errorf("get %s: %w", r.entityName, postgres.TranslateError(err))
	}
	return entity, nil
}

// listQuery applies the common filter to a select.
func (r *BaseCatalogRepo[T]) listQuery(q squirrel.SelectBuilder, filter domain.ListFilter, prefix string) squirrel.SelectBuilder {
	if r.archivable && !filter.IncludeArchived {
		q = q.Where(squirrel.Eq{prefix + "deletion_mark": false})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{prefix + "name": "%" + filter.Search + "%"})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{prefix + "id": filter.IDs})
	}
	return q
}

// List retrieves entities with filtering and pagination.
func (r *BaseCatalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	q := r.listQuery(r.baseSelect(), filter, "")
	return Paginate[T](ctx, r.querier(ctx), q, filter, r.parseOrderBy)
}

// Paginate counts q, then selects one ordered page of it.
func Paginate[T any](
	ctx context.Context,
	querier postgres.Querier,
	q squirrel.SelectBuilder,
	filter domain.ListFilter,
	orderBy func(string) (string, error),
) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Items:  make([]T, 0),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	// Count total (before pagination)
	countSQL, countArgs, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", postgres.TranslateError(err))
	}

	// Apply ordering
	order, err := orderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(order)

	// Apply pagination
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", postgres.TranslateError(err))
	}
	return result, nil
}

// Exists checks if entity exists.
func (r *BaseCatalogRepo[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"id": entityID})
}

// ExistsByName checks for another row with the same name (case-sensitive).
func (r *BaseCatalogRepo[T]) ExistsByName(ctx context.Context, name string, excludeID id.ID) (bool, error) {
	cond := squirrel.And{squirrel.Eq{"name": strings.TrimSpace(name)}}
	if !id.IsNil(excludeID) {
		cond = append(cond, squirrel.NotEq{"id": excludeID})
	}
	return r.exists(ctx, cond)
}

func (r *BaseCatalogRepo[T]) exists(ctx context.Context, cond squirrel.Sqlizer) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").
		From(r.tableName).
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists in %s: %w", r.tableName, postgres.TranslateError(err))
	}
	return true, nil
}

// Delete performs physical removal. Referenced rows fail with a referential violation.
func (r *BaseCatalogRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	sql, args, err := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		// Check for foreign key violation (23503)
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewInUse(r.entityName, entityID.String()).WithCause(err)
		}
		return fmt.Errorf("delete %s: %w", r.tableName, postgres.TranslateError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// parseOrderBy validates "field" / "-field" against the selected columns.
func (r *BaseCatalogRepo[T]) parseOrderBy(orderBy string) (string, error) {
	return ParseOrderBy(orderBy, r.selectCols, "name ASC", "")
}

// ParseOrderBy turns "field" or "-field" into an ORDER BY clause, rejecting
// columns outside allowed. prefix qualifies the column for joined queries.
func ParseOrderBy(orderBy string, allowed []string, fallback, prefix string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return fallback, nil
	}

	// Support "-field" for DESC.
	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	// Whitelist columns for SQL injection protection
	field = strings.TrimSpace(field)
	if field == "" || !slices.Contains(allowed, field) {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}
	return prefix + field + " " + direction + ", " + prefix + "id " + direction, nil
}
