// Package document_repo provides PostgreSQL implementations for sales and prescriptions.
// Documents are inserted once and never updated.
package document_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides insert and lookup for document tables.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	insertCols []string
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txm *postgres.TxManager,
	tableName string,
	entityName string,
	insertCols []string,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:  txm,
		tableName:  tableName,
		entityName: entityName,
		insertCols: insertCols,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a new document. A taken number surfaces as Duplicate.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, doc T) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return errors.New("no db tags found in document")
	}

	filtered := make(map[string]any, len(r.insertCols))
	for _, col := range r.insertCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, postgres.TranslateError(err))
	}
	return nil
}

// getOne scans a single row into dest.
func (r *BaseDocumentRepo[T]) getOne(ctx context.Context, dest any, q squirrel.SelectBuilder, key string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), dest, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(r.entityName, key)
		}
		return fmt.Errorf("get %s: %w", r.entityName, postgres.TranslateError(err))
	}
	return nil
}

// exists reports whether any row matches cond.
func (r *BaseDocumentRepo[T]) exists(ctx context.Context, cond squirrel.Sqlizer) (bool, error) {
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

// Exists checks whether a document with the id exists.
func (r *BaseDocumentRepo[T]) Exists(ctx context.Context, docID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"id": docID})
}
