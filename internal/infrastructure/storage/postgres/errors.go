package postgres

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"pharmledger/internal/core/apperror"
)

// SQLSTATE codes the ledger translates.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

// constraintFields maps constraint names from the schema to API field names.
var constraintFields = map[string][2]string{
	"medicine_categories_name_key":     {"category", "name"},
	"sales_sale_number_key":            {"sale", "sale_number"},
	"prescriptions_number_key":         {"prescription", "prescription_number"},
	"sales_prescription_id_key":        {"sale", "prescription_id"},
	"users_email_key":                  {"user", "email"},
	"medicines_category_id_fkey":       {"category", "category_id"},
	"medicines_supplier_id_fkey":       {"supplier", "supplier_id"},
	"sale_items_medicine_id_fkey":      {"medicine", "medicine_id"},
	"sales_prescription_id_fkey":       {"prescription", "prescription_id"},
	"stock_movements_medicine_id_fkey": {"medicine", "medicine_id"},
}

// TranslateError maps PostgreSQL failures to AppErrors. AppErrors and
// unknown errors pass through unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		entity, field := constraintTarget(pgErr)
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperror.NewDuplicate(entity, field, "").WithCause(err)
		case codeForeignKeyViolation:
			return apperror.NewReferentialViolation(entity, field).WithCause(err)
		case codeCheckViolation, codeNotNullViolation:
			return apperror.NewValidation("value violates a storage constraint").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled:
			return apperror.NewTransactionFailure(err)
		}
		return err
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewTransactionFailure(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperror.NewTransactionFailure(err)
	}
	return err
}

func constraintTarget(pgErr *pgconn.PgError) (entity, field string) {
	if t, ok := constraintFields[pgErr.ConstraintName]; ok {
		return t[0], t[1]
	}
	entity = strings.TrimSuffix(pgErr.TableName, "s")
	if entity == "" {
		entity = "record"
	}
	field = pgErr.ColumnName
	if field == "" {
		field = pgErr.ConstraintName
	}
	return entity, field
}

// IsForeignKeyViolation reports SQLSTATE 23503 anywhere in the chain.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
