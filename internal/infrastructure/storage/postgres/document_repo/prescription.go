package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/documents/prescription"
	"pharmledger/internal/infrastructure/storage/postgres"
	"pharmledger/internal/infrastructure/storage/postgres/catalog_repo"
)

const prescriptionsTable = "prescriptions"

var prescriptionColumns = []string{
	"id", "prescription_number", "patient_name", "patient_phone", "doctor_name",
	"doctor_license", "prescription_date", "notes", "created_by", "created_at",
}

var prescriptionOrderFields = []string{
	"created_at", "prescription_date", "prescription_number", "patient_name", "doctor_name",
}

// PrescriptionRepo implements prescription.Repository.
type PrescriptionRepo struct {
	*BaseDocumentRepo[*prescription.Prescription]
}

var _ prescription.Repository = (*PrescriptionRepo)(nil)

// NewPrescriptionRepo creates a new prescription repository.
func NewPrescriptionRepo(txm *postgres.TxManager) *PrescriptionRepo {
	return &PrescriptionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*prescription.Prescription](
			txm, prescriptionsTable, "prescription", prescriptionColumns,
		),
	}
}

// viewSelect joins the dispensing sale, if any.
func (r *PrescriptionRepo) viewSelect() squirrel.SelectBuilder {
	cols := make([]string, 0, len(prescriptionColumns)+2)
	for _, c := range prescriptionColumns {
		cols = append(cols, "p."+c)
	}
	cols = append(cols, "s.id AS sale_id", "s.sale_number")

	return r.Builder().
		Select(cols...).
		From(prescriptionsTable + " p").
		LeftJoin("sales s ON s.prescription_id = p.id")
}

// GetByID returns the prescription with its dispensing sale.
func (r *PrescriptionRepo) GetByID(ctx context.Context, prescriptionID id.ID) (*prescription.View, error) {
	view := &prescription.View{}
	if err := r.getOne(ctx, view, r.viewSelect().Where(squirrel.Eq{"p.id": prescriptionID}), prescriptionID.String()); err != nil {
		return nil, err
	}
	return view, nil
}

// ExistsByNumber checks whether the number is taken.
func (r *PrescriptionRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"prescription_number": number})
}

func (r *PrescriptionRepo) filterQuery(f prescription.ListFilter) squirrel.SelectBuilder {
	q := r.viewSelect()
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"p.prescription_date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.Lt{"p.prescription_date": *f.DateTo})
	}
	if f.Dispensed != nil {
		if *f.Dispensed {
			q = q.Where("s.id IS NOT NULL")
		} else {
			q = q.Where("s.id IS NULL")
		}
	}
	if f.DoctorName != "" {
		q = q.Where(squirrel.ILike{"p.doctor_name": "%" + f.DoctorName + "%"})
	}
	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"p.id": f.IDs})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"p.prescription_number": pattern},
			squirrel.ILike{"p.patient_name": pattern},
		})
	}
	return q
}

func (r *PrescriptionRepo) orderBy(orderBy string) (string, error) {
	return catalog_repo.ParseOrderBy(orderBy, prescriptionOrderFields, "p.created_at DESC, p.id DESC", "p.")
}

// List returns prescriptions page by page.
func (r *PrescriptionRepo) List(ctx context.Context, filter prescription.ListFilter) (domain.ListResult[*prescription.View], error) {
	return catalog_repo.Paginate[*prescription.View](ctx, r.querier(ctx), r.filterQuery(filter), filter.ListFilter, r.orderBy)
}
