// Package memory provides a transactional in-memory implementation of every
// ledger repository. It backs the test suites.
//
// Transactions are serialized: a transaction holds the write lock of the
// store for its whole duration and restores a snapshot when fn fails.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/tx"
	"pharmledger/internal/domain/auth"
	"pharmledger/internal/domain/catalogs/category"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/catalogs/supplier"
	"pharmledger/internal/domain/documents/prescription"
	"pharmledger/internal/domain/documents/sale"
)

// state is everything a transaction may roll back.
type state struct {
	categories    map[id.ID]category.Category
	suppliers     map[id.ID]supplier.Supplier
	medicines     map[id.ID]medicine.Medicine
	movements     []entity.StockMovement
	sales         map[id.ID]sale.Sale
	saleItems     map[id.ID][]sale.Item
	prescriptions map[id.ID]prescription.Prescription
	users         map[id.ID]auth.User
	sequences     map[string]int64
	idempotency   map[idempotencyKey]idempotencyRecord
}

func newState() *state {
	return &state{
		categories:    make(map[id.ID]category.Category),
		suppliers:     make(map[id.ID]supplier.Supplier),
		medicines:     make(map[id.ID]medicine.Medicine),
		sales:         make(map[id.ID]sale.Sale),
		saleItems:     make(map[id.ID][]sale.Item),
		prescriptions: make(map[id.ID]prescription.Prescription),
		users:         make(map[id.ID]auth.User),
		sequences:     make(map[string]int64),
		idempotency:   make(map[idempotencyKey]idempotencyRecord),
	}
}

// clone copies the containers. Stored values are never mutated in place,
// so a shallow copy is a full snapshot.
func (s *state) clone() *state {
	return &state{
		categories:    maps.Clone(s.categories),
		suppliers:     maps.Clone(s.suppliers),
		medicines:     maps.Clone(s.medicines),
		movements:     slices.Clone(s.movements),
		sales:         maps.Clone(s.sales),
		saleItems:     maps.Clone(s.saleItems),
		prescriptions: maps.Clone(s.prescriptions),
		users:         maps.Clone(s.users),
		sequences:     maps.Clone(s.sequences),
		idempotency:   maps.Clone(s.idempotency),
	}
}

// Store holds the ledger state.
type Store struct {
	// txMu is held by a transaction, or by a single write outside one
	txMu sync.Mutex

	// mu guards data for individual reads and writes
	mu   sync.RWMutex
	data *state
}

var _ tx.ReadOnlyManager = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTransaction runs fn atomically. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// ReadOnly runs fn in a transaction. Writes are not prevented.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// Ping fails only when ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// write applies fn under the data lock. Outside a transaction it also takes
// txMu so that it cannot interleave with a running transaction.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// Categories returns the category repository.
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{store: s} }

// Suppliers returns the supplier repository.
func (s *Store) Suppliers() *SupplierRepo { return &SupplierRepo{store: s} }

// Medicines returns the medicine repository.
func (s *Store) Medicines() *MedicineRepo { return &MedicineRepo{store: s} }

// Movements returns the stock movement repository.
func (s *Store) Movements() *StockRepo { return &StockRepo{store: s} }

// Sales returns the sale repository.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{store: s} }

// Prescriptions returns the prescription repository.
func (s *Store) Prescriptions() *PrescriptionRepo { return &PrescriptionRepo{store: s} }

// Users returns the user repository.
func (s *Store) Users() *UserRepo { return &UserRepo{store: s} }

// Reports returns the report aggregates.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{store: s} }

// Numerator returns the sequence generator.
func (s *Store) Numerator() *Numerator { return &Numerator{store: s} }

// Idempotency returns the Idempotency-Key store.
func (s *Store) Idempotency() *IdempotencyStore { return &IdempotencyStore{store: s} }
