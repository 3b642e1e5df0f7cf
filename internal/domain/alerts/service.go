package alerts

import (
	"context"
	"fmt"
	"time"

	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/pkg/logger"
)

// MedicineSource lists the medicines to scan.
type MedicineSource interface {
	ListActive(ctx context.Context) ([]*medicine.Medicine, error)
}

// Report is the result of one scan.
type Report struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Scanned     int            `json:"scanned"`
	Alerts      []Alert        `json:"alerts"`
	Counts      map[string]int `json:"counts"`
}

// Service scans the catalogue against the alert rules.
type Service struct {
	source MedicineSource
	engine *Engine
	now    func() time.Time
}

// NewService creates a new alerts service.
func NewService(source MedicineSource, engine *Engine) *Service {
	return &Service{source: source, engine: engine, now: time.Now}
}

// Scan evaluates every active medicine.
func (s *Service) Scan(ctx context.Context) (*Report, error) {
	meds, err := s.source.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}

	now := s.now().UTC()
	report := &Report{
		GeneratedAt: now,
		Scanned:     len(meds),
		Alerts:      make([]Alert, 0),
		Counts:      make(map[string]int),
	}
	for _, m := range meds {
		fired, err := s.engine.Evaluate(m, now)
		if err != nil {
			return nil, err
		}
		for _, a := range fired {
			report.Counts[a.Rule]++
		}
		report.Alerts = append(report.Alerts, fired...)
	}

	logger.Debug(ctx, "alert scan finished", "scanned", report.Scanned, "alerts", len(report.Alerts))
	return report, nil
}

// Rules returns the active rules.
func (s *Service) Rules() []Rule {
	return s.engine.Rules()
}
