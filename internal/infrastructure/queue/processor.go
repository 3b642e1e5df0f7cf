package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"pharmledger/internal/domain/alerts"
	"pharmledger/pkg/logger"
)

// Scanner evaluates the alert rules.
type Scanner interface {
	Scan(ctx context.Context) (*alerts.Report, error)
}

// WriteOffer zeroes expired stock.
type WriteOffer interface {
	WriteOffExpired(ctx context.Context) (int, error)
}

// Invalidator drops cached reports.
type Invalidator interface {
	InvalidateDashboard(ctx context.Context) error
}

// Processor handles stock tasks.
type Processor struct {
	alerts    Scanner
	medicines WriteOffer
	reports   Invalidator
}

// NewProcessor creates a processor. reports may be nil.
func NewProcessor(scanner Scanner, medicines WriteOffer, reports Invalidator) *Processor {
	return &Processor{alerts: scanner, medicines: medicines, reports: reports}
}

// Register binds the handlers to mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeScanAlerts, p.HandleScanAlerts)
	mux.HandleFunc(TypeWriteOffExpired, p.HandleWriteOffExpired)
}

// HandleScanAlerts logs the alert summary. Critical alerts are logged one by one.
func (p *Processor) HandleScanAlerts(ctx context.Context, t *asynq.Task) error {
	payload, err := ParsePayload(t)
	if err != nil {
		return err
	}

	start := time.Now()
	report, err := p.alerts.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan alerts: %w", err)
	}

	for _, a := range report.Alerts {
		if a.Severity == alerts.SeverityCritical {
			logger.Warn(ctx, "stock alert",
				"rule", a.Rule,
				"medicine_id", a.MedicineID,
				"medicine", a.MedicineName,
				"quantity", a.Quantity,
				"days_to_expiry", a.DaysToExpiry,
			)
		}
	}
	logger.Info(ctx, "alert scan completed",
		"trigger", string(payload.Trigger),
		"scanned", report.Scanned,
		"alerts", len(report.Alerts),
		"counts", report.Counts,
		"duration", time.Since(start),
	)
	return nil
}

// HandleWriteOffExpired posts expired movements for expired stock.
func (p *Processor) HandleWriteOffExpired(ctx context.Context, t *asynq.Task) error {
	payload, err := ParsePayload(t)
	if err != nil {
		return err
	}

	n, err := p.medicines.WriteOffExpired(ctx)
	if err != nil {
		return fmt.Errorf("write off expired: %w", err)
	}
	if n > 0 && p.reports != nil {
		if err := p.reports.InvalidateDashboard(ctx); err != nil {
			logger.Warn(ctx, "dashboard invalidation failed", "error", err)
		}
	}

	logger.Info(ctx, "expired stock written off", "trigger", string(payload.Trigger), "medicines", n)
	return nil
}
