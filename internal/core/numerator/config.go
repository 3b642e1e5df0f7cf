// Package numerator defines human-readable ledger numbers such as
// SALE-20261019-0001 and RX-20261019-001.
package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pharmledger/internal/core/types"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict allocates every number with one atomic UPSERT.
	// Gap-free within a committed transaction; required for ledger documents.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges in memory. Faster, may leave gaps on restart.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the block reserved per round trip in cached mode (default 50).
	RangeSize int64
}

// DefaultOptions returns strict options.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Reset periods
const (
	ResetDaily   = "day"
	ResetMonthly = "month"
	ResetYearly  = "year"
	ResetNever   = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix of every number ("SALE", "RX")
	Prefix string

	// PadWidth is the minimum width of the counter; larger values keep growing
	PadWidth int

	// ResetPeriod selects both the counter scope and the date segment
	ResetPeriod string
}

// SaleConfig is the numbering of sales: SALE-YYYYMMDD-NNNN.
func SaleConfig() Config {
	return Config{Prefix: "SALE", PadWidth: 4, ResetPeriod: ResetDaily}
}

// PrescriptionConfig is the numbering of prescriptions: RX-YYYYMMDD-NNN.
func PrescriptionConfig() Config {
	return Config{Prefix: "RX", PadWidth: 3, ResetPeriod: ResetDaily}
}

func (c Config) dateLayout() string {
	switch c.ResetPeriod {
	case ResetDaily:
		return "20060102"
	case ResetMonthly:
		return "200601"
	case ResetYearly:
		return "2006"
	}
	return ""
}

// SequenceKey is the sys_sequences row backing cfg in the given period.
func SequenceKey(cfg Config, period time.Time) string {
	layout := cfg.dateLayout()
	if layout == "" {
		return cfg.Prefix
	}
	return cfg.Prefix + "_" + period.In(types.BusinessLocation()).Format(layout)
}

// Format renders a counter value. Periods are formatted in the business location.
func Format(cfg Config, period time.Time, seq int64) string {
	width := cfg.PadWidth
	if width <= 0 {
		width = 4
	}
	var sb strings.Builder
	sb.WriteString(cfg.Prefix)
	if layout := cfg.dateLayout(); layout != "" {
		sb.WriteByte('-')
		sb.WriteString(period.In(types.BusinessLocation()).Format(layout))
	}
	sb.WriteByte('-')
	sb.WriteString(fmt.Sprintf("%0*d", width, seq))
	return sb.String()
}

// Parse extracts the counter value from a formatted number.
func Parse(cfg Config, number string) (int64, error) {
	if !strings.HasPrefix(number, cfg.Prefix+"-") {
		return 0, fmt.Errorf("number %q does not start with %s-", number, cfg.Prefix)
	}
	idx := strings.LastIndexByte(number, '-')
	seq, err := strconv.ParseInt(number[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter of %q: %w", number, err)
	}
	return seq, nil
}
