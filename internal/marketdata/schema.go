package marketdata

import (
	"bar-backtest-lab/internal/domain"
)

// TimestampSource tells enrichment where bar timestamps come from.
type TimestampSource int

// TimestampSource values.
const (
	TimestampMissing TimestampSource = iota
	TimestampFromIndex
	TimestampFromColumn
)

// Schema is the capability record negotiated once per run.
type Schema struct {
	Timestamp    TimestampSource
	HasVolume    bool
	HasSymbol    bool
	HasSwapLong  bool
	HasSwapShort bool
}

// NegotiateSchema checks required columns and records which optional ones exist.
// Missing OHLC columns abort the run with a ConfigurationError.
func NegotiateSchema(f *Frame) (Schema, error) {
	for _, col := range domain.RequiredColumns {
		if !f.HasColumn(col) {
			return Schema{}, &domain.ConfigurationError{
				Op:    "schema",
				Field: col,
				Bar:   -1,
				Msg:   "market data must have a '" + col + "' column",
			}
		}
	}

	s := Schema{
		HasVolume:    f.HasColumn(domain.ColumnVolume),
		HasSymbol:    f.HasColumn(domain.ColumnSymbol),
		HasSwapLong:  f.HasColumn(domain.ColumnSwapLong),
		HasSwapShort: f.HasColumn(domain.ColumnSwapShort),
	}

	switch {
	case f.IndexName() == domain.ColumnTimestamp:
		s.Timestamp = TimestampFromIndex
	case f.HasColumn(domain.ColumnTimestamp):
		s.Timestamp = TimestampFromColumn
	default:
		s.Timestamp = TimestampMissing
	}

	return s, nil
}
