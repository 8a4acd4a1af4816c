package backtest

import (
	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/marketdata"
)

// Enricher fills market context into signals using the negotiated schema.
// Fields set by the strategy are never overwritten, except BarIndex, Previous and prices.
type Enricher struct {
	schema marketdata.Schema
}

// NewEnricher creates an enricher for a frame's schema.
func NewEnricher(schema marketdata.Schema) *Enricher {
	return &Enricher{schema: schema}
}

// Enrich completes sig from the bar at 0-based position, given the current event log length.
// Running it again with the same arguments leaves the signal unchanged.
func (e *Enricher) Enrich(sig *domain.SignalRequest, bar domain.Bar, position, logLen int) error {
	// Prices are observational and always reflect the current bar.
	open, high, low, closePrice := bar.Open, bar.High, bar.Low, bar.Close
	sig.Open, sig.High, sig.Low, sig.Close = &open, &high, &low, &closePrice

	sig.Volume = nil
	if e.schema.HasVolume && bar.Volume != nil {
		v := *bar.Volume
		sig.Volume = &v
	}

	if sig.Timestamp == nil {
		if e.schema.Timestamp == marketdata.TimestampMissing || bar.Timestamp == nil {
			return &domain.ConfigurationError{
				Op:    "enrich",
				Field: domain.ColumnTimestamp,
				Bar:   position,
				Msg:   "market data must have a timestamp index or column",
			}
		}
		ts := *bar.Timestamp
		sig.Timestamp = &ts
	}

	if sig.SwapLong == nil || sig.SwapShort == nil {
		swapLong, swapShort := 0.0, 0.0
		if e.schema.HasSwapLong && bar.SwapLong != nil {
			swapLong = *bar.SwapLong
		}
		if e.schema.HasSwapShort && bar.SwapShort != nil {
			swapShort = *bar.SwapShort
		}
		sig.SwapLong, sig.SwapShort = &swapLong, &swapShort
	}

	if sig.Symbol == nil && e.schema.HasSymbol && bar.Symbol != nil {
		sym := *bar.Symbol
		sig.Symbol = &sym
	}

	sig.Previous = logLen - 1
	if logLen == 0 {
		sig.Previous = domain.NoPrevious
	}
	sig.BarIndex = position + 1

	return nil
}
