package marketdata

import (
	"time"

	"bar-backtest-lab/internal/domain"
)

// storedColumns are the columns every stored bar carries.
var storedColumns = []string{
	domain.ColumnOpen, domain.ColumnHigh, domain.ColumnLow, domain.ColumnClose,
	domain.ColumnVolume, domain.ColumnSymbol, domain.ColumnSwapLong, domain.ColumnSwapShort,
}

// FromStoredBars builds a frame indexed by timestamp from persisted bars.
// Input must already be ordered by timestamp ASC.
func FromStoredBars(stored []*domain.StoredBar) *Frame {
	bars := make([]domain.Bar, len(stored))
	for i, s := range stored {
		ts := time.UnixMilli(s.TimestampMs).UTC()
		volume, swapLong, swapShort, symbol := s.Volume, s.SwapLong, s.SwapShort, s.Symbol
		bars[i] = domain.Bar{
			Timestamp: &ts,
			Open:      s.Open,
			High:      s.High,
			Low:       s.Low,
			Close:     s.Close,
			Volume:    &volume,
			Symbol:    &symbol,
			SwapLong:  &swapLong,
			SwapShort: &swapShort,
		}
	}
	return NewFrame(storedColumns, domain.ColumnTimestamp, bars)
}

// ToStoredBars converts a frame into rows for a bar store.
// The frame symbol column wins over the fallback symbol. Bars without a timestamp are skipped.
func ToStoredBars(f *Frame, symbol string) []*domain.StoredBar {
	out := make([]*domain.StoredBar, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		b := f.Bar(i)
		if b.Timestamp == nil {
			continue
		}
		sym := symbol
		if b.Symbol != nil && *b.Symbol != "" {
			sym = *b.Symbol
		}
		out = append(out, &domain.StoredBar{
			Symbol:      sym,
			TimestampMs: b.Timestamp.UnixMilli(),
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      valueOr(b.Volume),
			SwapLong:    valueOr(b.SwapLong),
			SwapShort:   valueOr(b.SwapShort),
		})
	}
	return out
}

func valueOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
