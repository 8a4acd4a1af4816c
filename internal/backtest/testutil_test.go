package backtest

import (
	"time"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/marketdata"
)

const eps = 1e-9

var baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testInstrument() domain.Instrument {
	return domain.Instrument{
		Symbol:            "EURUSD",
		Type:              domain.InstrumentForex,
		PipSize:           0.0001,
		SpreadPoints:      0.0002,
		Commission:        7,
		MarginRequirement: 1000,
		CurrencyRatio:     1,
		PositionSize:      100000,
	}
}

// ohlc is a compact bar description for tests.
type ohlc struct {
	o, h, l, c float64
}

// timestampedFrame builds a frame with a timestamp index and hourly bars.
func timestampedFrame(rows ...ohlc) *marketdata.Frame {
	bars := make([]domain.Bar, len(rows))
	for i, r := range rows {
		ts := baseTime.Add(time.Duration(i) * time.Hour)
		bars[i] = domain.Bar{Timestamp: &ts, Open: r.o, High: r.h, Low: r.l, Close: r.c}
	}
	return marketdata.NewFrame(domain.RequiredColumns, domain.ColumnTimestamp, bars)
}

// buyThenExitFrame is three bars where a BUY on the second bar and EXIT on the third
// close at a profit.
func buyThenExitFrame() *marketdata.Frame {
	return timestampedFrame(
		ohlc{1.0990, 1.0995, 1.0985, 1.0992},
		ohlc{1.1000, 1.1025, 1.0995, 1.1020},
		ohlc{1.1030, 1.1055, 1.1025, 1.1050},
	)
}

func buyThenExitScript() []domain.ScriptedSignal {
	return []domain.ScriptedSignal{
		{Bar: 1, Kind: domain.SignalBuy},
		{Bar: 2, Kind: domain.SignalExit},
	}
}

func ptr[T any](v T) *T {
	return &v
}
