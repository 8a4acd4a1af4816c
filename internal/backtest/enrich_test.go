package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/marketdata"
)

func fullSchema() marketdata.Schema {
	return marketdata.Schema{
		Timestamp:    marketdata.TimestampFromIndex,
		HasVolume:    true,
		HasSymbol:    true,
		HasSwapLong:  true,
		HasSwapShort: true,
	}
}

func fullBar() domain.Bar {
	ts := baseTime
	return domain.Bar{
		Timestamp: &ts,
		Open:      1.1,
		High:      1.2,
		Low:       1.0,
		Close:     1.15,
		Volume:    ptr(250.0),
		Symbol:    ptr("EURUSD"),
		SwapLong:  ptr(-0.5),
		SwapShort: ptr(0.2),
	}
}

func TestEnrich_FillsContext(t *testing.T) {
	e := NewEnricher(fullSchema())
	sig := domain.NewSignal(domain.SignalBuy)

	require.NoError(t, e.Enrich(&sig, fullBar(), 4, 7))

	open, high, low, closePrice := sig.Prices()
	assert.Equal(t, 1.1, open)
	assert.Equal(t, 1.2, high)
	assert.Equal(t, 1.0, low)
	assert.Equal(t, 1.15, closePrice)
	require.NotNil(t, sig.Volume)
	assert.Equal(t, 250.0, *sig.Volume)
	require.NotNil(t, sig.Symbol)
	assert.Equal(t, "EURUSD", *sig.Symbol)
	assert.Equal(t, -0.5, *sig.SwapLong)
	assert.Equal(t, 0.2, *sig.SwapShort)
	assert.Equal(t, baseTime, sig.Time())
	assert.Equal(t, 5, sig.BarIndex)
	assert.Equal(t, 6, sig.Previous)
	assert.True(t, sig.Enriched())
}

func TestEnrich_FirstSignalHasNoPrevious(t *testing.T) {
	e := NewEnricher(fullSchema())
	sig := domain.NewSignal(domain.SignalNone)

	require.NoError(t, e.Enrich(&sig, fullBar(), 0, 0))
	assert.Equal(t, domain.NoPrevious, sig.Previous)
	assert.Equal(t, 1, sig.BarIndex)
}

func TestEnrich_KeepsStrategyOverrides(t *testing.T) {
	e := NewEnricher(fullSchema())
	override := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	sig := domain.NewSignal(domain.SignalSell).WithTimestamp(override).WithSymbol("GBPUSD")
	sig.SwapLong, sig.SwapShort = ptr(1.0), ptr(2.0)

	require.NoError(t, e.Enrich(&sig, fullBar(), 1, 1))
	assert.Equal(t, override, sig.Time())
	assert.Equal(t, "GBPUSD", *sig.Symbol)
	assert.Equal(t, 1.0, *sig.SwapLong)
	assert.Equal(t, 2.0, *sig.SwapShort)
}

func TestEnrich_PartialSwapIsReplaced(t *testing.T) {
	e := NewEnricher(fullSchema())
	sig := domain.NewSignal(domain.SignalBuy)
	sig.SwapLong = ptr(9.0)

	require.NoError(t, e.Enrich(&sig, fullBar(), 1, 1))
	assert.Equal(t, -0.5, *sig.SwapLong)
	assert.Equal(t, 0.2, *sig.SwapShort)
}

func TestEnrich_MissingOptionalColumns(t *testing.T) {
	e := NewEnricher(marketdata.Schema{Timestamp: marketdata.TimestampFromColumn})
	ts := baseTime
	bar := domain.Bar{Timestamp: &ts, Open: 1, High: 1, Low: 1, Close: 1}
	sig := domain.NewSignal(domain.SignalNone)

	require.NoError(t, e.Enrich(&sig, bar, 2, 3))
	assert.Nil(t, sig.Volume)
	assert.Nil(t, sig.Symbol)
	assert.Equal(t, 0.0, *sig.SwapLong)
	assert.Equal(t, 0.0, *sig.SwapShort)
}

func TestEnrich_MissingTimestamp(t *testing.T) {
	e := NewEnricher(marketdata.Schema{Timestamp: marketdata.TimestampMissing})
	sig := domain.NewSignal(domain.SignalBuy)

	err := e.Enrich(&sig, domain.Bar{Open: 1, High: 1, Low: 1, Close: 1}, 3, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, domain.ColumnTimestamp, cfgErr.Field)
	assert.Equal(t, 3, cfgErr.Bar)
}

func TestEnrich_Idempotent(t *testing.T) {
	e := NewEnricher(fullSchema())
	sig := domain.NewSignal(domain.SignalBuy).WithStopLoss(15)

	require.NoError(t, e.Enrich(&sig, fullBar(), 2, 4))
	first := sig
	require.NoError(t, e.Enrich(&sig, fullBar(), 2, 4))

	assert.Equal(t, first, sig)
}
