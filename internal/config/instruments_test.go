package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bar-backtest-lab/internal/domain"
)

func TestLoadInstruments(t *testing.T) {
	path := writeFile(t, "instruments.yaml", `
instruments:
  - symbol: GBPUSD
    type: FOREX
    pip_size: 0.0001
    spread_points: 0.0003
    commission: 5
    margin_requirement: 500
    currency_ratio: 1.25
    position_size: 10000
  - symbol: XAUUSD
    type: OTHER
    pip_size: 0.01
    position_size: 100
    currency_ratio: 1
`)

	catalog, err := LoadInstruments(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GBPUSD", "XAUUSD"}, catalog.Symbols())

	gbp, err := catalog.Lookup("gbpusd")
	require.NoError(t, err)
	assert.Equal(t, 625.0, gbp.RequiredMargin())
	assert.Equal(t, domain.InstrumentForex, gbp.Type)

	_, err = catalog.Lookup("EURUSD")
	assert.True(t, errors.Is(err, ErrUnknownInstrument))
}

func TestLoadInstruments_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero pip":  "instruments:\n  - symbol: A\n    pip_size: 0\n    position_size: 1\n    currency_ratio: 1\n",
		"no symbol": "instruments:\n  - pip_size: 1\n    position_size: 1\n    currency_ratio: 1\n",
		"duplicate": "instruments:\n  - {symbol: A, pip_size: 1, position_size: 1, currency_ratio: 1}\n  - {symbol: a, pip_size: 1, position_size: 1, currency_ratio: 1}\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadInstruments(writeFile(t, "instruments.yaml", body))
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)
		})
	}
}

func TestDefaultCatalog_Valid(t *testing.T) {
	for symbol, inst := range DefaultCatalog() {
		assert.NoError(t, inst.Validate(), symbol)
	}
}
