package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bar-backtest-lab/internal/domain"
)

// ErrUnknownInstrument is returned when a symbol is not in the catalog.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Catalog maps symbols to instrument descriptors.
type Catalog map[string]domain.Instrument

// DefaultCatalog is used when no instruments file is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		"EURUSD": {
			Symbol:            "EURUSD",
			Type:              domain.InstrumentForex,
			PipSize:           0.0001,
			SpreadPoints:      0.0002,
			Commission:        7,
			MarginRequirement: 1000,
			CurrencyRatio:     1,
			PositionSize:      100000,
		},
		"USDJPY": {
			Symbol:            "USDJPY",
			Type:              domain.InstrumentForex,
			PipSize:           0.01,
			SpreadPoints:      0.02,
			Commission:        7,
			MarginRequirement: 1000,
			CurrencyRatio:     1,
			PositionSize:      100000,
		},
	}
}

// instrumentsFile is the on-disk layout of an instruments catalog.
type instrumentsFile struct {
	Instruments []domain.Instrument `yaml:"instruments"`
}

// LoadInstruments reads a YAML instruments catalog and validates every entry.
func LoadInstruments(path string) (Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instruments: %w", err)
	}
	defer file.Close()

	var raw instrumentsFile
	if err := yaml.NewDecoder(file).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode instruments yaml: %w", err)
	}

	catalog := make(Catalog, len(raw.Instruments))
	for _, inst := range raw.Instruments {
		key := strings.ToUpper(inst.Symbol)
		if key == "" {
			return nil, fmt.Errorf("instrument without symbol: %w", domain.ErrConfiguration)
		}
		if _, dup := catalog[key]; dup {
			return nil, fmt.Errorf("duplicate instrument %s: %w", key, domain.ErrConfiguration)
		}
		if err := inst.Validate(); err != nil {
			return nil, fmt.Errorf("instrument %s: %w", key, err)
		}
		catalog[key] = inst
	}
	return catalog, nil
}

// Lookup returns the instrument for symbol, case-insensitively.
func (c Catalog) Lookup(symbol string) (domain.Instrument, error) {
	inst, ok := c[strings.ToUpper(symbol)]
	if !ok {
		return domain.Instrument{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
	}
	return inst, nil
}

// Symbols returns catalog keys, sorted.
func (c Catalog) Symbols() []string {
	out := make([]string, 0, len(c))
	for s := range c {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Instrument resolves the configured run instrument from the instruments file or the default catalog.
func (c *Config) Instrument() (domain.Instrument, error) {
	catalog := DefaultCatalog()
	if c.Run.InstrumentsFile != "" {
		loaded, err := LoadInstruments(c.Run.InstrumentsFile)
		if err != nil {
			return domain.Instrument{}, err
		}
		catalog = loaded
	}
	return catalog.Lookup(c.Run.Symbol)
}
