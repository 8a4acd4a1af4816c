package domain

// InstrumentType classifies an instrument for cost conventions.
type InstrumentType string

// Instrument type constants.
const (
	InstrumentForex InstrumentType = "FOREX"
	InstrumentOther InstrumentType = "OTHER"
)

// Instrument describes the trading-cost parameters of the simulated contract.
// It is read-only for the whole run.
type Instrument struct {
	Symbol            string         `yaml:"symbol" json:"symbol"`
	Type              InstrumentType `yaml:"type" json:"type"`
	PipSize           float64        `yaml:"pip_size" json:"pip_size"`                     // price units per pip
	SpreadPoints      float64        `yaml:"spread_points" json:"spread_points"`           // ask-bid markup in price units
	Commission        float64        `yaml:"commission" json:"commission"`                 // fixed cost per opened trade
	MarginRequirement float64        `yaml:"margin_requirement" json:"margin_requirement"` // margin per position, instrument currency
	CurrencyRatio     float64        `yaml:"currency_ratio" json:"currency_ratio"`         // instrument → account currency
	PositionSize      float64        `yaml:"position_size" json:"position_size"`           // contract units per position
}

// RequiredMargin returns the equity threshold below which no position may be held.
func (i Instrument) RequiredMargin() float64 {
	return i.MarginRequirement * i.CurrencyRatio
}

// Validate checks the descriptor before a run starts.
func (i Instrument) Validate() error {
	switch {
	case i.PipSize <= 0:
		return &ConfigurationError{Op: "instrument", Field: "pip_size", Bar: -1, Msg: "must be positive"}
	case i.PositionSize <= 0:
		return &ConfigurationError{Op: "instrument", Field: "position_size", Bar: -1, Msg: "must be positive"}
	case i.CurrencyRatio <= 0:
		return &ConfigurationError{Op: "instrument", Field: "currency_ratio", Bar: -1, Msg: "must be positive"}
	case i.SpreadPoints < 0:
		return &ConfigurationError{Op: "instrument", Field: "spread_points", Bar: -1, Msg: "must not be negative"}
	case i.Commission < 0:
		return &ConfigurationError{Op: "instrument", Field: "commission", Bar: -1, Msg: "must not be negative"}
	case i.MarginRequirement < 0:
		return &ConfigurationError{Op: "instrument", Field: "margin_requirement", Bar: -1, Msg: "must not be negative"}
	}
	switch i.Type {
	case "", InstrumentForex, InstrumentOther:
	default:
		return &ConfigurationError{Op: "instrument", Field: "type", Bar: -1, Msg: "unknown instrument type " + string(i.Type)}
	}
	return nil
}
