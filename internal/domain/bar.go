package domain

import "time"

// Bar represents one OHLCV row of market data.
// Optional columns are nil when the source frame does not carry them.
type Bar struct {
	Timestamp *time.Time // timestamp index or column value
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    *float64
	Symbol    *string
	SwapLong  *float64 // long-side swap rate (points per bar held)
	SwapShort *float64 // short-side swap rate (points per bar held)
}

// Standard column names understood by the bar frame.
const (
	ColumnTimestamp = "timestamp"
	ColumnOpen      = "open"
	ColumnHigh      = "high"
	ColumnLow       = "low"
	ColumnClose     = "close"
	ColumnVolume    = "volume"
	ColumnSymbol    = "symbol"
	ColumnSwapLong  = "swap_long"
	ColumnSwapShort = "swap_short"
)

// RequiredColumns lists the columns every bar frame must carry.
var RequiredColumns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose}

// StoredBar represents a bar row as persisted in a bar store.
// Corresponds to the bars table in ClickHouse.
type StoredBar struct {
	Symbol      string  // instrument symbol
	TimestampMs int64   // bar open time, Unix ms
	Open        float64 // open price
	High        float64 // high price
	Low         float64 // low price
	Close       float64 // close price
	Volume      float64 // traded volume
	SwapLong    float64 // long swap rate
	SwapShort   float64 // short swap rate
}
