package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bar-backtest-lab/internal/domain"
)

// CSV reader errors
var (
	ErrEmptyCSV      = errors.New("csv has no header row")
	ErrInvalidNumber = errors.New("invalid numeric value")
	ErrInvalidTime   = errors.New("invalid timestamp value")
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	// TimestampColumn names the column holding bar times. Defaults to "timestamp".
	TimestampColumn string
	// TimestampAsIndex moves the timestamp column into the frame index.
	TimestampAsIndex bool
}

// timeLayouts are tried in order for non-numeric timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

// minUnixMsDigits is the shortest all-digit string read as Unix milliseconds.
// Shorter numbers are tried against the layouts, so 20240301 is a date.
const minUnixMsDigits = 10

// ReadCSV reads a header-first CSV of bars into a Frame.
// Column names are matched case-insensitively. Numeric timestamps of ten or more
// digits are Unix milliseconds.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	tsCol := strings.ToLower(opts.TimestampColumn)
	if tsCol == "" {
		tsCol = domain.ColumnTimestamp
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	pos := make(map[string]int, len(header))
	var columns []string
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == tsCol {
			name = domain.ColumnTimestamp
		}
		pos[name] = i
		if name == domain.ColumnTimestamp && opts.TimestampAsIndex {
			continue
		}
		columns = append(columns, name)
	}

	indexName := ""
	if _, ok := pos[domain.ColumnTimestamp]; ok && opts.TimestampAsIndex {
		indexName = domain.ColumnTimestamp
	}

	var bars []domain.Bar
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		bar, err := parseRecord(record, pos)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	return NewFrame(columns, indexName, bars), nil
}

// parseRecord converts one CSV record into a bar.
func parseRecord(record []string, pos map[string]int) (domain.Bar, error) {
	var bar domain.Bar

	prices := []struct {
		col string
		dst *float64
	}{
		{domain.ColumnOpen, &bar.Open},
		{domain.ColumnHigh, &bar.High},
		{domain.ColumnLow, &bar.Low},
		{domain.ColumnClose, &bar.Close},
	}
	for _, p := range prices {
		i, ok := pos[p.col]
		if !ok {
			continue // reported once by schema negotiation
		}
		v, err := parseFloat(record[i])
		if err != nil {
			return bar, fmt.Errorf("%s: %w", p.col, err)
		}
		*p.dst = v
	}

	optional := []struct {
		col string
		dst **float64
	}{
		{domain.ColumnVolume, &bar.Volume},
		{domain.ColumnSwapLong, &bar.SwapLong},
		{domain.ColumnSwapShort, &bar.SwapShort},
	}
	for _, o := range optional {
		i, ok := pos[o.col]
		if !ok {
			continue
		}
		if strings.TrimSpace(record[i]) == "" {
			zero := 0.0
			*o.dst = &zero
			continue
		}
		v, err := parseFloat(record[i])
		if err != nil {
			return bar, fmt.Errorf("%s: %w", o.col, err)
		}
		*o.dst = &v
	}

	if i, ok := pos[domain.ColumnSymbol]; ok {
		sym := strings.TrimSpace(record[i])
		bar.Symbol = &sym
	}

	if i, ok := pos[domain.ColumnTimestamp]; ok {
		ts, err := ParseTimestamp(record[i])
		if err != nil {
			return bar, err
		}
		bar.Timestamp = &ts
	}

	return bar, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

// ParseTimestamp parses RFC3339-like layouts or Unix milliseconds of at least
// ten digits, returning UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= minUnixMsDigits {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}
