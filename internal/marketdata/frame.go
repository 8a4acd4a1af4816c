// Package marketdata holds the ordered bar series a backtest replays.
package marketdata

import (
	"time"

	"bar-backtest-lab/internal/domain"
)

// Frame is an ordered, indexed sequence of bars.
// Row order is the only time order; frames are never re-sorted.
type Frame struct {
	columns   map[string]struct{}
	order     []string
	indexName string
	bars      []domain.Bar
}

// NewFrame creates a frame from column names, an optional index name and rows.
// Bars must leave optional fields nil for columns the frame does not carry.
func NewFrame(columns []string, indexName string, bars []domain.Bar) *Frame {
	f := &Frame{
		columns:   make(map[string]struct{}, len(columns)),
		indexName: indexName,
		bars:      bars,
	}
	for _, c := range columns {
		if _, dup := f.columns[c]; dup {
			continue
		}
		f.columns[c] = struct{}{}
		f.order = append(f.order, c)
	}
	return f
}

// Len returns the number of bars.
func (f *Frame) Len() int {
	return len(f.bars)
}

// Bar returns the bar at 0-based position i.
func (f *Frame) Bar(i int) domain.Bar {
	return f.bars[i]
}

// History returns all bars up to and including position i.
// The returned slice is capped so appends cannot reach future bars.
func (f *Frame) History(i int) []domain.Bar {
	return f.bars[:i+1 : i+1]
}

// HasColumn reports whether the frame carries the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Columns returns column names in declaration order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// IndexName returns the name of the frame index, empty for a positional index.
func (f *Frame) IndexName() string {
	return f.indexName
}

// TimeRange returns the first and last bar timestamps, nil when unavailable.
func (f *Frame) TimeRange() (first, last *time.Time) {
	if len(f.bars) == 0 {
		return nil, nil
	}
	return f.bars[0].Timestamp, f.bars[len(f.bars)-1].Timestamp
}
