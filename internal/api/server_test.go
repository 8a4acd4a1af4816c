package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bar-backtest-lab/internal/backtest"
	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/marketdata"
	"bar-backtest-lab/internal/storage/memory"
	"bar-backtest-lab/internal/strategy"
)

type fixture struct {
	server *httptest.Server
	runID  string
	trades int
}

func threeBars() *marketdata.Frame {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := [][4]float64{
		{1.0990, 1.0995, 1.0985, 1.0992},
		{1.1000, 1.1025, 1.0995, 1.1020},
		{1.1030, 1.1055, 1.1025, 1.1050},
	}
	bars := make([]domain.Bar, len(rows))
	for i, r := range rows {
		ts := start.Add(time.Duration(i) * time.Hour)
		sym := "EURUSD"
		bars[i] = domain.Bar{Timestamp: &ts, Open: r[0], High: r[1], Low: r[2], Close: r[3], Symbol: &sym}
	}
	cols := append([]string{domain.ColumnSymbol}, domain.RequiredColumns...)
	return marketdata.NewFrame(cols, domain.ColumnTimestamp, bars)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	bars, runs, trades, events := memory.NewBarStore(), memory.NewRunStore(), memory.NewTradeStore(), memory.NewSignalEventStore()
	runner := backtest.NewRunner(backtest.RunnerOptions{Bars: bars, Runs: runs, Trades: trades, Events: events})
	driver, err := backtest.NewDriver(backtest.DriverOptions{
		Instrument: domain.Instrument{
			Symbol: "EURUSD", Type: domain.InstrumentForex, PipSize: 0.0001, SpreadPoints: 0.0002,
			Commission: 7, MarginRequirement: 1000, CurrencyRatio: 1, PositionSize: 100000,
		},
		InitialBalance: 10000,
	})
	require.NoError(t, err)

	frame := threeBars()
	require.NoError(t, bars.InsertBulk(ctx, marketdata.ToStoredBars(frame, "EURUSD")))

	script := strategy.NewScriptedStrategy([]domain.ScriptedSignal{
		{Bar: 1, Kind: domain.SignalBuy},
		{Bar: 2, Kind: domain.SignalExit},
	})
	out, err := runner.Run(ctx, driver, frame, script)
	require.NoError(t, err)

	srv := NewServer(Options{
		Runs: runs, Trades: trades, Events: events,
		Runner: runner, Driver: driver,
		Logger: zaptest.NewLogger(t),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &fixture{server: ts, runID: out.Record.RunID, trades: len(out.Result.Trades)}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, getJSON(t, f.server.URL+"/health", nil))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "bar_backtest_lab_")
}

func TestListAndGetRun(t *testing.T) {
	f := newFixture(t)

	var runs []domain.RunRecord
	require.Equal(t, http.StatusOK, getJSON(t, f.server.URL+"/runs", &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, f.runID, runs[0].RunID)

	var got runResponse
	require.Equal(t, http.StatusOK, getJSON(t, f.server.URL+"/runs/"+f.runID, &got))
	assert.Equal(t, f.runID, got.Run.RunID)
	assert.Equal(t, 1, got.Summary.ClosedTrades)
	assert.InDelta(t, 473.0, got.Summary.NetProfit, 1e-6)

	assert.Equal(t, http.StatusNotFound, getJSON(t, f.server.URL+"/runs/missing", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.server.URL+"/runs?limit=abc", nil))
}

func TestTradesAndEvents(t *testing.T) {
	f := newFixture(t)

	var trades []domain.Trade
	require.Equal(t, http.StatusOK, getJSON(t, f.server.URL+"/runs/"+f.runID+"/trades", &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, domain.TradeOpen, trades[0].Action)

	var events []domain.SignalEvent
	require.Equal(t, http.StatusOK, getJSON(t, f.server.URL+"/runs/"+f.runID+"/events", &events))
	require.Len(t, events, 5)
	assert.Equal(t, domain.NoPrevious, events[0].Signal.Previous)
	assert.Equal(t, domain.SignalReasonEndOfSeries, events[4].Signal.Reason)

	assert.Equal(t, http.StatusNotFound, getJSON(t, f.server.URL+"/runs/missing/trades", nil))
}

func TestReport(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/runs/" + f.runID + "/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(buf.String(), "# Backtest Report"))

	csvResp, err := http.Get(f.server.URL + "/runs/" + f.runID + "/report?format=csv")
	require.NoError(t, err)
	defer csvResp.Body.Close()
	assert.Equal(t, "text/csv; charset=utf-8", csvResp.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.server.URL+"/runs/"+f.runID+"/report?format=pdf", nil))
}

func TestCreateRun(t *testing.T) {
	f := newFixture(t)

	body := `{"strategy": {"type": "SCRIPTED", "script": [{"bar": 1, "kind": "SELL"}]}}`
	resp, err := http.Post(f.server.URL+"/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got runResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEqual(t, f.runID, got.Run.RunID)
	assert.Equal(t, 2, got.Run.TradeCount)
	assert.Equal(t, 1, got.Summary.ExitReasons[domain.ExitReasonEndOfSeries])

	var runs []domain.RunRecord
	require.Equal(t, http.StatusOK, getJSON(t, f.server.URL+"/runs", &runs))
	assert.Len(t, runs, 2)
}

func TestCreateRun_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{`, http.StatusBadRequest},
		{"unknown strategy", `{"strategy": {"type": "GRID"}}`, http.StatusBadRequest},
		{"other symbol", `{"symbol": "GBPUSD", "strategy": {"type": "BREAKOUT", "channel_period": 2}}`, http.StatusBadRequest},
		{"no bars in range", `{"from": 1, "to": 2, "strategy": {"type": "BREAKOUT", "channel_period": 2}}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(f.server.URL+"/runs", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCreateRun_Disabled(t *testing.T) {
	srv := httptest.NewServer(NewServer(Options{Runs: memory.NewRunStore(), Trades: memory.NewTradeStore()}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runs", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	assert.Equal(t, http.StatusNotImplemented, getJSON(t, srv.URL+"/runs/x/events", nil))
}

func TestStream(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/runs/" + f.runID + "/stream"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msgs []StreamMessage
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			break
		}
		msgs = append(msgs, msg)
	}

	require.Len(t, msgs, f.trades+1)
	for i := 0; i < f.trades; i++ {
		assert.Equal(t, MessageTrade, msgs[i].Type)
		require.NotNil(t, msgs[i].Trade)
		assert.Equal(t, i, msgs[i].Trade.Seq)
	}
	last := msgs[len(msgs)-1]
	assert.Equal(t, MessageSummary, last.Type)
	require.NotNil(t, last.Summary)
	assert.Equal(t, f.runID, last.Summary.RunID)
}

func TestStream_UnknownRun(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/runs/missing/stream"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
