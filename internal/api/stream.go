package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/observability"
)

const writeTimeout = 10 * time.Second

// Stream message types.
const (
	MessageTrade   = "trade"
	MessageSummary = "summary"
)

// StreamMessage is one websocket frame of a trade stream.
type StreamMessage struct {
	Type    string          `json:"type"`
	Trade   *domain.Trade   `json:"trade,omitempty"`
	Summary *domain.Summary `json:"summary,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream replays a stored run's trades in log order, then its summary,
// then closes the connection normally.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Resolve before upgrading so unknown runs get a plain 404.
	summary, err := s.aggregator.Summarize(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	trades, err := s.opts.Trades.GetByRunID(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.StreamClientConnected(1)
	defer observability.StreamClientConnected(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go drainReads(conn, cancel)

	logger := s.logger.With(zap.String("run_id", id))
	logger.Debug("stream started", zap.Int("trades", len(trades)))

	for _, t := range trades {
		if err := s.pace(ctx); err != nil {
			return
		}
		if err := send(conn, StreamMessage{Type: MessageTrade, Trade: t}); err != nil {
			logger.Debug("stream write failed", zap.Error(err))
			return
		}
	}

	if err := send(conn, StreamMessage{Type: MessageSummary, Summary: summary}); err != nil {
		logger.Debug("stream write failed", zap.Error(err))
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of run"),
		time.Now().Add(writeTimeout))
}

// pace waits StreamInterval between messages, aborting when the client leaves.
func (s *Server) pace(ctx context.Context) error {
	if s.opts.StreamInterval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.opts.StreamInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func send(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// drainReads consumes client frames so control messages are processed,
// and cancels the stream when the client disconnects.
func drainReads(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
