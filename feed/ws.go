package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/ticksim/market"
)

// WSQuotes streams quotes from a websocket endpoint. Each text frame holds
// one JSON tick or an array of them:
//
//	{"instrument":"EUR_USD","time":"2024-01-02T09:30:00Z","bid":1.1,"ask":1.1002}
type WSQuotes struct {
	URL    string
	Header http.Header
	// ReadTimeout bounds the wait for the next frame. Zero waits forever.
	ReadTimeout time.Duration
	Log         *zap.Logger
}

// Run dials URL and pushes every valid tick into sink until ctx is done, the
// server closes the stream or the sink stops accepting. Invalid frames are
// logged and skipped. Cancelling ctx is a clean stop and returns nil.
func (w *WSQuotes) Run(ctx context.Context, sink TickSink) error {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.URL, w.Header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.URL, err)
	}
	log.Info("quote stream connected", zap.String("url", w.URL))

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		if w.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("quote stream closed")
				return nil
			}
			return fmt.Errorf("read %s: %w", w.URL, err)
		}

		ticks, err := decodeTicks(msg)
		if err != nil {
			log.Warn("skipping bad quote frame", zap.Error(err))
			continue
		}
		for _, t := range ticks {
			if err := t.Validate(); err != nil {
				log.Warn("skipping invalid quote", zap.Error(err))
				continue
			}
			if !sink.Push(t) {
				log.Info("quote sink closed")
				return nil
			}
		}
	}
}

func decodeTicks(msg []byte) ([]market.Tick, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 {
		return nil, errors.New("empty frame")
	}
	if msg[0] == '[' {
		var ticks []market.Tick
		if err := json.Unmarshal(msg, &ticks); err != nil {
			return nil, err
		}
		return ticks, nil
	}
	var t market.Tick
	if err := json.Unmarshal(msg, &t); err != nil {
		return nil, err
	}
	return []market.Tick{t}, nil
}

// ReplayQuotes pushes ticks into sink in order, waiting pace between them,
// and stops early if ctx is done or the sink closes. It does not close the
// sink.
func ReplayQuotes(ctx context.Context, ticks []market.Tick, sink TickSink, pace time.Duration) error {
	for i, t := range ticks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pace > 0 && i > 0 {
			timer := time.NewTimer(pace)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if !sink.Push(t) {
			return nil
		}
	}
	return nil
}
