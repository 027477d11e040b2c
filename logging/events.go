package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rustyeddy/ticksim/broker"
)

// EventLogger is a broker.EventSink writing one log line per event.
type EventLogger struct {
	log *zap.Logger
}

var _ broker.EventSink = (*EventLogger)(nil)

func NewEventLogger(log *zap.Logger) *EventLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventLogger{log: log.Named("broker")}
}

// Level is the level an event kind is logged at.
func Level(k broker.EventKind) zapcore.Level {
	switch k {
	case broker.EventMarginCall, broker.EventRuin:
		return zap.WarnLevel
	case broker.EventOrderFilled, broker.EventTradeOpened, broker.EventTradeClosed, broker.EventOrderCancelled:
		return zap.InfoLevel
	default:
		return zap.DebugLevel
	}
}

func (l *EventLogger) Emit(e broker.Event) {
	ce := l.log.Check(Level(e.Kind), string(e.Kind))
	if ce == nil {
		return
	}

	fields := []zap.Field{
		zap.Int("tick", e.Tick),
		zap.Float64("cash", e.Cash),
	}
	if !e.Time.IsZero() {
		fields = append(fields, zap.Time("time", e.Time))
	}
	if e.OrderID != 0 {
		fields = append(fields, zap.Uint64("order_id", uint64(e.OrderID)))
	}
	if e.TradeID != "" {
		fields = append(fields, zap.String("trade_id", string(e.TradeID)))
	}
	if e.Instrument != "" {
		fields = append(fields, zap.String("instrument", e.Instrument))
	}
	if e.Size != 0 {
		fields = append(fields, zap.Float64("size", e.Size))
	}
	if e.Price != 0 {
		fields = append(fields, zap.Float64("price", e.Price))
	}

	switch e.Kind {
	case broker.EventTradeClosed:
		fields = append(fields, zap.Float64("pnl", e.PnL))
	case broker.EventTick, broker.EventMarginCall, broker.EventRuin:
		fields = append(fields,
			zap.Float64("equity", e.Equity),
			zap.Float64("margin_usage", e.MarginUsage),
		)
	}
	if e.Reason != "" {
		fields = append(fields, zap.String("reason", e.Reason))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	ce.Write(fields...)
}
