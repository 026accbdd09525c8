package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	"AltScan/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements a MarketStream over the MEXC spot WebSocket kline
// channel. Updates arrive per interval tick; bar closure is inferred
// downstream when the window start advances.
type Stream struct {
	wsURL          string
	symbols        []string
	timeframe      drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	conn      *websocket.Conn
	connected bool
	names     map[string]string // exchange form -> scanner form
}

// NewStream creates a MEXC kline MarketStream for one timeframe.
func NewStream(wsURL string, symbols []string, tf drepo.Timeframe, reconnectDelay, pingInterval time.Duration, lgr *logger.Logger) drepo.MarketStream {
	names := make(map[string]string, len(symbols))
	for _, s := range symbols {
		names[MarketSymbol(s)] = s
	}
	return &Stream{
		wsURL:          wsURL,
		symbols:        symbols,
		timeframe:      tf,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         lgr,
		names:          names,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("mexc connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.logger.Info("mexc stream connected", logger.String("url", s.wsURL))
	return nil
}

// Subscribe subscribes the kline channel for every configured symbol.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("mexc stream not connected")
	}
	for _, sym := range s.symbols {
		msg := map[string]interface{}{
			"method": "SUBSCRIPTION",
			"params": []string{klineTopic(sym, s.timeframe)},
		}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
		s.logger.Debug("mexc stream subscribed", logger.String("symbol", sym))
	}
	return nil
}

func klineTopic(symbol string, tf drepo.Timeframe) string {
	return fmt.Sprintf("spot@public.kline.v3.api@%s@%s", MarketSymbol(symbol), streamInterval(tf))
}

// streamInterval maps a timeframe to the WS channel interval token.
func streamInterval(tf drepo.Timeframe) string {
	switch tf {
	case drepo.TF5m:
		return "Min5"
	case drepo.TF15m:
		return "Min15"
	case drepo.TF1h:
		return "Min60"
	case drepo.TF4h:
		return "Hour4"
	case drepo.TF1d:
		return "Day1"
	default:
		return "Min5"
	}
}

type wsKline struct {
	Start  int64       `json:"t"` // window start, seconds
	End    int64       `json:"T"` // window end, seconds
	Open   interface{} `json:"o"`
	High   interface{} `json:"h"`
	Low    interface{} `json:"l"`
	Close  interface{} `json:"c"`
	Volume interface{} `json:"v"`
}

type wsPayload struct {
	Event string  `json:"e"`
	Kline wsKline `json:"k"`
}

type wsMessage struct {
	Channel string    `json:"c"`
	Symbol  string    `json:"s"`
	Data    wsPayload `json:"d"`
	Msg     string    `json:"msg"`
}

// Read streams kline events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.BarEvent, <-chan error) {
	events := make(chan *models.BarEvent, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteJSON(map[string]string{"method": "PING"})
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("mexc conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("mexc read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-JSON frames
					continue
				}
				if m.Msg == "PONG" || !strings.Contains(m.Channel, "kline") {
					continue
				}
				ev, err := s.toEvent(&m)
				if err != nil {
					continue
				}
				select {
				case events <- ev:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return events, errs
}

func (s *Stream) toEvent(m *wsMessage) (*models.BarEvent, error) {
	k := m.Data.Kline
	open, err := toFloat(k.Open)
	if err != nil {
		return nil, err
	}
	high, err := toFloat(k.High)
	if err != nil {
		return nil, err
	}
	low, err := toFloat(k.Low)
	if err != nil {
		return nil, err
	}
	cls, err := toFloat(k.Close)
	if err != nil {
		return nil, err
	}
	vol, err := toFloat(k.Volume)
	if err != nil {
		return nil, err
	}

	name := m.Symbol
	if mapped, ok := s.names[name]; ok {
		name = mapped
	}
	return &models.BarEvent{
		Symbol:    name,
		Timeframe: string(s.timeframe),
		Bar: models.Bar{
			OpenTime:  time.Unix(k.Start, 0).UTC(),
			CloseTime: time.Unix(k.End, 0).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     cls,
			Volume:    vol,
		},
	}, nil
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
