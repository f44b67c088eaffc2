package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"feed_engine/internal/data"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// wireTick is the JSON shape a generic vendor endpoint sends per event.
type wireTick struct {
	Symbol   string  `json:"symbol"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	Last     float64 `json:"last"`
	Quantity float64 `json:"qty"`
	// Unix milliseconds; zero means "use receive time".
	Timestamp int64 `json:"ts"`
}

type wireCommand struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// WebSocketDataQueueHandler reads JSON ticks from a vendor websocket
// endpoint into a buffer drained by GetNextTicks. Subscriptions are
// forwarded as subscribe/unsubscribe commands on the same connection.
type WebSocketDataQueueHandler struct {
	url string

	mu     sync.Mutex
	conn   *websocket.Conn
	buffer []data.BaseData
	closed bool
}

func NewWebSocketDataQueueHandler(url string) *WebSocketDataQueueHandler {
	return &WebSocketDataQueueHandler{url: url}
}

func (w *WebSocketDataQueueHandler) Subscribe(symbols map[data.SecurityType][]data.Symbol) error {
	if err := w.ensureConnected(); err != nil {
		return err
	}
	return w.send("subscribe", symbols)
}

func (w *WebSocketDataQueueHandler) Unsubscribe(symbols map[data.SecurityType][]data.Symbol) error {
	w.mu.Lock()
	connected := w.conn != nil
	w.mu.Unlock()
	if !connected {
		return nil
	}
	return w.send("unsubscribe", symbols)
}

func (w *WebSocketDataQueueHandler) GetNextTicks() []data.BaseData {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.buffer
	w.buffer = nil
	return out
}

// Close shuts the connection down and stops the read pump.
func (w *WebSocketDataQueueHandler) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

func (w *WebSocketDataQueueHandler) ensureConnected() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}
	if w.closed {
		return fmt.Errorf("websocket queue: closed")
	}

	conn, _, err := websocket.DefaultDialer.Dial(w.url, nil)
	if err != nil {
		return fmt.Errorf("websocket queue: dial %s: %w", w.url, err)
	}
	w.conn = conn
	go w.readPump(conn)
	log.Printf("🔌 Connected to tick feed at %s", w.url)
	return nil
}

func (w *WebSocketDataQueueHandler) send(action string, symbols map[data.SecurityType][]data.Symbol) error {
	cmd := wireCommand{Action: action}
	for _, syms := range symbols {
		for _, s := range syms {
			cmd.Symbols = append(cmd.Symbols, s.String())
		}
	}
	if len(cmd.Symbols) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(cmd)
}

func (w *WebSocketDataQueueHandler) readPump(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			closed := w.closed
			if w.conn == conn {
				w.conn = nil
			}
			w.mu.Unlock()
			if !closed {
				log.Printf("ERROR: tick feed read failed: %v", err)
			}
			return
		}

		var wt wireTick
		if err := json.Unmarshal(payload, &wt); err != nil {
			log.Printf("tick feed: dropping malformed message: %v", err)
			continue
		}

		ts := time.Now().UTC()
		if wt.Timestamp > 0 {
			ts = time.UnixMilli(wt.Timestamp).UTC()
		}
		tick := &data.Tick{
			Symbol:    data.Symbol(wt.Symbol),
			Time:      ts,
			BidPrice:  decimal.NewFromFloat(wt.Bid),
			AskPrice:  decimal.NewFromFloat(wt.Ask),
			LastPrice: decimal.NewFromFloat(wt.Last),
			Quantity:  decimal.NewFromFloat(wt.Quantity),
		}

		w.mu.Lock()
		w.buffer = append(w.buffer, tick)
		w.mu.Unlock()
	}
}
