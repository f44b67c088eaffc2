package queue

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"feed_engine/internal/data"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/shopspring/decimal"
)

// AlpacaDataQueueHandler adapts Alpaca's stocks websocket stream to the
// polled DataQueueHandler contract: stream callbacks buffer ticks, the
// exchange drains the buffer via GetNextTicks.
type AlpacaDataQueueHandler struct {
	client *stream.StocksClient

	mu        sync.Mutex
	buffer    []data.BaseData
	connected bool
	reconnect bool
}

// NewAlpacaDataQueueHandler builds the handler. Credentials come from the
// environment (APCA_API_KEY_ID / APCA_API_SECRET_KEY), validated earlier
// by config.Load.
func NewAlpacaDataQueueHandler() *AlpacaDataQueueHandler {
	keyID := os.Getenv("APCA_API_KEY_ID")
	secretKey := os.Getenv("APCA_API_SECRET_KEY")

	return &AlpacaDataQueueHandler{
		client: stream.NewStocksClient(
			marketdata.IEX, // IEX feed works on free/paper keys
			stream.WithCredentials(keyID, secretKey),
			stream.WithReconnectSettings(10, 500*time.Millisecond),
		),
		reconnect: true,
	}
}

func (a *AlpacaDataQueueHandler) Subscribe(symbols map[data.SecurityType][]data.Symbol) error {
	tickers := equityTickers(symbols)
	if len(tickers) == 0 {
		return nil
	}

	a.ensureConnected()

	if err := a.client.SubscribeToTrades(a.onTrade, tickers...); err != nil {
		return err
	}
	return a.client.SubscribeToQuotes(a.onQuote, tickers...)
}

func (a *AlpacaDataQueueHandler) Unsubscribe(symbols map[data.SecurityType][]data.Symbol) error {
	tickers := equityTickers(symbols)
	if len(tickers) == 0 {
		return nil
	}
	if err := a.client.UnsubscribeFromTrades(tickers...); err != nil {
		return err
	}
	return a.client.UnsubscribeFromQuotes(tickers...)
}

func (a *AlpacaDataQueueHandler) GetNextTicks() []data.BaseData {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.buffer
	a.buffer = nil
	return out
}

func (a *AlpacaDataQueueHandler) onTrade(t stream.Trade) {
	tick := &data.Tick{
		Symbol:    data.Symbol(t.Symbol),
		Time:      t.Timestamp.UTC(),
		LastPrice: decimal.NewFromFloat(t.Price),
		Quantity:  decimal.NewFromInt(int64(t.Size)),
	}
	a.push(tick)
}

func (a *AlpacaDataQueueHandler) onQuote(q stream.Quote) {
	// Quote-only tick: no last price, contributes bid/ask only.
	tick := &data.Tick{
		Symbol:   data.Symbol(q.Symbol),
		Time:     q.Timestamp.UTC(),
		BidPrice: decimal.NewFromFloat(q.BidPrice),
		AskPrice: decimal.NewFromFloat(q.AskPrice),
	}
	a.push(tick)
}

func (a *AlpacaDataQueueHandler) push(tick *data.Tick) {
	a.mu.Lock()
	a.buffer = append(a.buffer, tick)
	a.mu.Unlock()
}

// ensureConnected starts the websocket connection once, in the
// background. The SDK retries per WithReconnectSettings; if it gives up
// entirely we fall back to a capped manual backoff loop.
func (a *AlpacaDataQueueHandler) ensureConnected() {
	a.mu.Lock()
	if a.connected {
		a.mu.Unlock()
		return
	}
	a.connected = true
	a.mu.Unlock()

	go func() {
		log.Println("🔌 Connecting to Alpaca stream...")
		if err := a.client.Connect(context.Background()); err != nil {
			log.Printf("ERROR: Alpaca stream closed with error: %v", err)
			if a.reconnect {
				a.manualReconnectLoop()
			}
			return
		}
		log.Println("Alpaca stream closed normally.")
	}()
}

func (a *AlpacaDataQueueHandler) manualReconnectLoop() {
	backoff := 1 * time.Second
	maxBackoff := 60 * time.Second

	for a.reconnect {
		time.Sleep(backoff)
		log.Println("Reconnecting Alpaca stream...")
		if err := a.client.Connect(context.Background()); err != nil {
			log.Printf("Reconnection failed: %v", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		} else {
			backoff = 1 * time.Second
		}
	}
}

func equityTickers(symbols map[data.SecurityType][]data.Symbol) []string {
	var tickers []string
	for _, sym := range symbols[data.SecurityTypeEquity] {
		tickers = append(tickers, sym.String())
	}
	return tickers
}
