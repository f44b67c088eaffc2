package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed_engine/internal/bridge"
	"feed_engine/internal/clock"
	"feed_engine/internal/config"
	"feed_engine/internal/data"
	"feed_engine/internal/feed"
	"feed_engine/internal/hours"
	"feed_engine/internal/logger"
	"feed_engine/internal/queue"
	"feed_engine/internal/universe"

	"github.com/shopspring/decimal"
)

const LogFile = "feed_engine.log"
const VersionFile = "version.latest"

// nycZone is the exchange zone for the default equity universe.
var nycZone = marketZone()

// marketZone loads New York from the tz database so daylight saving is
// observed; hosts without a tz database fall back to fixed EST.
func marketZone() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*3600)
}

// staticAlgorithm is a minimal algorithm surface: a fixed set of equity
// securities, one coarse universe, and a USD cash book.
type staticAlgorithm struct {
	securities []*data.Security
	universes  []*universe.Universe
	timeZone   *time.Location
	cash       map[string]decimal.Decimal
}

func (a *staticAlgorithm) Securities() []*data.Security         { return a.securities }
func (a *staticAlgorithm) Universes() []*universe.Universe      { return a.universes }
func (a *staticAlgorithm) TimeZone() *time.Location             { return a.timeZone }
func (a *staticAlgorithm) CashBook() map[string]decimal.Decimal { return a.cash }

func main() {
	// 1. Configuration, then logging with the configured rotation.
	cfg := config.Load()
	cfg.Version = readVersion()
	logger.Setup(LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)

	timeProvider := clock.RealTimeProvider{}

	// 2. Upstream queue adapter, selected by DATA_QUEUE_HANDLER.
	var upstream queue.DataQueueHandler
	switch cfg.DataQueueHandler {
	case "alpaca":
		upstream = queue.NewAlpacaDataQueueHandler()
	case "websocket":
		upstream = queue.NewWebSocketDataQueueHandler(cfg.WSFeedURL)
	case "simulated":
		upstream = queue.NewSimulatedDataQueueHandler(timeProvider, time.Now().UnixNano())
	default:
		log.Fatalf("CRITICAL: unknown data-queue-handler %q", cfg.DataQueueHandler)
	}

	// 3. Algorithm surface: the configured symbols at minute resolution.
	exchangeHours := hours.NewEquityExchange(nycZone)
	algorithm := &staticAlgorithm{
		timeZone: nycZone,
		cash:     map[string]decimal.Decimal{"USD": decimal.NewFromInt(100000)},
	}
	for _, ticker := range cfg.Symbols {
		algorithm.securities = append(algorithm.securities, &data.Security{
			Symbol:      data.Symbol(ticker),
			Type:        data.SecurityTypeEquity,
			Exchange:    exchangeHours,
			Resolution:  data.ResolutionMinute,
			FillForward: true,
		})
	}
	algorithm.universes = append(algorithm.universes, universe.NewCoarseUniverse(
		"universe-coarse", nycZone, topByDollarVolume(10)))

	// 4. Feed wiring.
	br := bridge.New(cfg.BridgeCapacity)
	liveFeed := feed.NewLiveFeed()
	liveFeed.SetUniverseSelectionHandler(func(u *universe.Universe, ucfg data.SubscriptionConfig,
		selectionTime time.Time, payload []data.BaseData) {
		applySelection(liveFeed, exchangeHours, u, selectionTime, payload)
	})
	if err := liveFeed.Initialize(algorithm, upstream, timeProvider, br); err != nil {
		log.Fatalf("CRITICAL: feed initialization failed: %v", err)
	}

	// 5. Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("⚠️ Feed engine shutting down: system signal received.")
		liveFeed.Exit()
		br.Close()
		cancel()
	}()

	// 6. Downstream consumer: drain slices, log a periodic summary.
	go consumeSlices(ctx, br)

	log.Printf("🚀 SYSTEM START: Feed Engine %s online (adapter=%s, symbols=%d)",
		cfg.Version, cfg.DataQueueHandler, len(cfg.Symbols))

	// Run blocks until Exit or a fatal feed error.
	liveFeed.Run()
	log.Println("🛑 SYSTEM SHUTDOWN: feed loop exited.")
}

// consumeSlices is the downstream side of the bridge: a blocking,
// cancellable cursor over emitted time slices.
func consumeSlices(ctx context.Context, br *bridge.Bridge) {
	var slices, points int
	lastReport := time.Now()

	for {
		slice, err := br.Next(ctx)
		if err != nil {
			return
		}
		slices++
		points += slice.Count()
		if slice.Changes.Count() > 0 {
			log.Printf("Security changes at %s: +%d -%d",
				slice.Time.Format(time.RFC3339), len(slice.Changes.Added), len(slice.Changes.Removed))
		}
		if time.Since(lastReport) >= 10*time.Second {
			log.Printf("Bridge: %d slices, %d data points in the last 10s (backlog %d)",
				slices, points, br.Count())
			slices, points = 0, 0
			lastReport = time.Now()
		}
	}
}

// topByDollarVolume keeps the n most traded symbols from a coarse payload.
func topByDollarVolume(n int) universe.SelectionFunc {
	return func(_ time.Time, coarse []*data.CoarseFundamental) []data.Symbol {
		sorted := make([]*data.CoarseFundamental, len(coarse))
		copy(sorted, coarse)
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0 && sorted[j].DollarVolume.GreaterThan(sorted[j-1].DollarVolume); j-- {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			}
		}
		if len(sorted) > n {
			sorted = sorted[:n]
		}
		symbols := make([]data.Symbol, 0, len(sorted))
		for _, c := range sorted {
			symbols = append(symbols, c.Symbol)
		}
		return symbols
	}
}

// applySelection runs the universe's selector and reconciles the feed's
// subscriptions against the selected set.
func applySelection(liveFeed *feed.LiveFeed, exchangeHours *hours.Exchange,
	u *universe.Universe, selectionTime time.Time, payload []data.BaseData) {

	var coarse []*data.CoarseFundamental
	for _, item := range payload {
		if list, ok := item.(*data.CoarseFundamentalList); ok {
			coarse = append(coarse, list.Coarse...)
		}
	}
	if len(coarse) == 0 || u.Select == nil {
		return
	}

	selected := make(map[data.Symbol]bool)
	for _, sym := range u.Select(selectionTime, coarse) {
		selected[sym] = true
	}

	// Drop members that fell out of the selection.
	for _, sub := range liveFeed.Subscriptions() {
		if sub.IsUserDefined || sub.IsUniverseSelection {
			continue
		}
		if selected[sub.Config.Symbol] {
			delete(selected, sub.Config.Symbol) // already subscribed
			continue
		}
		liveFeed.RemoveSubscription(sub.Security)
	}

	// Add the newcomers.
	for sym := range selected {
		sec := &data.Security{
			Symbol:      sym,
			Type:        data.SecurityTypeEquity,
			Exchange:    exchangeHours,
			Resolution:  data.ResolutionMinute,
			FillForward: true,
		}
		if err := liveFeed.AddSubscription(sec, selectionTime, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), false); err != nil {
			log.Printf("Universe selection: could not add %s: %v", sym, err)
		}
	}
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return string(version)
}
