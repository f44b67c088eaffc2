// Package feed implements the live data feed engine: it owns the
// per-symbol subscriptions, drives them under a UTC frontier, invokes
// universe selection, and publishes consolidated time slices to the
// bridge.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"feed_engine/internal/bridge"
	"feed_engine/internal/clock"
	"feed_engine/internal/data"
	"feed_engine/internal/enumerator"
	"feed_engine/internal/exchange"
	"feed_engine/internal/queue"
	"feed_engine/internal/universe"

	"github.com/shopspring/decimal"
)

// endOfTime is the open-ended subscription horizon.
var endOfTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// Algorithm is the downstream runtime's surface as the feed sees it: the
// securities and universes to follow, plus slice-assembly context.
type Algorithm interface {
	Securities() []*data.Security
	Universes() []*universe.Universe
	TimeZone() *time.Location
	CashBook() map[string]decimal.Decimal
}

// CustomDataReader produces the source sequence for custom-data
// subscriptions, which bypass the upstream queue entirely.
type CustomDataReader interface {
	Read(cfg data.SubscriptionConfig, utcStart time.Time) enumerator.Enumerator
}

// UniverseSelectionHandler is fired by the frontier loop when a universe
// subscription produced data in the current pass.
type UniverseSelectionHandler func(u *universe.Universe, cfg data.SubscriptionConfig,
	selectionTime time.Time, payload []data.BaseData)

// LiveFeed is the frontier loop engine.
type LiveFeed struct {
	algorithm Algorithm
	upstream  queue.DataQueueHandler
	clock     clock.TimeProvider
	bridge    *bridge.Bridge
	exchange  *exchange.Exchange

	customReader        CustomDataReader
	onUniverseSelection UniverseSelectionHandler

	subscriptions sync.Map // SubscriptionKey -> *Subscription

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	isActive bool
	pending  data.SecurityChanges

	// nextEmit/lastEmit are only touched by the frontier goroutine.
	nextEmit time.Time
	lastEmit time.Time
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{}
}

// SetUniverseSelectionHandler installs the selection callback. Must be
// called before Run.
func (f *LiveFeed) SetUniverseSelectionHandler(h UniverseSelectionHandler) {
	f.onUniverseSelection = h
}

// SetCustomDataReader installs the reader used for custom-data
// subscriptions. Without one, custom subscriptions get a bare enqueue
// source the caller can feed directly.
func (f *LiveFeed) SetCustomDataReader(r CustomDataReader) {
	f.customReader = r
}

// Initialize wires the feed: it constructs the fan-out exchange over the
// upstream queue, builds a subscription per security and per universe,
// subscribes upstream, and starts consumption.
func (f *LiveFeed) Initialize(algorithm Algorithm, upstream queue.DataQueueHandler,
	tp clock.TimeProvider, br *bridge.Bridge) error {

	if algorithm == nil || upstream == nil || tp == nil || br == nil {
		return errors.New("feed: initialize requires algorithm, upstream, clock and bridge")
	}

	f.algorithm = algorithm
	f.upstream = upstream
	f.clock = tp
	f.bridge = br
	f.exchange = exchange.New(upstream)
	f.ctx, f.cancel = context.WithCancel(context.Background())

	utcStart := tp.Now()
	for _, sec := range algorithm.Securities() {
		// Securities named by the algorithm itself are user defined;
		// universe selection must not churn them.
		sub, err := f.createSubscription(sec, utcStart, endOfTime, true)
		if err != nil {
			return fmt.Errorf("feed: subscription for %s: %w", sec.Symbol, err)
		}
		f.subscriptions.Store(sub.Key(), sub)
	}

	for _, u := range algorithm.Universes() {
		sub := f.createUniverseSubscription(u, utcStart)
		f.subscriptions.Store(sub.Key(), sub)
	}

	if request := f.subscriptionRequest(); len(request) > 0 {
		if err := upstream.Subscribe(request); err != nil {
			return fmt.Errorf("feed: upstream subscribe: %w", err)
		}
	}

	f.exchange.BeginConsume()
	log.Printf("Live feed initialized: %d subscriptions", f.subscriptionCount())
	return nil
}

// AddSubscription builds and registers a subscription for the security.
// If the upstream refuses the subscribe request the error propagates and
// nothing is registered.
func (f *LiveFeed) AddSubscription(sec *data.Security, utcStart, utcEnd time.Time, isUserDefined bool) error {
	key := SubscriptionKey{Symbol: sec.Symbol, Type: sec.Type}
	if _, exists := f.subscriptions.Load(key); exists {
		return fmt.Errorf("feed: %s %s already subscribed", sec.Type, sec.Symbol)
	}

	sub, err := f.createSubscription(sec, utcStart, utcEnd, isUserDefined)
	if err != nil {
		f.exchange.RemoveHandler(sec.Symbol)
		return err
	}

	if !sec.IsCustomData {
		request := map[data.SecurityType][]data.Symbol{sec.Type: {sec.Symbol}}
		if err := f.upstream.Subscribe(request); err != nil {
			// No partial state: the handler installed during construction
			// is rolled back and the subscription is never registered.
			f.exchange.RemoveHandler(sec.Symbol)
			return fmt.Errorf("feed: upstream subscribe %s: %w", sec.Symbol, err)
		}
	}

	f.subscriptions.Store(key, sub)
	f.mu.Lock()
	f.pending = f.pending.MergeAdded(sec)
	f.mu.Unlock()
	return nil
}

// RemoveSubscription unregisters the security's subscription and reports
// whether one existed.
func (f *LiveFeed) RemoveSubscription(sec *data.Security) bool {
	key := SubscriptionKey{Symbol: sec.Symbol, Type: sec.Type}
	if _, ok := f.subscriptions.LoadAndDelete(key); !ok {
		return false
	}

	f.exchange.RemoveHandler(sec.Symbol)
	if !sec.IsCustomData {
		request := map[data.SecurityType][]data.Symbol{sec.Type: {sec.Symbol}}
		if err := f.upstream.Unsubscribe(request); err != nil {
			log.Printf("feed: upstream unsubscribe %s: %v", sec.Symbol, err)
		}
	}

	f.mu.Lock()
	f.pending = f.pending.MergeRemoved(sec)
	f.mu.Unlock()
	return true
}

// Subscriptions returns a snapshot of the registered subscriptions.
func (f *LiveFeed) Subscriptions() []*Subscription {
	var subs []*Subscription
	f.subscriptions.Range(func(_, v any) bool {
		subs = append(subs, v.(*Subscription))
		return true
	})
	return subs
}

// Subscription looks up a subscription by routing identity.
func (f *LiveFeed) Subscription(symbol data.Symbol, secType data.SecurityType) (*Subscription, bool) {
	v, ok := f.subscriptions.Load(SubscriptionKey{Symbol: symbol, Type: secType})
	if !ok {
		return nil, false
	}
	return v.(*Subscription), true
}

// IsActive reports whether Run is executing.
func (f *LiveFeed) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isActive
}

// Exit cancels the feed. The dispatcher and the frontier both exit within
// one sleep period. Idempotent.
func (f *LiveFeed) Exit() {
	if f.cancel != nil {
		f.cancel()
	}
	if f.exchange != nil {
		f.exchange.EndConsume()
	}
}

// Run drives the frontier loop until Exit is called or the bridge closes.
func (f *LiveFeed) Run() {
	f.mu.Lock()
	f.isActive = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.isActive = false
		f.mu.Unlock()
		// Make sure the dispatcher dies with the frontier.
		f.cancel()
	}()

	log.Println("🚀 Live feed running")

	for {
		select {
		case <-f.ctx.Done():
			log.Println("🛑 Live feed stopping...")
			return
		default:
		}

		sleepIncrement := f.sleepIncrement()
		frontier := f.clock.Now()
		rounding := sleepIncrement

		var batches []data.SubscriptionBatch
		cancelled := false
		f.subscriptions.Range(func(_, v any) bool {
			sub := v.(*Subscription)
			items := f.drain(sub, frontier)
			if len(items) == 0 {
				return true
			}

			batches = append(batches, data.SubscriptionBatch{Symbol: sub.Config.Symbol, Items: items})
			if sub.Config.Resolution == data.ResolutionTick {
				rounding = time.Millisecond
			}

			if sub.IsUniverseSelection {
				// Let a backlogged downstream catch up before selection
				// fires, so the callback cannot race ahead of slices the
				// feed could no longer deliver.
				if err := f.bridge.WaitForRoom(f.ctx); err != nil {
					cancelled = true
					return false
				}
				if f.onUniverseSelection != nil {
					f.onUniverseSelection(sub.Universe, sub.Config, frontier, items)
				}
			}
			return true
		})
		if cancelled {
			return
		}

		if len(batches) > 0 || !frontier.Before(f.nextEmit) {
			emitTime := data.RoundDown(frontier, rounding)
			if emitTime.Before(f.lastEmit) {
				emitTime = f.lastEmit
			}

			f.mu.Lock()
			changes := f.pending
			f.pending = data.NoChanges
			f.mu.Unlock()

			slice := NewTimeSlice(emitTime, f.algorithm.TimeZone(), f.algorithm.CashBook(), batches, changes)
			if err := f.bridge.Add(f.ctx, slice); err != nil {
				// A closed bridge is a normal shutdown, not a failure.
				if !errors.Is(err, context.Canceled) && !errors.Is(err, bridge.ErrClosed) {
					log.Printf("feed: bridge write failed: %v", err)
				}
				return
			}
			f.lastEmit = emitTime
			f.nextEmit = emitTime.Add(time.Second)
		}

		// Sleep to the next boundary so emits stay aligned.
		now := f.clock.Now()
		boundary := data.RoundDown(now.Add(sleepIncrement), sleepIncrement)
		wait := boundary.Sub(now)
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		select {
		case <-f.ctx.Done():
			log.Println("🛑 Live feed stopping...")
			return
		case <-time.After(wait):
		}
	}
}

// drain pulls one subscription's ready data up to the frontier. Current
// is never lost: an item past the frontier stays saved for the next pass.
func (f *LiveFeed) drain(sub *Subscription, frontier time.Time) []data.BaseData {
	var items []data.BaseData
	for {
		if sub.needsAdvance {
			if !sub.Source.Next() {
				// Terminal source; nothing more will ever arrive.
				break
			}
		}
		cur := sub.Source.Current()
		if cur == nil {
			sub.needsAdvance = true
			break
		}
		if cur.GetEndTime().After(frontier) {
			sub.needsAdvance = false
			break
		}
		items = append(items, cur)
		sub.needsAdvance = true
	}
	return items
}

// createSubscription builds the per-symbol pipeline. Two-phase: the
// subscription shell is allocated first so the exchange handler can close
// over it, then the enumerator chain is wired and primed.
func (f *LiveFeed) createSubscription(sec *data.Security, utcStart, utcEnd time.Time,
	isUserDefined bool) (*Subscription, error) {

	cfg := sec.SubscriptionConfig()
	if cfg.TimeZone == nil {
		return nil, fmt.Errorf("security %s has no exchange time zone", sec.Symbol)
	}

	sub := &Subscription{
		Config:        cfg,
		Security:      sec,
		UTCStart:      utcStart.UTC(),
		UTCEnd:        utcEnd.UTC(),
		IsUserDefined: isUserDefined,
	}

	var source enumerator.Enumerator
	switch {
	case cfg.IsCustomData:
		// Custom data bypasses the exchange; a reader produces it.
		if f.customReader != nil {
			source = f.customReader.Read(cfg, sub.UTCStart)
		} else {
			source = enumerator.NewEnqueueable()
		}

	case cfg.Resolution == data.ResolutionTick:
		enq := enumerator.NewEnqueueable()
		f.exchange.SetHandler(cfg.Symbol, func(item data.BaseData) error {
			enq.Enqueue(item)
			if tick, ok := item.(*data.Tick); ok && !tick.LastPrice.IsZero() {
				sub.SetRealtimePrice(tick.LastPrice)
			}
			return nil
		})
		source = enq

	default:
		agg := enumerator.NewTickAggregator(f.clock, cfg.Increment, cfg.TimeZone)
		f.exchange.SetHandler(cfg.Symbol, func(item data.BaseData) error {
			tick, ok := item.(*data.Tick)
			if !ok {
				return fmt.Errorf("subscription %s: unexpected %T from upstream", cfg.Symbol, item)
			}
			agg.ProcessTick(tick)
			if !tick.LastPrice.IsZero() {
				sub.SetRealtimePrice(tick.LastPrice)
			}
			return nil
		})
		source = agg
	}

	if cfg.FillForward && cfg.Resolution != data.ResolutionTick {
		source = enumerator.NewFillForward(source, f.clock, sec.Exchange,
			cfg.Increment, cfg.ExtendedMarketHours, sub.UTCEnd)
	}
	source = enumerator.NewSubscriptionFilter(source, cfg.Symbol, sub.UTCEnd)
	sub.Source = source

	source.Next()
	sub.needsAdvance = source.Current() == nil
	return sub, nil
}

// createUniverseSubscription routes bulk selection payloads straight from
// the exchange into a dedicated enqueue source.
func (f *LiveFeed) createUniverseSubscription(u *universe.Universe, utcStart time.Time) *Subscription {
	cfg := u.Config
	sub := &Subscription{
		Config:              cfg,
		UTCStart:            utcStart.UTC(),
		UTCEnd:              endOfTime,
		IsUniverseSelection: true,
		Universe:            u,
	}

	enq := enumerator.NewEnqueueable()
	f.exchange.SetHandler(cfg.Symbol, func(item data.BaseData) error {
		enq.Enqueue(item)
		return nil
	})

	sub.Source = enumerator.NewSubscriptionFilter(enq, cfg.Symbol, sub.UTCEnd)
	sub.Source.Next()
	sub.needsAdvance = sub.Source.Current() == nil
	return sub
}

// sleepIncrement is 1ms while any tick-resolution subscription exists,
// 1s otherwise. Evaluated every pass so security changes take effect on
// the next iteration.
func (f *LiveFeed) sleepIncrement() time.Duration {
	increment := time.Second
	f.subscriptions.Range(func(_, v any) bool {
		if v.(*Subscription).Config.Resolution == data.ResolutionTick {
			increment = time.Millisecond
			return false
		}
		return true
	})
	return increment
}

// subscriptionRequest collects everything routed through the upstream
// queue into one additive subscribe request.
func (f *LiveFeed) subscriptionRequest() map[data.SecurityType][]data.Symbol {
	request := make(map[data.SecurityType][]data.Symbol)
	f.subscriptions.Range(func(_, v any) bool {
		sub := v.(*Subscription)
		if sub.Config.IsCustomData || sub.IsUniverseSelection {
			return true
		}
		request[sub.Config.SecurityType] = append(request[sub.Config.SecurityType], sub.Config.Symbol)
		return true
	})
	return request
}

func (f *LiveFeed) subscriptionCount() int {
	n := 0
	f.subscriptions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
