package quote

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solramp/pkg/metrics"
	"solramp/pkg/types"
)

// Debouncer runs only the last function triggered within a quiet window
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the quiet window, replacing any pending call
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Cancel drops the pending call, if any
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Quoter is satisfied by *Service
type Quoter interface {
	GetQuote(ctx context.Context, from, to *types.Token, amount string) (*Quote, error)
}

// Update is delivered to the tracker's listener whenever the current quote changes
type Update struct {
	Generation uint64
	Quote      *Quote
	Err        error
}

// Tracker keeps the current quote for an intent that changes over time.
// Every request gets a generation number; a response is applied only when
// its generation is still the latest one requested.
type Tracker struct {
	quoter    Quoter
	debouncer *Debouncer
	onUpdate  func(Update)
	logger    logrus.FieldLogger

	mu         sync.Mutex
	generation uint64
	current    *Quote
}

func NewTracker(quoter Quoter, delay time.Duration, onUpdate func(Update)) *Tracker {
	if onUpdate == nil {
		onUpdate = func(Update) {}
	}
	return &Tracker{
		quoter:    quoter,
		debouncer: NewDebouncer(delay),
		onUpdate:  onUpdate,
		logger:    logrus.WithField("component", "quote_tracker"),
	}
}

// Request schedules a quote for intent and returns its generation. Invalid
// input clears the current quote immediately and issues no request.
func (t *Tracker) Request(ctx context.Context, intent types.SwapIntent) uint64 {
	t.mu.Lock()
	t.generation++
	gen := t.generation

	if _, err := ValidateIntent(intent.From, intent.To, intent.Amount); err != nil {
		t.current = nil
		t.mu.Unlock()

		t.debouncer.Cancel()
		t.onUpdate(Update{Generation: gen, Err: err})
		return gen
	}
	t.mu.Unlock()

	t.debouncer.Trigger(func() {
		q, err := t.quoter.GetQuote(ctx, intent.From, intent.To, intent.Amount)
		if applyErr := t.Apply(gen, q, err); applyErr != nil {
			t.logger.WithField("generation", gen).Debug("dropping stale quote")
		}
	})

	return gen
}

// Apply makes the result of request gen current. It returns ErrStale and
// changes nothing when a newer request has been made since.
func (t *Tracker) Apply(gen uint64, q *Quote, err error) error {
	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		metrics.QuoteResult("stale")
		return ErrStale
	}

	if err != nil || q == nil {
		t.current = nil
	} else {
		q.Generation = gen
		t.current = q
	}
	t.mu.Unlock()

	t.onUpdate(Update{Generation: gen, Quote: q, Err: err})
	return nil
}

// Current returns the applied quote, nil when cleared or not yet fetched
func (t *Tracker) Current() *Quote {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Generation returns the latest requested generation
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

func (t *Tracker) Close() {
	t.debouncer.Cancel()
}
