package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/feedstream/internal/dedup"
	"github.com/ppiankov/feedstream/internal/source"
	"github.com/sirupsen/logrus"
)

// State is the phase a poller is in.
type State int32

const (
	Idle State = iota
	Waiting
	Fetching
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Fetching:
		return "fetching"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds poller configuration.
type Config struct {
	Period      time.Duration // Fetch interval, jitter already applied
	SkipInitial bool          // Record but do not deliver the first successful batch
	TickFirst   bool          // Wait one period before the first fetch
	Sort        source.Sort
}

// Poller fetches one source on a fixed period and queues unseen items.
type Poller struct {
	cfg    Config
	src    source.Source
	store  dedup.Store
	logger logrus.FieldLogger

	state   atomic.Int32
	stop    chan struct{}
	discard chan struct{}

	stopOnce    sync.Once
	discardOnce sync.Once

	// Owned by the Run goroutine.
	skipInitial bool
	pending     stack[Result]
}

// New creates a Poller. It does nothing until Run is called.
func New(cfg Config, src source.Source, store dedup.Store, logger logrus.FieldLogger) (*Poller, error) {
	if src == nil {
		return nil, errors.New("source is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Poller{
		cfg:         cfg,
		src:         src,
		store:       store,
		logger:      logger.WithField("source", src.Name()),
		stop:        make(chan struct{}),
		discard:     make(chan struct{}),
		skipInitial: cfg.SkipInitial,
	}, nil
}

// Name returns the name of the polled source.
func (p *Poller) Name() string {
	return p.src.Name()
}

// Config returns the configuration the poller was created with.
func (p *Poller) Config() Config {
	return p.cfg
}

// State reports the current phase.
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Stop asks the poller to exit at its next tick boundary. Results already
// queued are still delivered. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Discard stops the poller and drops whatever it has not delivered yet.
func (p *Poller) Discard() {
	p.Stop()
	p.discardOnce.Do(func() { close(p.discard) })
}

// Run is the poller goroutine. It returns once stopped and drained, or once
// discarded. Cancelling ctx has the same effect as Stop; in-flight fetches
// and store writes run on a context detached from that cancellation.
func (p *Poller) Run(ctx context.Context, out chan<- Result) error {
	defer p.setState(Stopped)

	work := context.WithoutCancel(ctx)

	ticker := time.NewTicker(p.cfg.Period)
	defer ticker.Stop()

	p.logger.WithFields(logrus.Fields{
		"period":     p.cfg.Period,
		"tick_first": p.cfg.TickFirst,
		"sort":       p.cfg.Sort.String(),
	}).Debug("poller started")

	if !p.cfg.TickFirst {
		p.poll(work)
		if !p.drain(out) {
			return nil
		}
	}

	for {
		if p.stopped(ctx) {
			p.logger.Debug("poller stopped")
			return nil
		}

		p.setState(Waiting)
		select {
		case <-p.stop:
			continue
		case <-p.discard:
			continue
		case <-ctx.Done():
			continue
		case <-ticker.C:
		}

		if p.stopped(ctx) {
			continue
		}

		p.poll(work)
		if !p.drain(out) {
			return nil
		}
	}
}

func (p *Poller) stopped(ctx context.Context) bool {
	select {
	case <-p.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// poll fetches once and queues the outcome. The queue is empty on entry.
func (p *Poller) poll(ctx context.Context) {
	p.setState(Fetching)
	name := p.src.Name()

	items, err := p.src.Fetch(ctx, p.cfg.Sort)
	if err != nil {
		p.logger.WithError(err).Warn("fetch failed")
		p.pending.push(Result{Err: &FetchError{Source: name, Err: err}})
		return
	}

	if p.skipInitial {
		p.skipInitial = false
		if err := p.store.StoreAll(ctx, items); err != nil {
			p.logger.WithError(err).Warn("record initial batch failed")
			p.pending.push(Result{Err: &StorageError{Source: name, Err: err}})
			return
		}
		p.logger.WithField("items", len(items)).Debug("initial batch recorded")
		return
	}

	fresh := 0
	for _, it := range items {
		isNew, err := p.store.Store(ctx, it)
		if err != nil {
			p.logger.WithError(err).WithField("item", it.ID).Warn("record item failed")
			p.pending.push(Result{Err: &StorageError{Source: name, ItemID: it.ID, Err: err}})
			continue
		}
		if !isNew {
			continue
		}
		p.pending.push(Result{Item: it})
		fresh++
	}

	p.logger.WithFields(logrus.Fields{
		"items": len(items),
		"new":   fresh,
	}).Debug("fetch complete")
}

// drain hands every queued result to out, newest first. It returns false if
// the poller was discarded meanwhile.
func (p *Poller) drain(out chan<- Result) bool {
	p.setState(Draining)
	for {
		r, ok := p.pending.pop()
		if !ok {
			return true
		}
		select {
		case out <- r:
		case <-p.discard:
			dropped := p.pending.len() + 1
			p.pending.clear()
			p.logger.WithField("dropped", dropped).Debug("poller discarded")
			return false
		}
	}
}
