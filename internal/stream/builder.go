package stream

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/feedstream/internal/dedup"
	"github.com/ppiankov/feedstream/internal/poller"
	"github.com/ppiankov/feedstream/internal/source"
	"github.com/sirupsen/logrus"
)

// Jitter bounds the random offset added to the base period of each source.
// When Max <= Min every source gets exactly Min.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Builder collects stream settings. Nothing runs until Stream.Start.
type Builder struct {
	sources     []source.Source
	sort        source.Sort
	period      time.Duration
	skipInitial bool
	store       dedup.Store
	persistent  bool
	logger      logrus.FieldLogger
	rng         *rand.Rand
}

// NewBuilder returns a builder for an ephemeral stream: unless Store is
// called, every source gets its own in-memory dedup set.
func NewBuilder() *Builder {
	return &Builder{
		sort:        source.SortNew,
		skipInitial: true,
	}
}

// NewPersistentBuilder returns a builder whose streams record seen items in
// a caller-supplied store shared by every source.
func NewPersistentBuilder() *Builder {
	b := NewBuilder()
	b.persistent = true
	return b
}

// Source adds sources to poll.
func (b *Builder) Source(srcs ...source.Source) *Builder {
	for _, s := range srcs {
		if s != nil {
			b.sources = append(b.sources, s)
		}
	}
	return b
}

func (b *Builder) Sort(s source.Sort) *Builder {
	b.sort = s
	return b
}

// Period sets the base poll period.
func (b *Builder) Period(d time.Duration) *Builder {
	b.period = d
	return b
}

func (b *Builder) SkipInitial(skip bool) *Builder {
	b.skipInitial = skip
	return b
}

func (b *Builder) Store(st dedup.Store) *Builder {
	b.store = st
	return b
}

func (b *Builder) Logger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// Rand sets the generator used for jitter and first-tick draws.
func (b *Builder) Rand(r *rand.Rand) *Builder {
	b.rng = r
	return b
}

// Build validates the settings and creates one poller per source.
func (b *Builder) Build(j Jitter) (*Stream, error) {
	if len(b.sources) == 0 {
		return nil, ErrMissingSources
	}
	if b.period <= 0 {
		return nil, ErrMissingPeriod
	}
	if b.persistent && b.store == nil {
		return nil, ErrMissingStorage
	}

	rng := b.rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	id := uuid.New()
	logger = logger.WithField("stream", id.String())

	multi := len(b.sources) > 1
	pollers := make([]*poller.Poller, 0, len(b.sources))
	for _, src := range b.sources {
		store := b.store
		if store == nil {
			store = dedup.NewMemory()
		}

		cfg := poller.Config{
			Period:      addPeriod(b.period, drawJitter(rng, j)),
			SkipInitial: b.skipInitial,
			TickFirst:   multi && rng.IntN(2) == 1,
			Sort:        b.sort,
		}

		p, err := poller.New(cfg, src, store, logger)
		if err != nil {
			return nil, err
		}
		pollers = append(pollers, p)
	}

	return newStream(id, pollers, logger), nil
}

const maxPeriod = time.Duration(math.MaxInt64)

// drawJitter returns a uniform draw from [Min, Max], both clamped at zero.
func drawJitter(rng *rand.Rand, j Jitter) time.Duration {
	low := max(j.Min, 0)
	high := max(j.Max, 0)
	if high <= low {
		return low
	}
	span := uint64(high - low)
	return low + time.Duration(rng.Uint64N(span+1))
}

// addPeriod adds a non-negative jitter to a positive base, saturating at the
// largest representable duration.
func addPeriod(base, jitter time.Duration) time.Duration {
	if jitter > maxPeriod-base {
		return maxPeriod
	}
	return base + jitter
}

// FromSource builds an ephemeral stream over a single source with no jitter.
// A nil store gives the stream its own in-memory dedup set.
func FromSource(src source.Source, sort source.Sort, period time.Duration, skipInitial bool, store dedup.Store) (*Stream, error) {
	return NewBuilder().
		Source(src).
		Sort(sort).
		Period(period).
		SkipInitial(skipInitial).
		Store(store).
		Build(Jitter{})
}
