// Package stream merges several source pollers into one stream of unseen
// items.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/feedstream/internal/poller"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SourceInfo describes one poller of a stream.
type SourceInfo struct {
	Name      string
	Period    time.Duration
	TickFirst bool
}

// Stream is a running (or ready to run) set of pollers sharing one output.
type Stream struct {
	ID uuid.UUID

	pollers []*poller.Poller
	out     chan Result
	done    chan struct{}
	logger  logrus.FieldLogger

	mu      sync.Mutex
	started bool
}

func newStream(id uuid.UUID, pollers []*poller.Poller, logger logrus.FieldLogger) *Stream {
	return &Stream{
		ID:      id,
		pollers: pollers,
		out:     make(chan Result),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Start launches one goroutine per source. Cancelling ctx stops the stream
// the same way Stop does.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	var g errgroup.Group
	for _, p := range s.pollers {
		g.Go(func() error {
			return p.Run(ctx, s.out)
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			s.logger.WithError(err).Warn("poller exited with error")
		}
		close(s.out)
		close(s.done)
		s.logger.Info("stream finished")
	}()

	s.logger.WithField("sources", len(s.pollers)).Info("stream started")
	return nil
}

// Next blocks until a result is ready. ok is false once the stream has
// stopped and drained, or when ctx is done.
func (s *Stream) Next(ctx context.Context) (Result, bool) {
	select {
	case r, ok := <-s.out:
		return r, ok
	case <-ctx.Done():
		return Result{}, false
	}
}

// Results returns the merged channel. It is closed after every poller exits.
func (s *Stream) Results() <-chan Result {
	return s.out
}

// Stop asks every poller to exit at its next tick boundary. Results already
// queued remain available from Next.
func (s *Stream) Stop() {
	for _, p := range s.pollers {
		p.Stop()
	}
	s.logger.Debug("stream stop requested")
}

// Close stops the stream, drops undelivered results and waits for every
// poller to exit.
func (s *Stream) Close() {
	for _, p := range s.pollers {
		p.Discard()
	}
	s.Wait()
}

// Wait blocks until every poller has exited. It returns at once if the stream
// was never started.
func (s *Stream) Wait() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return
	}
	<-s.done
}

// Sources describes each poller in the order sources were added.
func (s *Stream) Sources() []SourceInfo {
	infos := make([]SourceInfo, 0, len(s.pollers))
	for _, p := range s.pollers {
		cfg := p.Config()
		infos = append(infos, SourceInfo{
			Name:      p.Name(),
			Period:    cfg.Period,
			TickFirst: cfg.TickFirst,
		})
	}
	return infos
}
