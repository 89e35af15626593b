// Package throughput samples interface byte counters and reports transfer
// rates.
package throughput

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kostyay/netpulse/internal/collector"
	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/model"
	"github.com/kostyay/netpulse/internal/output"
)

// Emitter receives outbound messages. A non-nil error means the channel
// is closed and the sampler stops.
type Emitter interface {
	Emit(msg any) error
}

// Config configures a Sampler.
type Config struct {
	Interval time.Duration // defaults to 1s
	Logger   *log.Entry
}

// Sampler emits a speed message every interval.
type Sampler struct {
	source   collector.CounterSource
	emitter  Emitter
	interval time.Duration
	logger   *log.Entry

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// New creates a sampler reading from source.
func New(source collector.CounterSource, emitter Emitter, cfg Config) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Sampler{
		source:   source,
		emitter:  emitter,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start captures the baseline counters and begins sampling.
// Calling Start more than once has no effect.
func (s *Sampler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		prev, err := s.source.Counters(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("failed to read initial counters")
		}
		go s.run(ctx, prev, err == nil)
	})
}

// Stop ends sampling and waits for the sampling goroutine to exit.
// It is idempotent and safe to call when the sampler already stopped itself.
func (s *Sampler) Stop() {
	s.startOnce.Do(func() { close(s.done) })
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}

// Done is closed once the sampler has stopped.
func (s *Sampler) Done() <-chan struct{} {
	return s.done
}

func (s *Sampler) run(ctx context.Context, prev model.Counters, haveBaseline bool) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-ticker.C:
		}

		msg, ok := s.sample(ctx, &prev, &haveBaseline)
		if !ok {
			continue
		}
		if err := s.emitter.Emit(msg); err != nil {
			s.logger.WithError(err).Debug("channel closed, stopping sampler")
			return
		}
	}
}

// sample reads the counters once. ok is false when nothing should be sent.
func (s *Sampler) sample(ctx context.Context, prev *model.Counters, haveBaseline *bool) (output.SpeedMessage, bool) {
	cur, err := s.source.Counters(ctx)
	if err != nil {
		// Report a zero rate and keep the old baseline so the next good
		// reading spans the gap.
		s.logger.WithError(err).Warn("failed to read counters")
		return output.NewSpeed(model.Speed{}), true
	}

	if !*haveBaseline {
		*prev, *haveBaseline = cur, true
		return output.SpeedMessage{}, false
	}

	speed, ok := model.Rate(*prev, cur)
	if !ok {
		s.logger.WithFields(log.Fields{
			"prev": prev.At,
			"cur":  cur.At,
		}).Debug("clock did not advance, skipping sample")
		return output.SpeedMessage{}, false
	}

	*prev = cur
	return output.NewSpeed(speed), true
}
