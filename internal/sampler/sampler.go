package sampler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/cpudash/cpudash/internal/config"
	"github.com/cpudash/cpudash/internal/hub"
	"github.com/shirou/gopsutil/v3/cpu"
)

// MinimumInterval is the floor applied to every sampler's interval.
const MinimumInterval = config.MinSampleInterval

var (
	// ErrAccountingFailed is returned by Run once the CPU reader has failed
	// too many times in a row.
	ErrAccountingFailed = errors.New("cpu accounting failed")

	errNoCores = errors.New("cpu reader returned no cores")
)

// Reader returns the current utilization of every logical core, as a
// percentage, in core order.
type Reader interface {
	Read(ctx context.Context) ([]float64, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) ([]float64, error)

func (f ReaderFunc) Read(ctx context.Context) ([]float64, error) { return f(ctx) }

// GopsutilReader reads per-core usage since its previous call.
type GopsutilReader struct{}

func (GopsutilReader) Read(ctx context.Context) ([]float64, error) {
	return cpu.PercentWithContext(ctx, 0, true)
}

// Publisher receives every snapshot the sampler produces.
type Publisher interface {
	Publish(hub.Snapshot)
}

type Sampler struct {
	reader      Reader
	pub         Publisher
	interval    time.Duration
	maxFailures int

	samples    atomic.Uint64
	lastSample atomic.Int64 // unix nanos
}

// New creates a sampler. Intervals below MinimumInterval are raised to it and
// maxFailures below 1 is treated as 1.
func New(reader Reader, pub Publisher, interval time.Duration, maxFailures int) *Sampler {
	if interval < MinimumInterval {
		interval = MinimumInterval
	}
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Sampler{
		reader:      reader,
		pub:         pub,
		interval:    interval,
		maxFailures: maxFailures,
	}
}

// Interval returns the effective delay between samples.
func (s *Sampler) Interval() time.Duration {
	return s.interval
}

// Run samples until ctx is cancelled or the reader fails maxFailures times
// in a row. It blocks, so callers run it on its own goroutine.
func (s *Sampler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.sampleOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			log.Printf("sampler read error (%d/%d): %v", failures, s.maxFailures, err)
			if failures >= s.maxFailures {
				return fmt.Errorf("%w after %d attempts: %w", ErrAccountingFailed, failures, err)
			}
		} else {
			failures = 0
		}

		timer.Reset(s.interval)
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) error {
	usage, err := s.reader.Read(ctx)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		return errNoCores
	}

	// The reader may reuse its buffer; the published snapshot must not change.
	snap := hub.Snapshot(usage).Clone()
	s.pub.Publish(snap)
	s.samples.Add(1)
	s.lastSample.Store(time.Now().UnixNano())
	return nil
}

// Samples returns how many snapshots have been published.
func (s *Sampler) Samples() uint64 {
	return s.samples.Load()
}

// LastSample returns when the most recent snapshot was published, or the
// zero time if none has been.
func (s *Sampler) LastSample() time.Time {
	ns := s.lastSample.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
