package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vidhub/account-service/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Do once the serializer has been stopped.
var ErrStopped = errors.New("serializer stopped")

type job struct {
	ctx  context.Context
	key  string
	fn   func(ctx context.Context) error
	done chan error
}

// Serializer routes work to a fixed set of workers using consistent hashing
// on a key, so jobs for the same account never run concurrently.
type Serializer struct {
	workers []chan job
	depth   *prometheus.GaugeVec
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

var _ ports.KeySerializer = (*Serializer)(nil)

// NewSerializer creates a Serializer with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewSerializer(numWorkers int, log zerolog.Logger) *Serializer {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	s := &Serializer{
		workers: make([]chan job, numWorkers),
		depth:   QueueDepth,
		log:     log,
		quit:    make(chan struct{}),
	}
	for i := range s.workers {
		s.workers[i] = make(chan job, channelBuffer)
	}
	return s
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or Stop is called.
func (s *Serializer) Start(ctx context.Context) {
	for i, ch := range s.workers {
		s.wg.Add(1)
		go s.runWorker(i, ch)
	}
	go func() {
		select {
		case <-ctx.Done():
			s.stop()
		case <-s.quit:
		}
	}()
}

// Stop rejects new work and waits for the workers to exit.
func (s *Serializer) Stop() {
	s.stop()
	s.wg.Wait()
}

func (s *Serializer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.quit)
	}
}

// Do runs fn on the worker that owns key and waits for the result. If ctx is
// cancelled before the job is picked up, fn never runs.
func (s *Serializer) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrStopped
	}
	idx := s.shardIndex(key)
	j := job{ctx: ctx, key: key, fn: fn, done: make(chan error, 1)}
	depth := s.depth.WithLabelValues(strconv.Itoa(idx))

	depth.Inc()
	select {
	case s.workers[idx] <- j:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		depth.Dec()
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a key deterministically to a worker index.
func (s *Serializer) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.workers)))
}

func (s *Serializer) runWorker(id int, ch <-chan job) {
	defer s.wg.Done()
	depth := s.depth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-s.quit:
			s.drain(ch, depth)
			return
		case j := <-ch:
			depth.Dec()
			if err := j.ctx.Err(); err != nil {
				j.done <- err
				continue
			}
			err := j.fn(j.ctx)
			if err != nil {
				s.log.Debug().Err(err).
					Str("key", j.key).
					Int("worker_id", id).
					Msg("serialized job failed")
			}
			j.done <- err
		}
	}
}

// drain fails every job still buffered on ch so no caller waits forever.
func (s *Serializer) drain(ch <-chan job, depth prometheus.Gauge) {
	for {
		select {
		case j := <-ch:
			depth.Dec()
			j.done <- ErrStopped
		default:
			return
		}
	}
}
