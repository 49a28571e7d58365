// Package history keeps a bounded, time-windowed series of readings for
// every (device, metric) pair.
//
// Old samples are not evicted on every append. Instead the store sweeps all
// series once more than half a window has passed since the last sweep, so a
// series may briefly hold samples up to one and a half windows old.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/gputweak/gputweak/internal/gpu"
)

// DefaultWindow is how much history a Store keeps.
const DefaultWindow = 60 * time.Second

// Sample is one reading.
type Sample struct {
	Time  time.Time
	Value float64
}

// Series is a list of samples ordered oldest first.
type Series []Sample

type seriesKey struct {
	device int
	metric Metric
}

// Store holds the series. It is safe for one writer (the poll loop) and any
// number of concurrent readers.
type Store struct {
	mu          sync.RWMutex
	window      time.Duration
	now         func() time.Time
	tracked     []Metric
	series      map[seriesKey]Series
	lastCleanup time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for the initial cleanup timestamp
// and by Observe.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics replaces the tracked metric set.
func WithMetrics(metrics ...Metric) Option {
	return func(s *Store) { s.tracked = append([]Metric(nil), metrics...) }
}

// New creates a store keeping window worth of samples. A non-positive
// window uses DefaultWindow.
func New(window time.Duration, opts ...Option) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &Store{
		window:  window,
		now:     time.Now,
		tracked: append([]Metric(nil), DefaultMetrics...),
		series:  make(map[seriesKey]Series),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastCleanup = s.now()
	return s
}

// Window returns the retention window.
func (s *Store) Window() time.Duration { return s.window }

// CleanupInterval is half the window.
func (s *Store) CleanupInterval() time.Duration { return s.window / 2 }

// Metrics returns the tracked metrics in the order they were added.
func (s *Store) Metrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Metric(nil), s.tracked...)
}

// Track starts recording m. Tracking a metric twice has no effect.
func (s *Store) Track(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracked {
		if t == m {
			return
		}
	}
	s.tracked = append(s.tracked, m)
}

// Append adds sample to the end of a series. A sample older than the
// series' newest one is dropped and Append returns false.
func (s *Store) Append(device int, m Metric, sample Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(seriesKey{device, m}, sample)
}

func (s *Store) appendLocked(k seriesKey, sample Sample) bool {
	series := s.series[k]
	if n := len(series); n > 0 && sample.Time.Before(series[n-1].Time) {
		return false
	}
	s.series[k] = append(series, sample)
	return true
}

// Record appends one sample per tracked metric taken at t, then sweeps old
// samples if a cleanup is due.
func (s *Store) Record(device int, v gpu.Variables, t time.Time) {
	s.mu.Lock()
	for _, m := range s.tracked {
		if value, ok := m.Value(v); ok {
			s.appendLocked(seriesKey{device, m}, Sample{Time: t, Value: value})
		}
	}
	s.mu.Unlock()

	s.MaybeCleanup(t)
}

// Observe records d's current readings. It has the signature of a
// gpu.Device change callback.
func (s *Store) Observe(d gpu.Device) {
	v := d.Variables()
	t := v.UpdatedAt
	if t.IsZero() {
		t = s.now()
	}
	s.Record(d.ID(), v, t)
}

// MaybeCleanup sweeps if more than half a window passed since the last
// sweep. It reports whether a sweep ran.
func (s *Store) MaybeCleanup(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastCleanup) <= s.window/2 {
		return false
	}
	s.cleanupLocked(now)
	return true
}

// Cleanup removes every sample older than the window, measured from now.
func (s *Store) Cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked(now)
}

func (s *Store) cleanupLocked(now time.Time) {
	for k, series := range s.series {
		i := 0
		for i < len(series) && now.Sub(series[i].Time) > s.window {
			i++
		}
		if i > 0 {
			// Copy so the dropped prefix can be collected.
			s.series[k] = append(Series(nil), series[i:]...)
		}
	}
	s.lastCleanup = now
}

// Series returns a copy of one series, oldest first.
func (s *Store) Series(device int, m Metric) Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[seriesKey{device, m}]
	if len(series) == 0 {
		return nil
	}
	return append(Series(nil), series...)
}

// Latest returns the newest sample of a series.
func (s *Store) Latest(device int, m Metric) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[seriesKey{device, m}]
	if len(series) == 0 {
		return Sample{}, false
	}
	return series[len(series)-1], true
}

// Len returns the number of samples in one series.
func (s *Store) Len(device int, m Metric) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[seriesKey{device, m}])
}

// Devices returns the ids of devices with at least one series, sorted.
func (s *Store) Devices() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[int]bool)
	for k := range s.series {
		seen[k.device] = true
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clear drops every series of one device.
func (s *Store) Clear(device int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.series {
		if k.device == device {
			delete(s.series, k)
		}
	}
}
