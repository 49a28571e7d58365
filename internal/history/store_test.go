package history

import (
	"sync"
	"testing"
	"time"

	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func newTestStore(opts ...Option) *Store {
	return New(0, append([]Option{WithClock(func() time.Time { return t0 })}, opts...)...)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		window time.Duration
		want   time.Duration
	}{
		{"default", 0, DefaultWindow},
		{"negative", -time.Second, DefaultWindow},
		{"custom", 2 * time.Minute, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.window)
			assert.Equal(t, tt.want, s.Window())
			assert.Equal(t, tt.want/2, s.CleanupInterval())
			assert.Equal(t, DefaultMetrics, s.Metrics())
		})
	}
}

func TestAppend_KeepsOrder(t *testing.T) {
	s := newTestStore()

	assert.True(t, s.Append(0, CoreTemp, Sample{Time: at(1), Value: 40}))
	assert.True(t, s.Append(0, CoreTemp, Sample{Time: at(2), Value: 41}))
	assert.True(t, s.Append(0, CoreTemp, Sample{Time: at(2), Value: 42}), "equal timestamps are allowed")
	assert.False(t, s.Append(0, CoreTemp, Sample{Time: at(1), Value: 99}), "older samples are dropped")

	got := s.Series(0, CoreTemp)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{40, 41, 42}, values(got))
}

func values(series Series) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		out[i] = s.Value
	}
	return out
}

func TestSeries_IsACopy(t *testing.T) {
	s := newTestStore()
	s.Append(0, CoreUse, Sample{Time: at(1), Value: 10})

	got := s.Series(0, CoreUse)
	got[0].Value = 99

	assert.Equal(t, 10.0, s.Series(0, CoreUse)[0].Value)
	assert.Nil(t, s.Series(0, MemoryUse))
	assert.Nil(t, s.Series(7, CoreUse))
}

func TestRecord_TrackedMetrics(t *testing.T) {
	s := newTestStore()
	v := gpu.Variables{CoreTemp: 54, CoreUse: 37, MemoryUse: 12, FanSpeed: 40, CoreClock: 1500}

	s.Record(0, v, at(1))

	assert.Equal(t, 1, s.Len(0, CoreTemp))
	assert.Equal(t, 1, s.Len(0, CoreUse))
	assert.Equal(t, 1, s.Len(0, MemoryUse))
	assert.Equal(t, 0, s.Len(0, FanSpeed), "fan speed is not tracked by default")

	s.Track(FanSpeed)
	s.Track(FanSpeed)
	s.Record(0, v, at(2))

	assert.Equal(t, 1, s.Len(0, FanSpeed))
	assert.Equal(t, []Metric{CoreTemp, CoreUse, MemoryUse, FanSpeed}, s.Metrics())

	latest, ok := s.Latest(0, CoreTemp)
	require.True(t, ok)
	assert.Equal(t, Sample{Time: at(2), Value: 54}, latest)
}

func TestWithMetrics(t *testing.T) {
	s := newTestStore(WithMetrics(CoreClock, MemoryClock))

	s.Record(3, gpu.Variables{CoreClock: 1500, MemoryClock: 3800, CoreTemp: 50}, at(1))

	assert.Equal(t, 1, s.Len(3, CoreClock))
	assert.Equal(t, 0, s.Len(3, CoreTemp))
	assert.Equal(t, []int{3}, s.Devices())
}

func TestCleanup_EvictsOlderThanWindow(t *testing.T) {
	s := newTestStore()
	for sec := 0; sec <= 70; sec++ {
		s.Append(0, CoreTemp, Sample{Time: at(sec), Value: float64(sec)})
	}

	s.Cleanup(at(70))

	got := s.Series(0, CoreTemp)
	require.NotEmpty(t, got)
	assert.Equal(t, at(10), got[0].Time, "a sample exactly one window old is kept")
	assert.Equal(t, at(70), got[len(got)-1].Time)
	assert.Len(t, got, 61)
}

func TestMaybeCleanup_Interval(t *testing.T) {
	s := newTestStore()
	s.Append(0, CoreTemp, Sample{Time: at(-100), Value: 1})

	assert.False(t, s.MaybeCleanup(at(30)), "not due at exactly half a window")
	assert.Equal(t, 1, s.Len(0, CoreTemp))

	assert.True(t, s.MaybeCleanup(at(31)))
	assert.Equal(t, 0, s.Len(0, CoreTemp))

	assert.False(t, s.MaybeCleanup(at(61)), "interval restarts after each sweep")
	assert.True(t, s.MaybeCleanup(at(62)))
}

func TestRecord_EvictsOnSchedule(t *testing.T) {
	s := newTestStore()

	// Poll every 2s for two minutes.
	for sec := 0; sec <= 120; sec += 2 {
		s.Record(0, gpu.Variables{CoreTemp: sec}, at(sec))

		series := s.Series(0, CoreTemp)
		oldest := at(sec).Sub(series[0].Time)
		assert.LessOrEqual(t, oldest, s.Window()+s.CleanupInterval()+2*time.Second,
			"at %ds the oldest sample is %s old", sec, oldest)
	}
}

func TestRecord_InvariantAfterCleanup(t *testing.T) {
	s := newTestStore()
	poll := 2 * time.Second

	for sec := 0; sec <= 180; sec += 2 {
		s.Record(0, gpu.Variables{CoreUse: 50}, at(sec))
		s.Record(1, gpu.Variables{CoreUse: 50}, at(sec))
	}
	s.Cleanup(at(180))

	for _, dev := range []int{0, 1} {
		for _, m := range DefaultMetrics {
			series := s.Series(dev, m)
			require.NotEmpty(t, series)
			assert.LessOrEqual(t, at(180).Sub(series[0].Time), s.Window()+poll)
		}
	}
}

type stubDevice struct {
	gpu.Device
	id   int
	vars gpu.Variables
}

func (d stubDevice) ID() int                  { return d.id }
func (d stubDevice) Variables() gpu.Variables { return d.vars }

func TestObserve(t *testing.T) {
	s := newTestStore()

	s.Observe(stubDevice{id: 2, vars: gpu.Variables{CoreTemp: 60, UpdatedAt: at(5)}})
	s.Observe(stubDevice{id: 2, vars: gpu.Variables{CoreTemp: 61}})

	got := s.Series(2, CoreTemp)
	require.Len(t, got, 1, "a zero timestamp falls back to the store clock, which is older")
	assert.Equal(t, at(5), got[0].Time)
}

func TestClear(t *testing.T) {
	s := newTestStore()
	s.Record(0, gpu.Variables{}, at(1))
	s.Record(1, gpu.Variables{}, at(1))

	s.Clear(0)

	assert.Equal(t, []int{1}, s.Devices())
	assert.Equal(t, 0, s.Len(0, CoreTemp))
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := newTestStore()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for sec := 0; sec < 500; sec++ {
			s.Record(0, gpu.Variables{CoreTemp: sec}, at(sec))
		}
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				_ = s.Series(0, CoreTemp)
				_, _ = s.Latest(0, CoreTemp)
			}
		}()
	}
	wg.Wait()

	assert.NotZero(t, s.Len(0, CoreTemp))
}
