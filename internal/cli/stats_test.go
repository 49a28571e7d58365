package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gputweak/gputweak/internal/config"
	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec/exectest"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/gpu/gputest"
	"github.com/gputweak/gputweak/internal/history"
	"github.com/gputweak/gputweak/internal/logger"
)

func TestNewStatsSetup(t *testing.T) {
	d := gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{CoreTemp: 50, UpdatedAt: time.Now()})

	tests := []struct {
		name        string
		opts        StatsOptions
		wantMetrics []history.Metric
		wantWindow  time.Duration
		wantEvery   time.Duration
		wantRefresh time.Duration
	}{
		{
			name:        "config defaults",
			wantMetrics: history.DefaultMetrics,
			wantWindow:  time.Minute,
			wantEvery:   2 * time.Second,
			wantRefresh: time.Second,
		},
		{
			name: "flags win",
			opts: StatsOptions{
				Interval: 5 * time.Second,
				Refresh:  3 * time.Second,
				Window:   5 * time.Minute,
				Metrics:  []string{"fan_speed"},
			},
			wantMetrics: []history.Metric{history.FanSpeed},
			wantWindow:  5 * time.Minute,
			wantEvery:   5 * time.Second,
			wantRefresh: 3 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup, err := newStatsSetup(config.DefaultConfig(), []gpu.Device{d}, tt.opts, logger.Noop())
			require.NoError(t, err)
			defer setup.poller.Unbind()

			assert.Equal(t, tt.wantMetrics, setup.store.Metrics())
			assert.Equal(t, tt.wantWindow, setup.store.Window())
			assert.Equal(t, tt.wantEvery, setup.poller.Interval())
			assert.Equal(t, tt.wantRefresh, setup.refresh)
		})
	}
}

func TestNewStatsSetup_SeedsDiscoveredReadings(t *testing.T) {
	loaded := gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{CoreTemp: 61, UpdatedAt: time.Now()})
	unread := gputest.NewFakeDevice(1, "GeForce RTX 3090", gpu.Variables{})

	setup, err := newStatsSetup(config.DefaultConfig(), []gpu.Device{loaded, unread}, StatsOptions{}, logger.Noop())
	require.NoError(t, err)
	defer setup.poller.Unbind()

	latest, ok := setup.store.Latest(0, history.CoreTemp)
	require.True(t, ok)
	assert.Equal(t, 61.0, latest.Value)
	assert.Equal(t, 0, setup.store.Len(1, history.CoreTemp))
}

func TestNewStatsSetup_BadMetric(t *testing.T) {
	_, err := newStatsSetup(config.DefaultConfig(), nil, StatsOptions{Metrics: []string{"hotness"}}, logger.Noop())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestStreamStats(t *testing.T) {
	d0 := gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{CoreTemp: 54, CoreUse: 37, MemoryUse: 12})
	d1 := gputest.NewFakeDevice(1, "GeForce RTX 3090", gpu.Variables{CoreTemp: 88, CoreUse: 99, FanControlEnabled: true})
	d0.QueueVariables(gpu.Variables{CoreTemp: 56, CoreUse: 40, MemoryUse: 15})

	setup, err := newStatsSetup(config.DefaultConfig(), []gpu.Device{d0, d1}, StatsOptions{}, logger.Noop())
	require.NoError(t, err)
	defer setup.poller.Unbind()

	var buf bytes.Buffer
	err = streamStats(context.Background(), &buf, setup, config.DefaultConfig().Monitor.Thresholds, 1)

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(plain(buf.String())), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, lines[0])

	assert.True(t, strings.HasPrefix(lines[1], "gpu:0"))
	assert.Contains(t, lines[1], "56°C")
	assert.Contains(t, lines[1], "core 40%")
	assert.Contains(t, lines[1], "mem 15%")
	assert.Contains(t, lines[1], "fan auto")

	assert.True(t, strings.HasPrefix(lines[2], "gpu:1"))
	assert.Contains(t, lines[2], "88°C")
	assert.Contains(t, lines[2], "fan manual")

	assert.Equal(t, 1, setup.store.Len(0, history.CoreTemp))
	assert.Equal(t, 1, d0.Fetches())
}

func TestStreamStats_StopsOnCancel(t *testing.T) {
	d := gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{})
	setup, err := newStatsSetup(config.DefaultConfig(), []gpu.Device{d}, StatsOptions{}, logger.Noop())
	require.NoError(t, err)
	defer setup.poller.Unbind()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- streamStats(ctx, &bytes.Buffer{}, setup, config.DefaultConfig().Monitor.Thresholds, 0)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("streamStats did not return after cancel")
	}
}

func TestStreamStats_ReturnsAfterCount(t *testing.T) {
	d := gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{CoreTemp: 54})
	setup, err := newStatsSetup(config.DefaultConfig(), []gpu.Device{d}, StatsOptions{Interval: 10 * time.Millisecond}, logger.Noop())
	require.NoError(t, err)
	defer setup.poller.Unbind()

	for _, count := range []int{1, 2} {
		var buf bytes.Buffer
		done := make(chan error, 1)
		go func() {
			done <- streamStats(context.Background(), &buf, setup, config.DefaultConfig().Monitor.Thresholds, count)
		}()

		select {
		case err := <-done:
			require.NoError(t, err)
			assert.Equal(t, count, strings.Count(plain(buf.String()), "gpu:0"))
		case <-time.After(2 * time.Second):
			t.Fatalf("streamStats with count %d did not return while its parent context was live", count)
		}
	}
}

func TestStatsLine_RefreshFailure(t *testing.T) {
	d := gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{CoreTemp: 54})
	d.FailFetch(errors.New(errors.ErrExec, "Couldn't read gpu:0 readings", ""))

	setup, err := newStatsSetup(config.DefaultConfig(), []gpu.Device{d}, StatsOptions{Metrics: []string{"core_temp,core_clock"}}, logger.Noop())
	require.NoError(t, err)
	defer setup.poller.Unbind()
	setup.poller.PollOnce(context.Background())

	line := plain(statsLine(d, setup, config.DefaultConfig().Monitor.Thresholds))

	assert.Contains(t, line, "✗ refresh failed")
	assert.Contains(t, line, "54°C")
	assert.Contains(t, line, "clk 0 MHz")
}

func TestStatsCommand_Plain(t *testing.T) {
	f := exectest.New()
	scriptList(f, "GeForce GTX 1080")
	scriptGPU(f, 0, "0")
	s, out := newTestSession(t, f)

	err := statsCommand(context.Background(), s, []string{"0"}, StatsOptions{Count: 1}, false)

	require.NoError(t, err)
	text := plain(out.String())
	assert.Contains(t, text, "gpu:0")
	assert.Contains(t, text, "54°C")
	assert.Contains(t, text, "core 37%")
	assert.Contains(t, text, "mem 12%")
}

func TestStatsCommand_UnknownGPU(t *testing.T) {
	f := exectest.New()
	scriptList(f, "GeForce GTX 1080")
	scriptGPU(f, 0, "0")
	s, _ := newTestSession(t, f)

	err := statsCommand(context.Background(), s, []string{"4"}, StatsOptions{Count: 1}, false)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDiscovery))
}

func TestMinMaxOf(t *testing.T) {
	assert.Equal(t, 0.0, minOf(nil))
	assert.Equal(t, 0.0, maxOf(nil))
	assert.Equal(t, 2.0, minOf([]float64{5, 2, 9}))
	assert.Equal(t, 9.0, maxOf([]float64{5, 2, 9}))
}

func TestFirstPositive(t *testing.T) {
	assert.Equal(t, time.Second, firstPositive(0, time.Second, time.Minute))
	assert.Equal(t, time.Duration(0), firstPositive(0, -time.Second))
}
