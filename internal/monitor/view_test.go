package monitor

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/gpu/gputest"
	"github.com/gputweak/gputweak/internal/history"
)

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

func TestView_BeforeFirstPoll(t *testing.T) {
	f := newFixture(t, twoFakeGPUs()...)

	out := plain(f.model.View())

	assert.Contains(t, out, "gputweak stats")
	assert.Contains(t, out, "gpu-box | 2 GPUs | 0 ok")
	assert.Contains(t, out, "waiting for first reading")
	assert.Contains(t, out, "gpu:0  GeForce GTX 1080 - waiting")
	assert.Contains(t, out, "gpu:1  Tesla T4 - waiting")
}

func TestView_AfterPoll(t *testing.T) {
	f := newFixture(t, twoFakeGPUs()...)
	m, _ := update(t, f.model, tea.WindowSizeMsg{Width: 130, Height: 40})
	m, _ = finishPoll(t, m)

	out := plain(m.View())

	assert.Contains(t, out, "2 ok")
	assert.Contains(t, out, "last update just now")
	assert.Contains(t, out, "gpu:0  GeForce GTX 1080 - ok")
	assert.Contains(t, out, "64°C")
	assert.Contains(t, out, "fan 0% (auto)")
	for _, metric := range history.DefaultMetrics {
		assert.Contains(t, out, metric.Title(), "standard layout graphs every metric")
	}
	assert.Contains(t, out, "s sort: id")
}

func TestView_LocalHost(t *testing.T) {
	f := newFixture(t, twoFakeGPUs()...)
	m := f.model
	m.host = ""

	assert.Contains(t, plain(m.View()), "| local |")
}

func TestView_Layouts(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		coreTemp  bool
		coreUsage bool
	}{
		{"minimal has no graphs", 60, false, false},
		{"compact graphs the first metric", 100, true, false},
		{"standard graphs every metric", 150, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, twoFakeGPUs()...)
			m, _ := update(t, f.model, tea.WindowSizeMsg{Width: tt.width, Height: 50})
			m, _ = finishPoll(t, m)

			out := plain(m.View())

			assert.Equal(t, tt.coreTemp, strings.Contains(out, history.CoreTemp.Title()))
			assert.Equal(t, tt.coreUsage, strings.Contains(out, history.CoreUse.Title()))
		})
	}
}

func TestView_ShowsLastError(t *testing.T) {
	devices := twoFakeGPUs()
	devices[0].FailFetch(errors.New(errors.ErrExec, "nvidia-settings timed out after 5s", ""))
	f := newFixture(t, devices...)
	m, _ := update(t, f.model, tea.WindowSizeMsg{Width: 130, Height: 40})
	m, _ = finishPoll(t, m)

	out := plain(m.View())

	assert.Contains(t, out, "gpu:1  Tesla T4 - failing")
	assert.Contains(t, out, "nvidia-settings timed out after 5s")
	assert.Contains(t, out, "1 ok")
}

func TestView_NoDevices(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, plain(f.model.View()), "No GPUs to show")
}

func TestView_HeaderSpinnerWhilePolling(t *testing.T) {
	f := newFixture(t, gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{}))
	m := f.model

	withSpinner := plain(m.renderHeader())
	m.polling = false
	without := plain(m.renderHeader())

	assert.Contains(t, withSpinner, PollingFrames[0])
	assert.NotContains(t, without, PollingFrames[0])
}

func TestView_SecondsAgo(t *testing.T) {
	f := newFixture(t, twoFakeGPUs()...)
	m := f.model
	m.lastUpdate = testNow.Add(-3 * time.Second)

	assert.Contains(t, plain(m.renderHeader()), "last update 3s ago")
}

func TestView_HelpOverlay(t *testing.T) {
	f := newFixture(t, twoFakeGPUs()...)
	m, _ := update(t, f.model, keyRunes("?"))

	out := plain(m.View())

	assert.Contains(t, out, "Keyboard Shortcuts")
	for _, b := range keys.bindings() {
		assert.Contains(t, out, b.Help().Desc)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "trunc", plain(truncate("truncated", 5)))
	assert.Equal(t, "anything", truncate("anything", 0))
}
