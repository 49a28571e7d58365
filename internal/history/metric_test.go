package history

import (
	"testing"

	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricValue(t *testing.T) {
	v := gpu.Variables{CoreTemp: 54, FanSpeed: 40, CoreClock: 1506, MemoryClock: 3802, CoreUse: 37, MemoryUse: 12}

	tests := []struct {
		metric Metric
		want   float64
	}{
		{CoreTemp, 54},
		{CoreUse, 37},
		{MemoryUse, 12},
		{FanSpeed, 40},
		{CoreClock, 1506},
		{MemoryClock, 3802},
	}

	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			got, ok := tt.metric.Value(v)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Metric("voltage").Value(v)
	assert.False(t, ok)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Core_Temp ")
	require.NoError(t, err)
	assert.Equal(t, CoreTemp, m)

	_, err = ParseMetric("voltage")
	assert.Error(t, err)
}

func TestMetricUnits(t *testing.T) {
	assert.Equal(t, "°C", CoreTemp.Unit())
	assert.Equal(t, " MHz", CoreClock.Unit())
	assert.Equal(t, "%", MemoryUse.Unit())
	assert.True(t, FanSpeed.IsPercent())
	assert.False(t, CoreTemp.IsPercent())
	assert.Equal(t, "Core temperature", CoreTemp.Title())
}
