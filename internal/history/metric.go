package history

import (
	"fmt"
	"strings"

	"github.com/gputweak/gputweak/internal/gpu"
)

// Metric names one recorded reading.
type Metric string

const (
	CoreTemp    Metric = "core_temp"
	CoreUse     Metric = "core_use"
	MemoryUse   Metric = "memory_use"
	FanSpeed    Metric = "fan_speed"
	CoreClock   Metric = "core_clock"
	MemoryClock Metric = "memory_clock"
)

// DefaultMetrics are recorded unless the store is configured otherwise.
var DefaultMetrics = []Metric{CoreTemp, CoreUse, MemoryUse}

// AllMetrics lists every metric a Store can record.
func AllMetrics() []Metric {
	return []Metric{CoreTemp, CoreUse, MemoryUse, FanSpeed, CoreClock, MemoryClock}
}

// ParseMetric accepts a metric name such as "core_temp".
func ParseMetric(s string) (Metric, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range AllMetrics() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Value extracts the metric from a set of readings.
func (m Metric) Value(v gpu.Variables) (float64, bool) {
	switch m {
	case CoreTemp:
		return float64(v.CoreTemp), true
	case CoreUse:
		return float64(v.CoreUse), true
	case MemoryUse:
		return float64(v.MemoryUse), true
	case FanSpeed:
		return float64(v.FanSpeed), true
	case CoreClock:
		return float64(v.CoreClock), true
	case MemoryClock:
		return float64(v.MemoryClock), true
	}
	return 0, false
}

// Title is the human-readable name.
func (m Metric) Title() string {
	switch m {
	case CoreTemp:
		return "Core temperature"
	case CoreUse:
		return "Core usage"
	case MemoryUse:
		return "Memory usage"
	case FanSpeed:
		return "Fan speed"
	case CoreClock:
		return "Core clock"
	case MemoryClock:
		return "Memory clock"
	}
	return string(m)
}

// Unit is the display suffix for values of m.
func (m Metric) Unit() string {
	switch m {
	case CoreTemp:
		return "°C"
	case CoreClock, MemoryClock:
		return " MHz"
	}
	return "%"
}

// IsPercent reports whether m is bounded to 0..100.
func (m Metric) IsPercent() bool {
	return m.Unit() == "%"
}
