package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/history"
)

// Graph sizes in character cells.
const (
	graphRows        = 4
	graphMinCols     = 16
	graphGap         = 2
	defaultCardWidth = 76
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderDeviceCards())

	if m.ShowFooter() {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}

	return b.String()
}

// renderHeader renders the dashboard header with summary stats.
func (m Model) renderHeader() string {
	var updateText string
	switch lastUpdate := m.SecondsSinceUpdate(); {
	case m.lastUpdate.IsZero():
		updateText = "waiting for first reading"
	case lastUpdate == 0:
		updateText = "last update just now"
	default:
		updateText = fmt.Sprintf("last update %ds ago", lastUpdate)
	}

	where := m.host
	if where == "" {
		where = "local"
	}

	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("gputweak stats")

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(fmt.Sprintf(" | %s | %d GPUs | %d ok | %s", where, len(m.devices), m.HealthyCount(), updateText))

	spinner := ""
	if m.polling {
		spinner = " " + lipgloss.NewStyle().Foreground(ColorGraph).
			Render(PollingFrames[m.frame%len(PollingFrames)])
	}

	return HeaderStyle.Render(title + stats + spinner)
}

// renderDeviceCards renders one card per GPU, stacked vertically.
func (m Model) renderDeviceCards() string {
	if len(m.devices) == 0 {
		return LabelStyle.Render("No GPUs to show")
	}

	width := m.cardWidth()
	cards := make([]string, len(m.devices))
	for i, d := range m.devices {
		cards[i] = m.renderCard(d, width, i == m.selected)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// cardWidth is the inner width of a card.
func (m Model) cardWidth() int {
	if m.width == 0 {
		return defaultCardWidth
	}
	// Border and padding take two columns on each side.
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// renderCard renders one GPU: title line, current readings and graphs.
func (m Model) renderCard(d gpu.Device, width int, selected bool) string {
	lines := []string{
		m.renderCardTitle(d),
		m.renderReadings(d),
	}
	if m.LayoutMode() != LayoutMinimal {
		if graphs := m.renderGraphRow(d, width); graphs != "" {
			lines = append(lines, graphs)
		}
	}
	if st, ok := m.poller.Status(d.ID()); ok && st.LastError != nil {
		lines = append(lines, ErrorTextStyle.Render(truncate(errors.Headline(st.LastError), width)))
	}

	style := CardStyle
	if selected {
		style = CardSelectedStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCardTitle(d gpu.Device) string {
	var indicator string
	state := m.State(d)
	switch state {
	case StateHealthy:
		indicator = StatusHealthyStyle.Render(StatusHealthy)
	case StateFailing:
		indicator = StatusFailingStyle.Render(StatusFailing)
	default:
		indicator = StatusWaitingStyle.Render(StatusWaiting)
	}
	return indicator + " " + DeviceNameStyle.Render(d.Identifier()+"  "+d.Name()) +
		LabelStyle.Render(" - "+state.String())
}

// renderReadings renders the current variables on one line.
func (m Model) renderReadings(d gpu.Device) string {
	v := d.Variables()
	temp := MetricStyleWithThresholds(float64(v.CoreTemp), m.thresholds.Warning, m.thresholds.Critical).
		Render(fmt.Sprintf("%d°C", v.CoreTemp))

	fanMode := "auto"
	if v.FanControlEnabled {
		fanMode = "manual"
	}

	parts := []string{
		temp,
		LabelStyle.Render("fan ") + ValueStyle.Render(fmt.Sprintf("%d%%", v.FanSpeed)) + LabelStyle.Render(" ("+fanMode+")"),
		LabelStyle.Render("core ") + CompactProgressBar(8, float64(v.CoreUse)) + ValueStyle.Render(fmt.Sprintf(" %d%%", v.CoreUse)),
		LabelStyle.Render("mem ") + CompactProgressBar(8, float64(v.MemoryUse)) + ValueStyle.Render(fmt.Sprintf(" %d%%", v.MemoryUse)),
	}
	if m.LayoutMode() != LayoutMinimal {
		parts = append(parts, LabelStyle.Render("clocks ")+ValueStyle.Render(fmt.Sprintf("%d/%d MHz", v.CoreClock, v.MemoryClock)))
	}
	return strings.Join(parts, "  ")
}

// graphMetrics returns the metrics graphed in the current layout.
func (m Model) graphMetrics() []history.Metric {
	metrics := m.store.Metrics()
	if m.LayoutMode() == LayoutCompact && len(metrics) > 1 {
		return metrics[:1]
	}
	return metrics
}

// renderGraphRow renders a titled graph per metric, side by side.
func (m Model) renderGraphRow(d gpu.Device, width int) string {
	metrics := m.graphMetrics()
	if len(metrics) == 0 {
		return ""
	}
	cols := (width - graphGap*(len(metrics)-1)) / len(metrics)
	for cols < graphMinCols && len(metrics) > 1 {
		metrics = metrics[:len(metrics)-1]
		cols = (width - graphGap*(len(metrics)-1)) / len(metrics)
	}

	blocks := make([]string, 0, len(metrics)*2)
	for i, metric := range metrics {
		if i > 0 {
			blocks = append(blocks, strings.Repeat(" ", graphGap))
		}
		blocks = append(blocks, m.renderMetricBlock(d.ID(), metric, cols, graphRows))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}

// renderMetricBlock renders a metric title with its latest value above the graph.
func (m Model) renderMetricBlock(device int, metric history.Metric, cols, rows int) string {
	title := LabelStyle.Render(metric.Title())
	if latest, ok := m.store.Latest(device, metric); ok {
		title += ValueStyle.Render(fmt.Sprintf(" %g%s", latest.Value, metric.Unit()))
	}
	g := RenderMetricGraph(m.store.Series(device, metric), metric, m.store.Window(), m.now(), cols, rows, m.thresholds)
	return lipgloss.JoinVertical(lipgloss.Left, truncate(title, cols), g)
}

// renderFooter renders the keyboard help footer.
func (m Model) renderFooter() string {
	hints := []string{
		hint(keys.Quit, "quit"),
		hint(keys.Refresh, "refresh"),
		hint(keys.Sort, "sort: "+m.sortOrder.String()),
		"↑↓ select",
		hint(keys.Detail, "detail"),
		hint(keys.Help, "help"),
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

// truncate shortens s to width visible cells.
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
