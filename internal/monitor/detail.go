package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
)

// detailGraphRows is the height of each graph in the detail view.
const detailGraphRows = 6

var detailContainerStyle = lipgloss.NewStyle().Padding(0, 1)

// updateDetailViewportContent re-renders the detail body into the viewport.
func (m *Model) updateDetailViewportContent() {
	if m.viewMode != ViewDetail || !m.viewportReady {
		return
	}
	m.detailViewport.SetContent(m.renderDetailBody())
}

// renderDetailView renders the expanded single-GPU view.
func (m Model) renderDetailView() string {
	d := m.SelectedDevice()
	if d == nil {
		return LabelStyle.Render("No GPU selected")
	}

	body := m.renderDetailBody()
	if m.viewportReady {
		body = m.detailViewport.View()
	}

	return detailContainerStyle.Render(
		m.renderDetailHeader(d) + "\n\n" + body + "\n" + m.renderDetailFooter())
}

func (m Model) renderDetailHeader(d gpu.Device) string {
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(d.Identifier())
	name := DeviceNameStyle.Render(" " + d.Name())
	return HeaderStyle.Render(title + name + LabelStyle.Render(" - "+m.State(d).String()))
}

// renderDetailBody renders the scrollable content: constants, poll health
// and one full-width graph per tracked metric.
func (m Model) renderDetailBody() string {
	d := m.SelectedDevice()
	if d == nil {
		return ""
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	sections := []string{
		m.renderDeviceSection(d, width),
		m.renderPollSection(d, width),
	}
	for _, metric := range m.store.Metrics() {
		latest := "-"
		if s, ok := m.store.Latest(d.ID(), metric); ok {
			latest = fmt.Sprintf("%g%s", s.Value, metric.Unit())
		}
		graph := RenderMetricGraph(m.store.Series(d.ID(), metric), metric, m.store.Window(), m.now(),
			width-4, detailGraphRows, m.thresholds)

		lines := []string{SectionHeader(metric.Title(), latest, width)}
		for _, row := range strings.Split(graph, "\n") {
			lines = append(lines, SectionContentLine(row, width))
		}
		lines = append(lines, SectionFooter(width))
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n")
}

// renderDeviceSection lists the constant readings and control state.
func (m Model) renderDeviceSection(d gpu.Device, width int) string {
	c := d.Constants()
	rows := [][2]string{
		{"Driver", orDash(c.DriverVersion)},
		{"Bus", c.BusType()},
		{"Bus ID", c.BusID()},
		{"Memory", fmt.Sprintf("%d MB", c.TotalMemoryMB)},
	}
	if cores, ok := d.Extended(gpu.ExtCUDACores); ok {
		rows = append(rows, [2]string{"CUDA cores", fmt.Sprintf("%d", cores)})
	}
	fan := "unavailable"
	if d.FanControlAvailable() {
		fan = "auto"
		if d.FanControlEnabled() {
			fan = "manual"
		}
	}
	rows = append(rows, [2]string{"Fan control", fan})

	return section(d.Vendor(), d.Identifier(), rows, width)
}

// renderPollSection shows refresh health from the poller.
func (m Model) renderPollSection(d gpu.Device, width int) string {
	st, _ := m.poller.Status(d.ID())
	rows := [][2]string{
		{"Last success", since(m.now(), st.LastSuccess)},
		{"Failures", fmt.Sprintf("%d in a row, %d total", st.Failures, st.TotalFailures)},
	}
	if st.LastError != nil {
		rows = append(rows, [2]string{"Last error", ErrorTextStyle.Render(truncate(errors.Headline(st.LastError), width-20))})
	}
	return section("Polling", "every "+m.poller.Interval().String(), rows, width)
}

func section(title, value string, rows [][2]string, width int) string {
	lines := []string{SectionHeader(title, value, width)}
	for _, r := range rows {
		label := LabelStyle.Width(14).Render(r[0])
		lines = append(lines, SectionContentLine(label+ValueStyle.Render(r[1]), width))
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

func (m Model) renderDetailFooter() string {
	return FooterStyle.Render(strings.Join([]string{
		hint(keys.Back, "back"),
		"↑↓ scroll",
		hint(keys.Refresh, "refresh"),
		hint(keys.Quit, "quit"),
	}, " | "))
}

func since(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return now.Sub(t).Truncate(time.Second).String() + " ago"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
