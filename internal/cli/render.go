package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/klokku/daylayout/pkg/calendar"
)

// columnWidth is the number of characters a full day column is drawn with.
const columnWidth = 24

var (
	colorCyan = lipgloss.Color("36")
	colorGray = lipgloss.Color("245")
	colorDim  = lipgloss.Color("240")

	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorGray).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
	styleBar    = lipgloss.NewStyle().Foreground(colorCyan)
)

func renderDays(w io.Writer, days []calendar.DayLayout, loc *time.Location) {
	for i, day := range days {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, styleTitle.Render(day.Date.In(loc).Format("Monday, 2 January 2006")))
		if len(day.Events) == 0 {
			fmt.Fprintln(w, styleDim.Render("  no events"))
			continue
		}
		fmt.Fprintln(w, styleDim.Render(fmt.Sprintf("  %d events in %d clusters", len(day.Events), day.Clusters)))
		fmt.Fprintln(w, renderTable(day, loc))
	}
}

func renderTable(day calendar.DayLayout, loc *time.Location) string {
	rows := make([][]string, 0, len(day.Events))
	for _, e := range day.Events {
		rows = append(rows, []string{
			e.Event.StartTime.In(loc).Format("15:04") + "-" + e.Event.EndTime.In(loc).Format("15:04"),
			renderBar(e.Event.Color, e.Layout.OffsetFraction, e.Layout.WidthFraction),
			fmt.Sprintf("%d", e.Layout.OverlapGroup),
			fmt.Sprintf("%d+%d/%d", e.Layout.BaseColumnIndex, e.Layout.ColumnSpan, e.Layout.TotalColumns),
			e.Event.UID,
			e.Event.Summary,
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleDim).
		Headers("TIME", "COLUMN", "CLUSTER", "COLS", "ID", "SUMMARY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		String()
}

// renderBar draws the horizontal part of the day column an event occupies.
func renderBar(color string, offset, width float64) string {
	start := int(math.Round(offset * columnWidth))
	length := max(int(math.Round(width*columnWidth)), 1)
	if start+length > columnWidth {
		length = columnWidth - start
	}

	style := styleBar
	if color != "" {
		style = style.Foreground(lipgloss.Color(color))
	}
	return strings.Repeat("·", start) +
		style.Render(strings.Repeat("█", length)) +
		strings.Repeat("·", columnWidth-start-length)
}
