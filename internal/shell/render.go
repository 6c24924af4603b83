package shell

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tinytelemetry/etlq/internal/duckdb"
	"github.com/tinytelemetry/etlq/internal/logparse"
	"github.com/tinytelemetry/etlq/internal/model"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

var severityColors = map[string]lipgloss.Color{
	"ERROR":   lipgloss.Color("196"),
	"WARNING": lipgloss.Color("208"),
	"INFO":    lipgloss.Color("39"),
}

const otherSeverityColor = lipgloss.Color("250")

func severityColor(severity string) lipgloss.Color {
	if c, ok := severityColors[severity]; ok {
		return c
	}
	return otherSeverityColor
}

// PrintIntro writes the startup banner.
func PrintIntro(w io.Writer, version string, records int, source string) {
	logo := cyanStyle.Bold(true).Render(`
    ╔═╗╔╦╗╦    ╔═╗ 
    ║╣  ║ ║    ║═╬╗
    ╚═╝ ╩ ╩═╝  ╚═╝╚`)

	var lines []string
	lines = append(lines, logo)
	lines = append(lines, "    "+dimStyle.Render("v"+version))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s records loaded from %s", cyanStyle.Render(strconv.Itoa(records)), dimStyle.Render(source)))
	lines = append(lines, "")
	lines = append(lines, "    Type `help` or `?` to list commands and `exit` to exit.")
	lines = append(lines, "")
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func sortSeverityCounts(counts []model.SeverityCount) {
	slices.SortStableFunc(counts, func(a, b model.SeverityCount) int {
		ra, rb := logparse.SeverityRank(a.Severity), logparse.SeverityRank(b.Severity)
		if ra != rb {
			return ra - rb
		}
		return strings.Compare(a.Severity, b.Severity)
	})
}

// renderStats draws a bar per severity followed by a count table.
func renderStats(counts []model.SeverityCount) string {
	if len(counts) == 0 {
		return dimStyle.Render("no matching records")
	}

	const barWidth, barGap, chartHeight = 7, 2, 8
	bc := barchart.New(len(counts)*(barWidth+barGap), chartHeight,
		barchart.WithBarGap(barGap),
		barchart.WithBarWidth(barWidth),
	)
	for _, sc := range counts {
		color := severityColor(sc.Severity)
		bc.Push(barchart.BarData{
			Label: sc.Severity,
			Values: []barchart.BarValue{{
				Name:  sc.Severity,
				Value: float64(sc.Count),
				Style: lipgloss.NewStyle().Foreground(color).Background(color),
			}},
		})
	}
	bc.Draw()

	var total int64
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("Severity", "Count")
	for _, sc := range counts {
		t.Row(sc.Severity, strconv.FormatInt(sc.Count, 10))
		total += sc.Count
	}
	t.Row("TOTAL", strconv.FormatInt(total, 10))
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case row >= 0 && row < len(counts) && col == 0:
			return cellStyle.Foreground(severityColor(counts[row].Severity))
		default:
			return cellStyle
		}
	})

	return bc.View() + "\n\n" + t.Render()
}

// renderResultTable formats an ad-hoc SQL result.
func renderResultTable(res *duckdb.QueryResult) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(res.Columns...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		t.Row(cells...)
	}
	return t.Render()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.Format(model.TimeLayout)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
