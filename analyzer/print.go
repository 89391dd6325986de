package analyzer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/gnolang/reach/internal/analysis/stats"
)

var (
	fileStyle    = color.New(color.FgCyan, color.Bold)
	safeStyle    = color.New(color.FgGreen, color.Bold)
	unsafeStyle  = color.New(color.FgRed, color.Bold)
	unknownStyle = color.New(color.FgYellow, color.Bold)
	lineStyle    = color.New(color.FgBlue, color.Bold)
	messageStyle = color.New(color.FgYellow)
)

func verdictStyle(v Verdict) *color.Color {
	switch v {
	case Safe:
		return safeStyle
	case Unsafe:
		return unsafeStyle
	default:
		return unknownStyle
	}
}

// FormatReport renders a report for the terminal.
func FormatReport(r *Report) string {
	var b strings.Builder
	b.WriteString(verdictStyle(r.Verdict).Sprintf("%-7s", r.Verdict))
	b.WriteString(" " + fileStyle.Sprint(r.File))
	if r.Cached {
		fmt.Fprintf(&b, " (cached, %d iterations, %d states)\n", r.Iterations, r.States)
	} else {
		fmt.Fprintf(&b, " (%d iterations, %d states, %v)\n", r.Iterations, r.States, r.Elapsed)
	}

	for _, site := range r.Errors {
		b.WriteString(lineStyle.Sprint(" --> "))
		fmt.Fprintf(&b, "error location N%d in %s", site.Node, site.Function)
		if len(site.Lines) > 0 {
			fmt.Fprintf(&b, ", line %s", joinInts(site.Lines))
		}
		b.WriteString("\n")
	}
	for _, d := range r.Diagnostics {
		b.WriteString(lineStyle.Sprint("  | "))
		b.WriteString(messageStyle.Sprintf("abandoned path: %s\n", d))
	}
	if r.Aborted != "" {
		b.WriteString(lineStyle.Sprint("  | "))
		b.WriteString(unsafeStyle.Sprintf("aborted: %s\n", r.Aborted))
	}
	return b.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}

// PrintReports writes every report, followed by the engine statistics when
// verbose is set.
func PrintReports(w io.Writer, reports []*Report, verbose bool) error {
	for _, r := range reports {
		if _, err := io.WriteString(w, FormatReport(r)); err != nil {
			return err
		}
		if verbose {
			if err := stats.Print(w, r.Stats); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteJSON writes the reports as a JSON array.
func WriteJSON(w io.Writer, reports []*Report) error {
	if reports == nil {
		reports = []*Report{}
	}
	d, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(d, '\n'))
	return err
}

// WriteMetrics writes everything g gathers in the Prometheus text format.
func WriteMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Summary counts the reports per verdict.
func Summary(reports []*Report) map[Verdict]int {
	out := map[Verdict]int{Safe: 0, Unsafe: 0, Unknown: 0}
	for _, r := range reports {
		out[r.Verdict]++
	}
	return out
}
