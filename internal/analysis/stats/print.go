package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
)

var (
	headerStyle = color.New(color.FgCyan, color.Bold)
	keyStyle    = color.New(color.FgBlue)
	valueStyle  = color.New(color.FgWhite, color.Bold)
)

// Print writes a human readable report of snap to w.
func Print(w io.Writer, snap Snapshot) error {
	row := func(key string, value any) error {
		_, err := fmt.Fprintf(w, "  %s %s\n", keyStyle.Sprintf("%-22s", key), valueStyle.Sprint(value))
		return err
	}

	if _, err := fmt.Fprintln(w, headerStyle.Sprint("engine")); err != nil {
		return err
	}
	rows := []struct {
		key   string
		value int64
	}{
		{"transfers", snap.Transfers},
		{"infeasible edges", snap.Infeasible},
		{"abstractions", snap.Abstractions},
		{"assumptions", snap.Assumptions},
		{"pending high-water", snap.PendingMax},
		{"joins", snap.Joins},
		{"merges", snap.Merges},
		{"stop checks", snap.StopChecks},
	}
	for _, r := range rows {
		if err := row(r.key, r.value); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(snap.Gauges))
	for name := range snap.Gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := row(name, snap.Gauges[name]); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, headerStyle.Sprint("timers")); err != nil {
		return err
	}
	phases := make([]string, 0, len(snap.Timers))
	for name := range snap.Timers {
		phases = append(phases, name)
	}
	sort.Strings(phases)
	for _, name := range phases {
		p := snap.Timers[name]
		if err := row(name, fmt.Sprintf("%v (%d calls)", p.Elapsed, p.Count)); err != nil {
			return err
		}
	}
	return nil
}
