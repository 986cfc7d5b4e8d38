// Package debugdump writes the textual snapshot of the registry and stats
// requested by a debug-dump signal. It never mutates state; the write
// happens under the registry lock so it observes one consistent snapshot,
// the same guarantee aggregator-metrics.c:write_metrics_to_file gives the
// original PMDA.
package debugdump

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/performancecopilot/pcp-statsd-agent/internal/parser"
	"github.com/performancecopilot/pcp-statsd-agent/internal/registry"
	"github.com/performancecopilot/pcp-statsd-agent/internal/stats"
)

const separator = "----------------"

// Write renders a snapshot of reg and st to path, overwriting it.
func Write(path string, reg *registry.Registry, st *stats.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("statsd: opening debug dump file %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	reg.WithLock(func(metrics map[string]*registry.Metric) {
		names := make([]string, 0, len(metrics))
		for name, m := range metrics {
			if m.Committed {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			writeMetric(w, metrics[name])
		}
	})
	writeStats(w, st.Get())

	return w.Flush()
}

func writeMetric(w *bufio.Writer, m *registry.Metric) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "name = %s\n", m.Name)
	fmt.Fprintf(w, "type = %s\n", m.Kind)
	if m.RootValue != nil {
		writeValue(w, m.Kind, m.RootValue)
	}
	if len(m.Children) > 0 {
		fmt.Fprintln(w, "labels:")
		tags := make([]string, 0, len(m.Children))
		for t := range m.Children {
			tags = append(tags, t)
		}
		sort.Strings(tags)
		for _, t := range tags {
			label := m.Children[t]
			fmt.Fprintf(w, "  %s\n", t)
			writeValue(w, m.Kind, label.Value)
		}
	}
	fmt.Fprintln(w)
}

func writeValue(w *bufio.Writer, kind parser.Kind, v registry.ValueEngine) {
	if kind == parser.KindDuration {
		fmt.Fprintln(w, "  stat       value")
		for _, stat := range registry.DurationStats {
			fmt.Fprintf(w, "  %-10s %f\n", stat, v.Read(stat))
		}
		return
	}
	fmt.Fprintf(w, "value = %f\n", v.Read(registry.StatValue))
}

func writeStats(w *bufio.Writer, snap stats.Snapshot) {
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "agent stats")
	fmt.Fprintf(w, "received = %d\n", snap.Received)
	fmt.Fprintf(w, "parsed = %d\n", snap.Parsed)
	fmt.Fprintf(w, "dropped = %d\n", snap.Dropped)
	fmt.Fprintf(w, "aggregated = %d\n", snap.Aggregated)
	fmt.Fprintf(w, "time_spent_parsing_ns = %d\n", snap.TimeSpentParsingNS)
	fmt.Fprintf(w, "time_spent_aggregating_ns = %d\n", snap.TimeSpentAggregatingNS)
	fmt.Fprintf(w, "metrics_tracked.counter = %d\n", snap.TrackedCounters)
	fmt.Fprintf(w, "metrics_tracked.gauge = %d\n", snap.TrackedGauges)
	fmt.Fprintf(w, "metrics_tracked.duration = %d\n", snap.TrackedDurations)
	fmt.Fprintf(w, "metrics_tracked.total = %d\n", snap.Total())
}
