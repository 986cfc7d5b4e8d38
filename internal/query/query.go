// Package query implements the read-only surface an external host
// process polls on demand: enumerate metrics, describe one by its opaque
// id, enumerate its instances, and fetch a value. It only reads the
// Registry and Stats; it never mutates either.
package query

import (
	"fmt"
	"sort"

	"github.com/performancecopilot/pcp-statsd-agent/internal/config"
	"github.com/performancecopilot/pcp-statsd-agent/internal/parser"
	"github.com/performancecopilot/pcp-statsd-agent/internal/registry"
	"github.com/performancecopilot/pcp-statsd-agent/internal/stats"
)

// selfMetricCount is the number of fixed self-metric ids (0..13).
const selfMetricCount = 14

// selfMetricIndex names the fourteen reserved self-metric ids.
const (
	selfReceived = iota
	selfParsed
	selfDropped
	selfAggregated
	selfMetricsTracked
	selfTimeSpentParsing
	selfTimeSpentAggregating
	selfCfgMaxUDPPacketSize
	selfCfgMaxUnprocessedPackets
	selfCfgVerbose
	selfCfgDebugOutputFilename
	selfCfgPort
	selfCfgParserType
	selfCfgDurationAggregationType
)

var selfMetricNames = [selfMetricCount]string{
	selfReceived:                   "pmda.received",
	selfParsed:                     "pmda.parsed",
	selfDropped:                    "pmda.dropped",
	selfAggregated:                 "pmda.aggregated",
	selfMetricsTracked:             "pmda.metrics_tracked",
	selfTimeSpentParsing:           "pmda.time_spent_parsing",
	selfTimeSpentAggregating:       "pmda.time_spent_aggregating",
	selfCfgMaxUDPPacketSize:        "pmda.settings.max_udp_packet_size",
	selfCfgMaxUnprocessedPackets:   "pmda.settings.max_unprocessed_packets",
	selfCfgVerbose:                 "pmda.settings.verbose",
	selfCfgDebugOutputFilename:     "pmda.settings.debug_output_filename",
	selfCfgPort:                    "pmda.settings.port",
	selfCfgParserType:              "pmda.settings.parser_type",
	selfCfgDurationAggregationType: "pmda.settings.duration_aggregation_type",
}

// metricsTrackedInstances names the metrics_tracked self-metric's four
// instances.
var metricsTrackedInstances = []string{"counter", "gauge", "duration", "total"}

// Kind mirrors parser.Kind for describe()'s response, plus a "string" kind
// for the one self-metric (debug_output_filename) that isn't numeric.
type Kind int

const (
	KindCounter Kind = iota
	KindGauge
	KindDuration
	KindString
)

// MetricInfo is one row of enumerate()'s result.
type MetricInfo struct {
	OpaqueID         uint64
	Name             string
	Kind             Kind
	InstanceFamilyID uint64
}

// Description is describe()'s result.
type Description struct {
	Kind             Kind
	InstanceFamilyID uint64
	Units            string
}

// Instance is one row of enumerate_instances()'s result.
type Instance struct {
	InstanceID uint64
	LabelName  string
}

// Value is fetch()'s result: exactly one of Number/Text is meaningful,
// selected by IsString.
type Value struct {
	IsString bool
	Number   float64
	Text     string
}

// Query is the read-only surface consumed by the host-integration layer.
type Query struct {
	registry *registry.Registry
	stats    *stats.Stats
	cfg      config.Config
}

// New builds a Query over the given registry, stats, and a fixed snapshot
// of the config the agent started with (config values are exposed as
// read-only self-metrics).
func New(reg *registry.Registry, st *stats.Stats, cfg config.Config) *Query {
	return &Query{registry: reg, stats: st, cfg: cfg}
}

// SnapshotGeneration implements the snapshot_generation query operation.
func (q *Query) SnapshotGeneration() uint64 {
	return q.registry.Generation()
}

func kindFromParser(k parser.Kind) Kind {
	switch k {
	case parser.KindCounter:
		return KindCounter
	case parser.KindGauge:
		return KindGauge
	case parser.KindDuration:
		return KindDuration
	default:
		return KindCounter
	}
}

// Enumerate implements the enumerate query operation: every committed
// user metric, plus the fourteen self-metrics, stable within one
// generation.
func (q *Query) Enumerate() []MetricInfo {
	var out []MetricInfo
	for id := 0; id < selfMetricCount; id++ {
		out = append(out, MetricInfo{
			OpaqueID:         uint64(id),
			Name:             selfMetricNames[id],
			Kind:             selfMetricKind(id),
			InstanceFamilyID: uint64(id),
		})
	}

	q.registry.VisitCommitted(func(m *registry.Metric) {
		out = append(out, MetricInfo{
			OpaqueID:         m.OpaqueID,
			Name:             m.Name,
			Kind:             kindFromParser(m.Kind),
			InstanceFamilyID: m.InstanceFamilyID,
		})
	})

	sort.Slice(out, func(i, j int) bool { return out[i].OpaqueID < out[j].OpaqueID })
	return out
}

func selfMetricKind(id int) Kind {
	if id == selfCfgDebugOutputFilename {
		return KindString
	}
	return KindCounter
}

// Describe implements the describe(opaque_id) query operation.
func (q *Query) Describe(opaqueID uint64) (Description, bool) {
	if opaqueID < selfMetricCount {
		return Description{
			Kind:             selfMetricKind(int(opaqueID)),
			InstanceFamilyID: opaqueID,
			Units:            selfMetricUnits(int(opaqueID)),
		}, true
	}

	var desc Description
	found := q.registry.LookupByOpaqueID(opaqueID, func(m *registry.Metric) {
		desc = Description{
			Kind:             kindFromParser(m.Kind),
			InstanceFamilyID: m.InstanceFamilyID,
			Units:            "none",
		}
	})
	return desc, found
}

func selfMetricUnits(id int) string {
	switch id {
	case selfTimeSpentParsing, selfTimeSpentAggregating:
		return "nanosecond"
	default:
		return "count"
	}
}

// EnumerateInstances implements the enumerate_instances(instance_family_id)
// query operation.
func (q *Query) EnumerateInstances(instanceFamilyID uint64) ([]Instance, bool) {
	if instanceFamilyID < selfMetricCount {
		return q.selfMetricInstances(int(instanceFamilyID)), true
	}

	var instances []Instance
	found := q.registry.LookupByFamilyID(instanceFamilyID, func(m *registry.Metric) {
		instances = metricInstances(m)
	})
	return instances, found
}

func (q *Query) selfMetricInstances(id int) []Instance {
	if id == selfMetricsTracked {
		out := make([]Instance, len(metricsTrackedInstances))
		for i, name := range metricsTrackedInstances {
			out[i] = Instance{InstanceID: uint64(i), LabelName: name}
		}
		return out
	}
	return []Instance{{InstanceID: 0, LabelName: "value"}}
}

// metricInstances lists the instances of a user metric's family: for
// Duration metrics the nine statistic suffixes, for Counter/Gauge one
// "default" instance when the metric has a root value, plus one per Label.
// A metric that has only labels has no "default" instance.
func metricInstances(m *registry.Metric) []Instance {
	if m.Kind == parser.KindDuration {
		out := make([]Instance, len(registry.DurationStats))
		for i, stat := range registry.DurationStats {
			out[i] = Instance{InstanceID: uint64(i), LabelName: stat.String()}
		}
		return out
	}

	var out []Instance
	nextID := uint64(0)
	if m.RootValue != nil {
		out = append(out, Instance{InstanceID: nextID, LabelName: "default"})
		nextID++
	}
	tags := make([]string, 0, len(m.Children))
	for t := range m.Children {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	for _, t := range tags {
		out = append(out, Instance{InstanceID: nextID, LabelName: t})
		nextID++
	}
	return out
}

// Fetch implements the fetch(opaque_id, instance_id) query operation.
func (q *Query) Fetch(opaqueID, instanceID uint64) (Value, bool) {
	if opaqueID < selfMetricCount {
		return q.fetchSelfMetric(int(opaqueID), instanceID)
	}

	var (
		value Value
		found bool
	)
	q.registry.LookupByOpaqueID(opaqueID, func(m *registry.Metric) {
		value, found = fetchMetricInstance(m, instanceID)
	})
	return value, found
}

func fetchMetricInstance(m *registry.Metric, instanceID uint64) (Value, bool) {
	if m.Kind == parser.KindDuration {
		if int(instanceID) >= len(registry.DurationStats) || m.RootValue == nil {
			return Value{}, false
		}
		return Value{Number: m.RootValue.Read(registry.DurationStats[instanceID])}, true
	}

	instances := metricInstances(m)
	if int(instanceID) >= len(instances) {
		return Value{}, false
	}
	label := instances[instanceID].LabelName
	if label == "default" {
		return Value{Number: m.RootValue.Read(registry.StatValue)}, true
	}
	child, ok := m.Children[label]
	if !ok {
		return Value{}, false
	}
	return Value{Number: child.Value.Read(registry.StatValue)}, true
}

func (q *Query) fetchSelfMetric(id int, instanceID uint64) (Value, bool) {
	snap := q.stats.Get()
	switch id {
	case selfReceived:
		return Value{Number: float64(snap.Received)}, true
	case selfParsed:
		return Value{Number: float64(snap.Parsed)}, true
	case selfDropped:
		return Value{Number: float64(snap.Dropped)}, true
	case selfAggregated:
		return Value{Number: float64(snap.Aggregated)}, true
	case selfTimeSpentParsing:
		return Value{Number: float64(snap.TimeSpentParsingNS)}, true
	case selfTimeSpentAggregating:
		return Value{Number: float64(snap.TimeSpentAggregatingNS)}, true
	case selfMetricsTracked:
		switch instanceID {
		case 0:
			return Value{Number: float64(snap.TrackedCounters)}, true
		case 1:
			return Value{Number: float64(snap.TrackedGauges)}, true
		case 2:
			return Value{Number: float64(snap.TrackedDurations)}, true
		case 3:
			return Value{Number: float64(snap.Total())}, true
		default:
			return Value{}, false
		}
	case selfCfgMaxUDPPacketSize:
		return Value{Number: float64(q.cfg.MaxUDPPacketSize)}, true
	case selfCfgMaxUnprocessedPackets:
		return Value{Number: float64(q.cfg.MaxUnprocessedPackets)}, true
	case selfCfgVerbose:
		return Value{Number: float64(q.cfg.Verbose)}, true
	case selfCfgDebugOutputFilename:
		return Value{IsString: true, Text: q.cfg.DebugOutputFilename}, true
	case selfCfgPort:
		return Value{Number: float64(q.cfg.Port)}, true
	case selfCfgParserType:
		return Value{Number: float64(q.cfg.ParserType)}, true
	case selfCfgDurationAggregationType:
		return Value{Number: float64(q.cfg.DurationAggregationType)}, true
	default:
		return Value{}, false
	}
}

// String renders a Value for debugging/logging.
func (v Value) String() string {
	if v.IsString {
		return v.Text
	}
	return fmt.Sprintf("%g", v.Number)
}
