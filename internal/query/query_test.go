package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/performancecopilot/pcp-statsd-agent/internal/config"
	"github.com/performancecopilot/pcp-statsd-agent/internal/parser"
	"github.com/performancecopilot/pcp-statsd-agent/internal/registry"
	"github.com/performancecopilot/pcp-statsd-agent/internal/stats"
)

func newQuery(t *testing.T) (*Query, *registry.Registry, *stats.Stats) {
	t.Helper()
	reg := registry.New(registry.DurationAggregationExact)
	st := stats.New()
	cfg := config.Default()
	return New(reg, st, cfg), reg, st
}

func TestEnumerate_IncludesAllSelfMetricsWhenRegistryEmpty(t *testing.T) {
	q, _, _ := newQuery(t)
	infos := q.Enumerate()
	require.Len(t, infos, selfMetricCount)
	for i, info := range infos {
		assert.Equal(t, uint64(i), info.OpaqueID)
		assert.Equal(t, selfMetricNames[i], info.Name)
	}
}

func TestEnumerate_IncludesCommittedUserMetrics(t *testing.T) {
	q, reg, _ := newQuery(t)
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{Name: "requests", Kind: parser.KindCounter, Value: 1}))

	infos := q.Enumerate()
	require.Len(t, infos, selfMetricCount+1)
	last := infos[len(infos)-1]
	assert.Equal(t, "requests", last.Name)
	assert.Equal(t, KindCounter, last.Kind)
}

func TestDescribe_SelfMetric(t *testing.T) {
	q, _, _ := newQuery(t)
	desc, ok := q.Describe(selfTimeSpentParsing)
	require.True(t, ok)
	assert.Equal(t, "nanosecond", desc.Units)
	assert.Equal(t, KindCounter, desc.Kind)
}

func TestDescribe_StringSelfMetric(t *testing.T) {
	q, _, _ := newQuery(t)
	desc, ok := q.Describe(selfCfgDebugOutputFilename)
	require.True(t, ok)
	assert.Equal(t, KindString, desc.Kind)
}

func TestDescribe_UserMetric(t *testing.T) {
	q, reg, _ := newQuery(t)
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{Name: "dur", Kind: parser.KindDuration, Value: 5}))

	var opaqueID uint64
	q.registry.VisitCommitted(func(m *registry.Metric) { opaqueID = m.OpaqueID })

	desc, ok := q.Describe(opaqueID)
	require.True(t, ok)
	assert.Equal(t, KindDuration, desc.Kind)
}

func TestDescribe_UnknownOpaqueIDNotFound(t *testing.T) {
	q, _, _ := newQuery(t)
	_, ok := q.Describe(9999)
	assert.False(t, ok)
}

func TestEnumerateInstances_MetricsTrackedSelfMetric(t *testing.T) {
	q, _, _ := newQuery(t)
	instances, ok := q.EnumerateInstances(selfMetricsTracked)
	require.True(t, ok)
	require.Len(t, instances, 4)
	assert.Equal(t, "counter", instances[0].LabelName)
	assert.Equal(t, "total", instances[3].LabelName)
}

func TestEnumerateInstances_SingleValueSelfMetric(t *testing.T) {
	q, _, _ := newQuery(t)
	instances, ok := q.EnumerateInstances(selfReceived)
	require.True(t, ok)
	require.Len(t, instances, 1)
	assert.Equal(t, "value", instances[0].LabelName)
}

func TestEnumerateInstances_DurationMetricListsNineStats(t *testing.T) {
	q, reg, _ := newQuery(t)
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{Name: "dur", Kind: parser.KindDuration, Value: 5}))

	var familyID uint64
	q.registry.VisitCommitted(func(m *registry.Metric) { familyID = m.InstanceFamilyID })

	instances, ok := q.EnumerateInstances(familyID)
	require.True(t, ok)
	assert.Len(t, instances, len(registry.DurationStats))
}

func TestEnumerateInstances_TaggedCounterListsDefaultAndLabels(t *testing.T) {
	q, reg, _ := newQuery(t)
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{Name: "c", Kind: parser.KindCounter, Value: 1}))
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{
		Name: "c", Kind: parser.KindCounter, Value: 1,
		Tags: `{"env":"prod"}`, TagPairCount: 1,
	}))

	var familyID uint64
	q.registry.VisitCommitted(func(m *registry.Metric) { familyID = m.InstanceFamilyID })

	instances, ok := q.EnumerateInstances(familyID)
	require.True(t, ok)
	require.Len(t, instances, 2)
	assert.Equal(t, "default", instances[0].LabelName)
	assert.Equal(t, `{"env":"prod"}`, instances[1].LabelName)
}

func TestFetch_SelfMetricCounters(t *testing.T) {
	q, _, st := newQuery(t)
	st.IncReceived()
	st.IncReceived()

	v, ok := q.Fetch(selfReceived, 0)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Number)
}

func TestFetch_SelfMetricString(t *testing.T) {
	q, _, _ := newQuery(t)
	v, ok := q.Fetch(selfCfgDebugOutputFilename, 0)
	require.True(t, ok)
	assert.True(t, v.IsString)
	assert.Equal(t, "statsd", v.Text)
}

func TestFetch_MetricsTrackedInstances(t *testing.T) {
	q, _, st := newQuery(t)
	st.SetTracked(1, 2, 3)

	v, ok := q.Fetch(selfMetricsTracked, 3)
	require.True(t, ok)
	assert.Equal(t, 6.0, v.Number)
}

func TestFetch_UserMetricDefaultInstance(t *testing.T) {
	q, reg, _ := newQuery(t)
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{Name: "g", Kind: parser.KindGauge, Value: 42}))

	var opaqueID uint64
	q.registry.VisitCommitted(func(m *registry.Metric) { opaqueID = m.OpaqueID })

	v, ok := q.Fetch(opaqueID, 0)
	require.True(t, ok)
	assert.Equal(t, 42.0, v.Number)
}

func TestFetch_UnknownInstanceNotFound(t *testing.T) {
	q, reg, _ := newQuery(t)
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{Name: "g", Kind: parser.KindGauge, Value: 42}))

	var opaqueID uint64
	q.registry.VisitCommitted(func(m *registry.Metric) { opaqueID = m.OpaqueID })

	_, ok := q.Fetch(opaqueID, 99)
	assert.False(t, ok)
}

func TestSnapshotGeneration_TracksRegistry(t *testing.T) {
	q, reg, _ := newQuery(t)
	assert.Equal(t, uint64(0), q.SnapshotGeneration())
	require.Equal(t, registry.Ok, reg.Submit(parser.Sample{Name: "c", Kind: parser.KindCounter, Value: 1}))
	assert.Equal(t, uint64(1), q.SnapshotGeneration())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "3", Value{Number: 3}.String())
	assert.Equal(t, "hello", Value{IsString: true, Text: "hello"}.String())
}
