// Package registry implements the concurrent metric registry: the single
// source of truth the aggregator writes into and the query surface reads
// from. One mutex protects the whole structure, matching the original
// PMDA's pmda_metrics_container and its single pthread_mutex_t.
package registry

import (
	"strings"
	"sync"

	"github.com/performancecopilot/pcp-statsd-agent/internal/parser"
)

// Reject identifies why Submit refused a sample. The zero value is never
// returned for a rejected sample; Ok is returned on success.
type Reject int

const (
	Ok Reject = iota
	RejectBlocked
	RejectBadValue
	RejectKindMismatch
	RejectUnparseable
)

func (r Reject) String() string {
	switch r {
	case Ok:
		return "ok"
	case RejectBlocked:
		return "blocked"
	case RejectBadValue:
		return "bad_value"
	case RejectKindMismatch:
		return "kind_mismatch"
	case RejectUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// reservedNames and reservedSettingsPrefix implement the self-metric
// block-list. Names are matched case-sensitively, as the rest of the
// grammar is.
var reservedNames = map[string]struct{}{
	"pmda.received":               {},
	"pmda.parsed":                 {},
	"pmda.aggregated":             {},
	"pmda.dropped":                {},
	"pmda.metrics_tracked":        {},
	"pmda.time_spent_aggregating": {},
	"pmda.time_spent_parsing":     {},
}

const reservedSettingsPrefix = "pmda.settings."

// IsBlocked reports whether name is reserved for agent self-metrics.
func IsBlocked(name string) bool {
	if _, ok := reservedNames[name]; ok {
		return true
	}
	return strings.HasPrefix(name, reservedSettingsPrefix)
}

// Label is a tag-specialised sibling of a Metric's root value.
type Label struct {
	TagsCanonical string
	PairCount     int
	Value         ValueEngine
}

// Metric is the long-lived, registry-owned aggregate for one metric name.
type Metric struct {
	Name             string
	Kind             parser.Kind
	OpaqueID         uint64
	InstanceFamilyID uint64

	// RootValue is non-nil iff at least one tag-less sample has been
	// admitted.
	RootValue ValueEngine

	// Children maps a canonical tags string to its Label. The map key is
	// the owning allocation; Label.TagsCanonical is a copy kept for
	// iteration convenience.
	Children map[string]*Label

	// Committed is false until the metric's first successful value write;
	// such metrics are invisible to the query surface.
	Committed bool

	GenerationAtLastMutation uint64
}

// HasLabels reports whether the metric currently has any label children.
func (m *Metric) HasLabels() bool {
	return len(m.Children) > 0
}

// Registry is the concurrent map of metric name -> Metric plus the
// monotonic generation counter queries observe.
type Registry struct {
	mu sync.Mutex

	metrics map[string]*Metric
	// generation strictly increases on every successful create /
	// add-label / value-write.
	generation uint64

	nextOpaqueID         uint64
	nextInstanceFamilyID uint64

	// byOpaqueID and byFamilyID let the query surface resolve an id back
	// to its metric without scanning.
	byOpaqueID map[uint64]*Metric
	byFamilyID map[uint64]*Metric

	durationType DurationAggregationType

	// onTracked, if set, is called under the registry lock exactly once
	// per metric, at the moment submitNew commits it for the first time.
	// This is how the tracked-metric gauges in package stats are kept
	// current without a caller having to rescan the registry on every
	// ingested sample, mirroring aggregator-stats.c's
	// process_stat(STAT_TRACKED_METRIC, ...) being invoked from the
	// metric-creation path itself rather than recomputed externally.
	onTracked func(kind parser.Kind)
}

// New creates an empty Registry. durationType selects which Duration
// value representation new Duration metrics use; it does not change
// existing metrics, since a metric's kind and representation are
// immutable once created.
func New(durationType DurationAggregationType) *Registry {
	return &Registry{
		metrics:      make(map[string]*Metric),
		durationType: durationType,
		// opaque ids and instance-family ids 0..13 are reserved for
		// self-metrics (cluster 0, see query.selfMetricNames); user metrics
		// allocate densely starting above that range in both spaces so the
		// two never collide.
		nextOpaqueID:         14,
		nextInstanceFamilyID: 14,
		byOpaqueID:           make(map[uint64]*Metric),
		byFamilyID:           make(map[uint64]*Metric),
	}
}

// SetTrackedHook registers fn to be called, under the registry lock,
// exactly when a new metric is committed for the first time. fn must not
// call back into the Registry.
func (r *Registry) SetTrackedHook(fn func(kind parser.Kind)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTracked = fn
}

// Generation implements the snapshot_generation query operation.
func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Submit processes one parsed sample against the registry. It returns Ok
// or the specific rejection reason; it never panics on bad input and
// never blocks on anything but its own mutex.
func (r *Registry) Submit(sample parser.Sample) Reject {
	r.mu.Lock()
	defer r.mu.Unlock()

	if IsBlocked(sample.Name) {
		return RejectBlocked
	}

	metric, exists := r.metrics[sample.Name]

	if !exists {
		return r.submitNew(sample)
	}

	if metric.Kind != sample.Kind {
		return RejectKindMismatch
	}

	if !sample.HasTags() {
		return r.submitRoot(metric, sample)
	}
	return r.submitLabel(metric, sample)
}

// submitNew handles the case where no existing metric has this name,
// whether the sample is tag-less or tagged.
func (r *Registry) submitNew(sample parser.Sample) Reject {
	metric := &Metric{
		Name:     sample.Name,
		Kind:     sample.Kind,
		OpaqueID: r.allocOpaqueID(),
		Children: make(map[string]*Label),
	}

	if !sample.HasTags() {
		engine := NewValueEngine(sample.Kind, r.durationType)
		if !engine.Create(sample) {
			return RejectBadValue
		}
		metric.RootValue = engine
		metric.Committed = true
		metric.InstanceFamilyID = r.allocInstanceFamilyID()
		r.metrics[sample.Name] = metric
		r.byOpaqueID[metric.OpaqueID] = metric
		r.byFamilyID[metric.InstanceFamilyID] = metric
		r.bumpGeneration(metric)
		r.notifyTracked(metric.Kind)
		return Ok
	}

	engine := NewValueEngine(sample.Kind, r.durationType)
	if !engine.Create(sample) {
		// Metric never becomes visible; nothing to remove since it was
		// never added to r.metrics.
		return RejectBadValue
	}
	label := &Label{TagsCanonical: sample.Tags, PairCount: sample.TagPairCount, Value: engine}
	metric.Children[sample.Tags] = label
	metric.Committed = true
	metric.InstanceFamilyID = r.allocInstanceFamilyID()
	r.metrics[sample.Name] = metric
	r.byOpaqueID[metric.OpaqueID] = metric
	r.byFamilyID[metric.InstanceFamilyID] = metric
	r.bumpGeneration(metric)
	r.notifyTracked(metric.Kind)
	return Ok
}

// notifyTracked invokes the tracked-metric hook, if one is registered, for
// a metric that was just committed for the first time.
func (r *Registry) notifyTracked(kind parser.Kind) {
	if r.onTracked != nil {
		r.onTracked(kind)
	}
}

// submitRoot handles an existing metric receiving a tag-less sample.
func (r *Registry) submitRoot(metric *Metric, sample parser.Sample) Reject {
	if metric.RootValue == nil {
		engine := NewValueEngine(sample.Kind, r.durationType)
		if !engine.Create(sample) {
			return RejectBadValue
		}
		metric.RootValue = engine
		metric.Committed = true
		r.bumpGeneration(metric)
		return Ok
	}

	if !metric.RootValue.Update(sample) {
		return RejectBadValue
	}
	r.bumpGeneration(metric)
	return Ok
}

// submitLabel handles an existing metric receiving a tagged sample,
// updating an existing label or inserting a new one.
func (r *Registry) submitLabel(metric *Metric, sample parser.Sample) Reject {
	hadLabels := metric.HasLabels()

	label, ok := metric.Children[sample.Tags]
	if ok {
		if !label.Value.Update(sample) {
			return RejectBadValue
		}
		r.bumpGeneration(metric)
		return Ok
	}

	engine := NewValueEngine(sample.Kind, r.durationType)
	if !engine.Create(sample) {
		return RejectBadValue
	}
	metric.Children[sample.Tags] = &Label{
		TagsCanonical: sample.Tags,
		PairCount:     sample.TagPairCount,
		Value:         engine,
	}
	// metric is already committed here: every path that inserts it into
	// r.metrics (both branches of submitNew) sets Committed true first,
	// and submitLabel is only reached for a metric already in the map.
	if !hadLabels {
		// instance_family_ids may be reissued when the set of labels
		// grows from empty.
		delete(r.byFamilyID, metric.InstanceFamilyID)
		metric.InstanceFamilyID = r.allocInstanceFamilyID()
		r.byFamilyID[metric.InstanceFamilyID] = metric
	}
	r.bumpGeneration(metric)
	return Ok
}

func (r *Registry) bumpGeneration(metric *Metric) {
	r.generation++
	metric.GenerationAtLastMutation = r.generation
}

func (r *Registry) allocOpaqueID() uint64 {
	id := r.nextOpaqueID
	r.nextOpaqueID++
	return id
}

func (r *Registry) allocInstanceFamilyID() uint64 {
	id := r.nextInstanceFamilyID
	r.nextInstanceFamilyID++
	return id
}

// VisitCommitted calls fn once per committed metric, under the registry
// lock, in an unspecified order. fn must not call back into the Registry.
func (r *Registry) VisitCommitted(fn func(*Metric)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.metrics {
		if m.Committed {
			fn(m)
		}
	}
}

// Lookup returns the committed metric named name, if any, calling fn with
// it under the registry lock.
func (r *Registry) Lookup(name string, fn func(*Metric)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.metrics[name]
	if !ok || !m.Committed {
		return false
	}
	fn(m)
	return true
}

// WithLock runs fn under the registry mutex; used by the debug dump
// writer to take one consistent snapshot across metrics.
func (r *Registry) WithLock(fn func(metrics map[string]*Metric)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.metrics)
}

// CountByKind returns the number of committed metrics of each kind by
// scanning every metric currently held. Nothing on the ingest path calls
// this; the metrics_tracked self-metric is kept current incrementally via
// SetTrackedHook instead. CountByKind remains for tests and other callers
// that want an authoritative recount rather than the running totals.
func (r *Registry) CountByKind() (counters, gauges, durations int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.metrics {
		if !m.Committed {
			continue
		}
		switch m.Kind {
		case parser.KindCounter:
			counters++
		case parser.KindGauge:
			gauges++
		case parser.KindDuration:
			durations++
		}
	}
	return
}

// LookupByOpaqueID resolves opaqueID to its committed metric, calling fn
// with it under the registry lock. Used by the describe and fetch query
// operations.
func (r *Registry) LookupByOpaqueID(opaqueID uint64, fn func(*Metric)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byOpaqueID[opaqueID]
	if !ok || !m.Committed {
		return false
	}
	fn(m)
	return true
}

// LookupByFamilyID resolves instanceFamilyID to its committed metric,
// calling fn with it under the registry lock. Used by the
// enumerate_instances query operation.
func (r *Registry) LookupByFamilyID(instanceFamilyID uint64, fn func(*Metric)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byFamilyID[instanceFamilyID]
	if !ok || !m.Committed {
		return false
	}
	fn(m)
	return true
}
