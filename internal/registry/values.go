package registry

import "github.com/performancecopilot/pcp-statsd-agent/internal/parser"

// Stat names one readable statistic of a value engine. Counters and
// gauges only ever answer StatValue; durations answer the rest.
type Stat int

const (
	StatValue Stat = iota
	StatMin
	StatMax
	StatMedian
	StatMean
	StatP90
	StatP95
	StatP99
	StatCount
	StatStddev
)

// DurationStats lists the nine statistic suffixes a Duration family
// exposes as instances, in display order.
var DurationStats = []Stat{StatMin, StatMax, StatMedian, StatMean, StatP90, StatP95, StatP99, StatCount, StatStddev}

func (s Stat) String() string {
	switch s {
	case StatValue:
		return "value"
	case StatMin:
		return "min"
	case StatMax:
		return "max"
	case StatMedian:
		return "median"
	case StatMean:
		return "mean"
	case StatP90:
		return "p90"
	case StatP95:
		return "p95"
	case StatP99:
		return "p99"
	case StatCount:
		return "count"
	case StatStddev:
		return "stddev"
	default:
		return "unknown"
	}
}

// ValueEngine implements the arithmetic for one kind. A Metric's root
// value and every Label's value are each backed by one ValueEngine
// instance; engines never share state.
type ValueEngine interface {
	// Create initializes the engine from the first admitted sample.
	// Returns false if the sample violates the kind's creation invariant
	// (the caller must not keep the engine in that case).
	Create(sample parser.Sample) bool
	// Update applies a subsequent sample. Returns false on a rejected
	// (but otherwise well-formed) value, leaving prior state untouched.
	Update(sample parser.Sample) bool
	// Read returns one statistic. Engines ignore stats they don't support.
	Read(stat Stat) float64
}

// NewValueEngine returns a fresh, uninitialized engine for kind, using
// durationType to pick the duration representation.
func NewValueEngine(kind parser.Kind, durationType DurationAggregationType) ValueEngine {
	switch kind {
	case parser.KindCounter:
		return &counterEngine{}
	case parser.KindGauge:
		return &gaugeEngine{}
	case parser.KindDuration:
		if durationType == DurationAggregationHDR {
			return newHDRDurationEngine()
		}
		return newExactDurationEngine()
	default:
		return nil
	}
}

// DurationAggregationType selects the Duration value representation.
type DurationAggregationType int

const (
	DurationAggregationExact DurationAggregationType = iota
	DurationAggregationHDR
)

type counterEngine struct {
	value float64
}

func signedValue(v float64, sign parser.Sign) float64 {
	if sign == parser.SignMinus {
		return -v
	}
	return v
}

// Create implements ValueEngine. Counters reject Minus at creation.
func (c *counterEngine) Create(sample parser.Sample) bool {
	if sample.Sign == parser.SignMinus {
		return false
	}
	c.value = sample.Value
	return true
}

// Update implements ValueEngine. None/Plus accumulate |v|; Minus rejects.
func (c *counterEngine) Update(sample parser.Sample) bool {
	if sample.Sign == parser.SignMinus {
		return false
	}
	c.value += sample.Value
	return true
}

func (c *counterEngine) Read(stat Stat) float64 {
	if stat != StatValue {
		return 0
	}
	return c.value
}

type gaugeEngine struct {
	value float64
}

// Create implements ValueEngine. Gauges accept any sign at creation: None
// sets the initial value, Plus/Minus seed it as a signed delta from zero.
func (g *gaugeEngine) Create(sample parser.Sample) bool {
	g.value = signedValue(sample.Value, sample.Sign)
	return true
}

// Update implements ValueEngine. None overwrites; Plus/Minus accumulate.
func (g *gaugeEngine) Update(sample parser.Sample) bool {
	if sample.Sign == parser.SignNone {
		g.value = sample.Value
	} else {
		g.value += signedValue(sample.Value, sample.Sign)
	}
	return true
}

func (g *gaugeEngine) Read(stat Stat) float64 {
	if stat != StatValue {
		return 0
	}
	return g.value
}

// durationMagnitude applies sign and rejects a negative result: the value
// must be >= 0 after applying sign, so Minus with a non-zero magnitude
// rejects.
func durationMagnitude(sample parser.Sample) (float64, bool) {
	v := signedValue(sample.Value, sample.Sign)
	if v < 0 {
		return 0, false
	}
	return v, true
}
