package registry

import (
	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/performancecopilot/pcp-statsd-agent/internal/parser"
)

// hdrDurationLowUS / hdrDurationHighUS / hdrDurationSigFigs configure a
// high-dynamic-range histogram covering 1 microsecond to 3600 seconds at
// 3 significant digits, expressed in the microsecond ticks the original
// aggregator-metric-duration-hdr.c records.
const (
	hdrDurationLowUS   int64 = 1
	hdrDurationHighUS  int64 = 3600 * 1000 * 1000
	hdrDurationSigFigs int   = 3
)

// hdrDurationEngine records durations into an HDR histogram instead of
// keeping every sample, trading exactness for O(1) memory and O(buckets)
// reads.
type hdrDurationEngine struct {
	hist  *hdrhistogram.Histogram
	count int64
}

func newHDRDurationEngine() *hdrDurationEngine {
	return &hdrDurationEngine{
		hist: hdrhistogram.New(hdrDurationLowUS, hdrDurationHighUS, hdrDurationSigFigs),
	}
}

// toTicks converts a duration value (a `ms` line's millisecond float)
// into the microsecond ticks the histogram is configured in, clamping
// into its configured range.
func (e *hdrDurationEngine) toTicks(v float64) int64 {
	ticks := int64(v * 1000) // ms -> us
	if ticks < hdrDurationLowUS {
		ticks = hdrDurationLowUS
	}
	if ticks > hdrDurationHighUS {
		ticks = hdrDurationHighUS
	}
	return ticks
}

func (e *hdrDurationEngine) Create(sample parser.Sample) bool {
	v, ok := durationMagnitude(sample)
	if !ok {
		return false
	}
	_ = e.hist.RecordValue(e.toTicks(v))
	e.count++
	return true
}

func (e *hdrDurationEngine) Update(sample parser.Sample) bool {
	v, ok := durationMagnitude(sample)
	if !ok {
		return false
	}
	_ = e.hist.RecordValue(e.toTicks(v))
	e.count++
	return true
}

func (e *hdrDurationEngine) Read(stat Stat) float64 {
	if stat == StatCount {
		return float64(e.count)
	}
	if e.count == 0 {
		return 0
	}

	toMS := func(us int64) float64 { return float64(us) / 1000 }

	switch stat {
	case StatMin:
		return toMS(e.hist.Min())
	case StatMax:
		return toMS(e.hist.Max())
	case StatMedian:
		return toMS(e.hist.ValueAtPercentile(50))
	case StatMean:
		return e.hist.Mean() / 1000
	case StatP90:
		return toMS(e.hist.ValueAtPercentile(90))
	case StatP95:
		return toMS(e.hist.ValueAtPercentile(95))
	case StatP99:
		return toMS(e.hist.ValueAtPercentile(99))
	case StatStddev:
		return e.hist.StdDev() / 1000
	default:
		return 0
	}
}
