package aggregator

import (
	"sync"

	"github.com/performancecopilot/pcp-statsd-agent/internal/agentlog"
)

// dropLogThreshold mirrors g_metric_error_threshold's default of 1000 in
// utils.c: below this many logged drops, every one is printed; at or above
// it, logging stops except for a single suppression notice.
const dropLogThreshold = 1000

// DropLogGate is the per-line error quiet threshold: log every drop while
// the running count is below dropLogThreshold, always log (and never
// advance the count) when verbose is 2, and emit a one-time "too many
// dropped messages" notice the moment the threshold is first crossed. It
// is the Go counterpart of utils.c's
// is_metric_err_below_threshold / increment_metric_err_count /
// maybe_print_metric_err_msg trio behind the METRIC_PROCESSING_ERR_LOG
// macro, and is shared across every drop site (parser and aggregator
// alike) the way that macro's counter is process-wide in the original.
type DropLogGate struct {
	mu      sync.Mutex
	count   int
	verbose int
	noticed bool
}

// NewDropLogGate returns a gate at the given verbosity level (0..2).
func NewDropLogGate(verbose int) *DropLogGate {
	return &DropLogGate{verbose: verbose}
}

// logDrop logs one dropped line or rejected sample via log.Warnf unless the
// quiet threshold has already been crossed, in which case it logs nothing
// beyond the one-time suppression notice. A nil gate always logs, so
// callers that don't care about the threshold (most tests) can omit one.
func (g *DropLogGate) logDrop(log agentlog.Logger, format string, args ...interface{}) {
	if g == nil {
		log.Warnf(format, args...)
		return
	}

	g.mu.Lock()
	belowThreshold := g.count < dropLogThreshold
	if belowThreshold && g.verbose < 2 {
		g.count++
	}
	noticeNow := !belowThreshold && !g.noticed
	if noticeNow {
		g.noticed = true
	}
	g.mu.Unlock()

	if belowThreshold {
		log.Warnf(format, args...)
		return
	}
	if noticeNow {
		log.Errorf("too many dropped messages, ignoring until next restart")
	}
}
