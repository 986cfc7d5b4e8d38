// Package aggregator implements the parser and aggregator-loop stages:
// ParserStage turns raw datagram payloads into parsed samples, and Run
// drains those samples into the registry and stats.
package aggregator

import (
	"bytes"
	"time"

	"github.com/performancecopilot/pcp-statsd-agent/internal/agentlog"
	"github.com/performancecopilot/pcp-statsd-agent/internal/debugdump"
	"github.com/performancecopilot/pcp-statsd-agent/internal/listener"
	"github.com/performancecopilot/pcp-statsd-agent/internal/parser"
	"github.com/performancecopilot/pcp-statsd-agent/internal/registry"
	"github.com/performancecopilot/pcp-statsd-agent/internal/stats"
)

// Message is what ParserStage hands to Run for every line it attempted,
// or the shutdown sentinel.
type Message struct {
	Outcome   parser.Outcome
	ElapsedNS int64
	Sentinel  bool
}

// ParserStage reads raw payloads from in, splits each on '\n', parses
// every non-empty line with p, and sends one Message per line attempted to
// out. It forwards the shutdown sentinel once and returns. gate applies
// the quiet threshold to the lines it drops; a nil gate logs every drop
// unconditionally.
func ParserStage(in <-chan []byte, out chan<- Message, p parser.Parser, log agentlog.Logger, gate *DropLogGate) {
	defer close(out)
	for payload := range in {
		if string(payload) == listener.ExitSentinel {
			out <- Message{Sentinel: true}
			return
		}

		lines := bytes.Split(payload, []byte{'\n'})
		for _, line := range lines {
			if len(line) == 0 {
				// An empty trailing line (from a payload ending in '\n') is
				// tolerated silently.
				continue
			}
			start := time.Now()
			outcome := p.ParseLine(line)
			elapsed := time.Since(start)
			if !outcome.Parsed {
				gate.logDrop(log, "dropping line %q: %s", line, outcome.Reason)
			}
			out <- Message{Outcome: outcome, ElapsedNS: elapsed.Nanoseconds()}
		}
	}
}

// Aggregator is the single consumer that drains parsed messages into the
// Registry and Stats.
type Aggregator struct {
	Registry *registry.Registry
	Stats    *stats.Stats
	Log      agentlog.Logger

	// DumpRequests, when non-nil, is polled once per message; a send on it
	// triggers a debug dump written under the registry lock, typically
	// raised asynchronously by a signal handler.
	DumpRequests <-chan string

	// ErrGate applies the quiet threshold to rejected-sample logging; a
	// nil ErrGate logs every rejection unconditionally. Share
	// one gate with ParserStage so the count is process-wide, as
	// METRIC_PROCESSING_ERR_LOG's counter is in the original.
	ErrGate *DropLogGate
}

// Run drains in until the shutdown sentinel arrives, then returns. A
// per-line rejection never terminates it.
func (a *Aggregator) Run(in <-chan Message) {
	for {
		select {
		case path, ok := <-a.DumpRequests:
			if ok {
				a.dump(path)
			}
			continue
		case msg, ok := <-in:
			if !ok {
				return
			}
			if msg.Sentinel {
				return
			}
			a.handle(msg)
		}
	}
}

func (a *Aggregator) handle(msg Message) {
	a.Stats.IncReceived()

	if !msg.Outcome.Parsed {
		a.Stats.AddParseTimeNS(msg.ElapsedNS)
		a.Stats.IncDropped()
		return
	}

	a.Stats.AddParseTimeNS(msg.ElapsedNS)

	start := time.Now()
	result := a.Registry.Submit(msg.Outcome.Sample)
	a.Stats.AddAggregateTimeNS(time.Since(start).Nanoseconds())

	if result == registry.Ok {
		a.Stats.IncParsed()
		a.Stats.IncAggregated()
		return
	}

	a.ErrGate.logDrop(a.Log, "rejected sample for %q: %s", msg.Outcome.Sample.Name, result)
	a.Stats.IncDropped()
}

// dump writes a debug snapshot without mutating any state.
func (a *Aggregator) dump(path string) {
	if err := debugdump.Write(path, a.Registry, a.Stats); err != nil {
		a.Log.Errorf("debug dump to %q failed: %v", path, err)
	}
}
