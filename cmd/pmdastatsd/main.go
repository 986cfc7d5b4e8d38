// Command pmdastatsd runs the metrics-ingest agent described by this
// repository: a UDP line-protocol listener, a parser, an aggregator, and
// the query surface a host process would poll. Socket setup, signal
// wiring, and process lifecycle here mirror the original PMDA's
// pmdastatsd.c main() and signal_handler (SIGUSR1 triggers a debug
// dump), adapted to Go's goroutines-and-channels idiom the way
// github.com/influxdata/telegraf's statsd input starts its own
// listener/parser goroutines from Start().
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/performancecopilot/pcp-statsd-agent/internal/agentlog"
	"github.com/performancecopilot/pcp-statsd-agent/internal/aggregator"
	"github.com/performancecopilot/pcp-statsd-agent/internal/config"
	"github.com/performancecopilot/pcp-statsd-agent/internal/listener"
	"github.com/performancecopilot/pcp-statsd-agent/internal/parser"
	"github.com/performancecopilot/pcp-statsd-agent/internal/query"
	"github.com/performancecopilot/pcp-statsd-agent/internal/registry"
	"github.com/performancecopilot/pcp-statsd-agent/internal/stats"
)

func main() {
	// -config is taken out here; every other argument goes to config.Load,
	// which applies the option flags over the file's values.
	var configPath string
	var loadArgs []string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case (a == "-config" || a == "--config") && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config="):
			configPath = a[strings.IndexByte(a, '=')+1:]
		default:
			loadArgs = append(loadArgs, a)
		}
	}

	cfg, err := config.Load(configPath, loadArgs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pmdastatsd:", err)
		os.Exit(1)
	}

	log := agentlog.New(os.Stderr, cfg.Verbose)

	if err := run(cfg, log); err != nil {
		log.Errorf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log agentlog.Logger) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("resolving UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("binding UDP socket: %w", err)
	}
	defer conn.Close()
	log.Infof("listening on %s", conn.LocalAddr())

	var p parser.Parser
	if cfg.ParserType == int(config.ParserTable) {
		p = parser.NewTableParser()
	} else {
		p = parser.NewStateMachineParser()
	}

	var durationType registry.DurationAggregationType
	if cfg.DurationAggregationType == int(config.DurationHDR) {
		durationType = registry.DurationAggregationHDR
	} else {
		durationType = registry.DurationAggregationExact
	}

	reg := registry.New(durationType)
	st := stats.New()
	reg.SetTrackedHook(func(kind parser.Kind) {
		switch kind {
		case parser.KindCounter:
			st.IncTrackedCounter()
		case parser.KindGauge:
			st.IncTrackedGauge()
		case parser.KindDuration:
			st.IncTrackedDuration()
		}
	})
	// q is the surface a host-integration layer would poll; wiring that
	// layer is out of scope for this repo beyond the query API itself.
	q := query.New(reg, st, cfg)
	log.Debugf("query surface ready at generation %d", q.SnapshotGeneration())

	rawChan := make(chan []byte, cfg.MaxUnprocessedPackets)
	parsedChan := make(chan aggregator.Message, cfg.MaxUnprocessedPackets)
	dumpRequests := make(chan string, 1)

	errGate := aggregator.NewDropLogGate(cfg.Verbose)
	l := listener.New(conn, cfg.MaxUDPPacketSize, rawChan, log)
	agg := &aggregator.Aggregator{Registry: reg, Stats: st, Log: log, DumpRequests: dumpRequests, ErrGate: errGate}

	go l.Run()
	go aggregator.ParserStage(rawChan, parsedChan, p, log, errGate)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGUSR1:
				dumpRequests <- debugDumpPath(cfg)
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("received %s, shutting down", sig)
				rawChan <- []byte(listener.ExitSentinel)
				conn.Close()
			}
		}
	}()

	agg.Run(parsedChan)
	log.Infof("aggregator stopped, exiting")
	return nil
}

// debugDumpPath builds $PCP_LOG_DIR/pmcd/statsd_<name>.
func debugDumpPath(cfg config.Config) string {
	return filepath.Join(cfg.PCPLogDir, "pmcd", "statsd_"+cfg.DebugOutputFilename)
}
