// Package config reads the agent's configuration from a TOML file with
// command-line overrides, mirroring config-reader.c's "read from file,
// then let the command line win" precedence and, mechanically,
// telegraf's own use of github.com/BurntSushi/toml for plugin config.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ParserType selects the line-protocol recognizer implementation.
type ParserType int

const (
	ParserStateMachine ParserType = 0
	ParserTable        ParserType = 1
)

// DurationAggregationType selects the Duration value representation.
type DurationAggregationType int

const (
	DurationExact DurationAggregationType = 0
	DurationHDR   DurationAggregationType = 1
)

// Config is the agent's full set of tunables. Field tags give the TOML
// file key; CLI flags of the same name override it.
type Config struct {
	MaxUDPPacketSize        int    `toml:"max_udp_packet_size"`
	MaxUnprocessedPackets   int    `toml:"max_unprocessed_packets"`
	Verbose                 int    `toml:"verbose"`
	DebugOutputFilename     string `toml:"debug_output_filename"`
	Port                    int    `toml:"port"`
	ParserType              int    `toml:"parser_type"`
	DurationAggregationType int    `toml:"duration_aggregation_type"`

	// PCPLogDir roots the debug-dump path ("$PCP_LOG_DIR/pmcd/..."); it
	// isn't part of the enumerated options because it comes from the PCP
	// environment, not the agent's own config surface.
	PCPLogDir string `toml:"-"`
}

// Default returns the agent's built-in configuration defaults.
func Default() Config {
	return Config{
		MaxUDPPacketSize:        1472,
		MaxUnprocessedPackets:   2048,
		Verbose:                 0,
		DebugOutputFilename:     "statsd",
		Port:                    8125,
		ParserType:              int(ParserStateMachine),
		DurationAggregationType: int(DurationExact),
		PCPLogDir:               envOr("PCP_LOG_DIR", "/var/log/pcp"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configPath (if non-empty) over the built-in defaults, then
// applies any flags explicitly set on fs/args on top, matching
// read_agent_config()'s file-then-cmdline precedence.
func Load(configPath string, args []string) (Config, error) {
	cfg := Default()

	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
			return Config{}, fmt.Errorf("statsd: reading config file %q: %w", configPath, err)
		}
	}

	fs := flag.NewFlagSet("pmdastatsd", flag.ContinueOnError)
	maxUDP := fs.Int("max_udp_packet_size", cfg.MaxUDPPacketSize, "maximum UDP datagram size in bytes")
	maxUnprocessed := fs.Int("max_unprocessed_packets", cfg.MaxUnprocessedPackets, "raw-payload channel depth")
	verbose := fs.Int("verbose", cfg.Verbose, "verbosity level 0-2")
	debugOut := fs.String("debug_output_filename", cfg.DebugOutputFilename, "debug dump filename component")
	port := fs.Int("port", cfg.Port, "UDP port to listen on")
	parserType := fs.Int("parser_type", cfg.ParserType, "0=state-machine, 1=table-driven")
	durationType := fs.Int("duration_aggregation_type", cfg.DurationAggregationType, "0=exact, 1=HDR")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.MaxUDPPacketSize = *maxUDP
	cfg.MaxUnprocessedPackets = *maxUnprocessed
	cfg.Verbose = *verbose
	cfg.DebugOutputFilename = *debugOut
	cfg.Port = *port
	cfg.ParserType = *parserType
	cfg.DurationAggregationType = *durationType

	return cfg, nil
}
