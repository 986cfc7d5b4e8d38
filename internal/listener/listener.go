// Package listener implements the UDP front door of the pipeline: it
// reads datagrams, copies each payload into an owned buffer, and enqueues
// it on a bounded channel for the parser stage. Structurally this follows
// udpListen from github.com/influxdata/telegraf's statsd input plugin,
// adapted so a full queue blocks the listener rather than dropping the
// datagram.
package listener

import (
	"net"

	"github.com/performancecopilot/pcp-statsd-agent/internal/agentlog"
)

// ExitSentinel is the special payload that triggers clean shutdown.
const ExitSentinel = "PMDASTATSD_EXIT"

// Listener reads UDP datagrams and forwards owned copies of their payloads.
type Listener struct {
	conn          *net.UDPConn
	maxPacketSize int
	out           chan<- []byte
	log           agentlog.Logger
}

// New wraps an already-bound UDP connection. maxPacketSize bounds how
// large a single datagram may be; out is the raw-payload channel to the
// parser, sized to the configured unprocessed-packet depth.
func New(conn *net.UDPConn, maxPacketSize int, out chan<- []byte, log agentlog.Logger) *Listener {
	return &Listener{conn: conn, maxPacketSize: maxPacketSize, out: out, log: log}
}

// Run reads datagrams until the connection is closed or a sentinel
// datagram arrives, at which point it forwards the sentinel once and
// returns.
func (l *Listener) Run() {
	buf := make([]byte, l.maxPacketSize)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			l.log.Infof("UDP listener stopping: %v", err)
			return
		}

		if n == l.maxPacketSize {
			// Possibly truncated; discard rather than risk aggregating a
			// partial line.
			l.log.Debugf("dropping possibly-truncated %d-byte datagram", n)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		if string(payload) == ExitSentinel {
			l.out <- payload
			return
		}

		l.out <- payload
	}
}
