package listener

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/performancecopilot/pcp-statsd-agent/internal/agentlog"
)

func bindLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	return conn
}

func TestRun_ForwardsDatagrams(t *testing.T) {
	conn := bindLoopback(t)
	defer conn.Close()

	out := make(chan []byte, 4)
	log := agentlog.New(io.Discard, 0)
	l := New(conn, 1472, out, log)

	go l.Run()

	sender, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer sender.Close()

	_, err = sender.Write([]byte("a:1|c"))
	require.NoError(t, err)

	select {
	case payload := <-out:
		assert.Equal(t, "a:1|c", string(payload))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestRun_ForwardsSentinelAndReturns(t *testing.T) {
	conn := bindLoopback(t)
	defer conn.Close()

	out := make(chan []byte, 4)
	log := agentlog.New(io.Discard, 0)
	l := New(conn, 1472, out, log)

	done := make(chan struct{})
	go func() {
		l.Run()
		close(done)
	}()

	sender, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer sender.Close()

	_, err = sender.Write([]byte(ExitSentinel))
	require.NoError(t, err)

	select {
	case payload := <-out:
		assert.Equal(t, ExitSentinel, string(payload))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sentinel")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after sentinel")
	}
}

func TestRun_DropsTruncatedDatagram(t *testing.T) {
	conn := bindLoopback(t)
	defer conn.Close()

	out := make(chan []byte, 4)
	log := agentlog.New(io.Discard, 0)
	// The sentinel (15 bytes) fits below the 32-byte limit; the first
	// datagram fills the whole buffer and so reads as possibly truncated.
	l := New(conn, 32, out, log)

	go l.Run()

	sender, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer sender.Close()

	_, err = sender.Write([]byte("this-datagram-is-far-too-long:1|c"))
	require.NoError(t, err)
	_, err = sender.Write([]byte(ExitSentinel))
	require.NoError(t, err)

	select {
	case payload := <-out:
		assert.Equal(t, ExitSentinel, string(payload))
	case <-time.After(time.Second):
		t.Fatal("truncated datagram was not dropped before the sentinel arrived")
	}
}

func TestRun_StopsWhenConnectionCloses(t *testing.T) {
	conn := bindLoopback(t)

	out := make(chan []byte, 1)
	log := agentlog.New(io.Discard, 0)
	l := New(conn, 1472, out, log)

	done := make(chan struct{})
	go func() {
		l.Run()
		close(done)
	}()

	conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after connection close")
	}
}
