package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_ZeroValue(t *testing.T) {
	s := New()
	snap := s.Get()
	assert.Equal(t, Snapshot{}, snap)
	assert.Equal(t, int64(0), snap.Total())
}

func TestIncrements(t *testing.T) {
	s := New()
	s.IncReceived()
	s.IncReceived()
	s.IncParsed()
	s.IncAggregated()
	s.IncDropped()

	snap := s.Get()
	assert.Equal(t, uint64(2), snap.Received)
	assert.Equal(t, uint64(1), snap.Parsed)
	assert.Equal(t, uint64(1), snap.Aggregated)
	assert.Equal(t, uint64(1), snap.Dropped)
}

func TestAddParseTimeNS_NegativeIgnored(t *testing.T) {
	s := New()
	s.AddParseTimeNS(100)
	s.AddParseTimeNS(-50)
	assert.Equal(t, uint64(100), s.Get().TimeSpentParsingNS)
}

func TestAddAggregateTimeNS_Accumulates(t *testing.T) {
	s := New()
	s.AddAggregateTimeNS(10)
	s.AddAggregateTimeNS(20)
	assert.Equal(t, uint64(30), s.Get().TimeSpentAggregatingNS)
}

func TestSetTracked_AndTotal(t *testing.T) {
	s := New()
	s.SetTracked(3, 5, 2)
	snap := s.Get()
	assert.Equal(t, int64(3), snap.TrackedCounters)
	assert.Equal(t, int64(5), snap.TrackedGauges)
	assert.Equal(t, int64(2), snap.TrackedDurations)
	assert.Equal(t, int64(10), snap.Total())
}

func TestReset_ClearsTrackedOnly(t *testing.T) {
	s := New()
	s.IncReceived()
	s.SetTracked(1, 1, 1)
	s.Reset()

	snap := s.Get()
	assert.Equal(t, int64(0), snap.Total())
	assert.Equal(t, uint64(1), snap.Received)
}

func TestConcurrentIncrements(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncReceived()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100), s.Get().Received)
}
