package status

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_Initial(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	assert.False(t, snap.Running)
	assert.Zero(t, snap.Errors)
	assert.Zero(t, snap.Restarts)
}

func TestCounters_Monotonic(t *testing.T) {
	s := New()
	s.SetRunning(true)
	s.IncErrors()
	s.IncErrors()
	s.IncRestarts()

	snap := s.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, int64(2), snap.Errors)
	assert.Equal(t, int64(1), snap.Restarts)
}

func TestCounters_Concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncErrors()
			s.IncRestarts()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, int64(50), snap.Errors)
	assert.Equal(t, int64(50), snap.Restarts)
}
