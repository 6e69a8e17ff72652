package reclaim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gocodecs/internal/codecerr"
)

type fakeEngine struct {
	foreground atomic.Bool
	closed     atomic.Bool
	lastErr    atomic.Value
}

func (f *fakeEngine) Foreground() bool { return f.foreground.Load() }
func (f *fakeEngine) ReportError(err error) { f.lastErr.Store(err) }
func (f *fakeEngine) Close(ctx context.Context) error {
	f.closed.Store(true)
	return nil
}

func TestReclaimInactiveSkipsActiveForeground(t *testing.T) {
	m := New(WithInactivityTimeout(time.Hour))
	eng := &fakeEngine{}
	eng.foreground.Store(true)
	id := m.Register(eng)
	m.Activity(id)

	n := m.ReclaimInactive()
	assert.Equal(t, 0, n)
	assert.False(t, eng.closed.Load())
	assert.Equal(t, 1, m.Count())
}

func TestReclaimInactiveReclaimsInactiveEngine(t *testing.T) {
	m := New(WithInactivityTimeout(time.Millisecond))
	eng := &fakeEngine{}
	eng.foreground.Store(true)
	m.Register(eng)
	time.Sleep(5 * time.Millisecond)

	n := m.ReclaimInactive()
	assert.Equal(t, 1, n)
	assert.True(t, eng.closed.Load())
	assert.Equal(t, 0, m.Count())

	err, _ := eng.lastErr.Load().(error)
	require.NotNil(t, err)
	assert.Equal(t, codecerr.KindQuotaExceededError, mustKind(t, err))
}

func TestReclaimInactiveReclaimsBackgroundedEvenIfActive(t *testing.T) {
	m := New(WithInactivityTimeout(time.Hour))
	eng := &fakeEngine{}
	eng.foreground.Store(false)
	id := m.Register(eng)
	m.Activity(id)

	n := m.ReclaimInactive()
	assert.Equal(t, 1, n)
	assert.True(t, eng.closed.Load())
}

func TestUnregisterRemovesEngine(t *testing.T) {
	m := New()
	id := m.Register(&fakeEngine{})
	assert.Equal(t, 1, m.Count())
	m.Unregister(id)
	assert.Equal(t, 0, m.Count())
}

func mustKind(t *testing.T, err error) codecerr.Kind {
	t.Helper()
	k, ok := codecerr.KindOf(err)
	require.True(t, ok)
	return k
}
