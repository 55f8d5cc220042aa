package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestAddTicker_Fires(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddTicker("tick", 20*time.Millisecond, func(context.Context) {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count1, count2 int32
	s.AddTicker("autosave", 20*time.Millisecond, func(context.Context) { atomic.AddInt32(&count1, 1) })
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("autosave", 20*time.Millisecond, func(context.Context) { atomic.AddInt32(&count2, 1) })
	time.Sleep(80 * time.Millisecond)

	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestAddTicker_SkipsOverlappingRuns(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var running, maxRunning int32
	s.AddTicker("slow", 10*time.Millisecond, func(ctx context.Context) {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		select {
		case <-time.After(60 * time.Millisecond):
		case <-ctx.Done():
		}
		atomic.AddInt32(&running, -1)
	})

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
	assert.Positive(t, s.Skipped("slow"))
}

func TestAddDelay_FiresOnce(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddDelay("once", 30*time.Millisecond, func(context.Context) {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestAddDelay_ReplacesCancelsOld(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddDelay("d", 500*time.Millisecond, func(context.Context) { atomic.AddInt32(&count, 1) })
	s.AddDelay("d", 30*time.Millisecond, func(context.Context) { atomic.AddInt32(&count, 10) })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
}

func TestRemove_Ticker(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddTicker("task", 20*time.Millisecond, func(context.Context) { atomic.AddInt32(&count, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Remove("task")
	time.Sleep(10 * time.Millisecond)
	snap := atomic.LoadInt32(&count)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&count), "ticker must stop after Remove")
}

func TestRemove_Delay(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddDelay("d", 100*time.Millisecond, func(context.Context) { atomic.AddInt32(&count, 1) })
	s.Remove("d")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestRemove_NonExistent(t *testing.T) {
	s := New(newNop())
	defer s.Stop()
	s.Remove("nope")
}

func TestStop_StopsEverything(t *testing.T) {
	s := New(newNop())

	var c1, c2, d int32
	s.AddTicker("a", 20*time.Millisecond, func(context.Context) { atomic.AddInt32(&c1, 1) })
	s.AddTicker("b", 20*time.Millisecond, func(context.Context) { atomic.AddInt32(&c2, 1) })
	s.AddDelay("later", 80*time.Millisecond, func(context.Context) { atomic.AddInt32(&d, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	time.Sleep(30 * time.Millisecond)
	snap1, snap2 := atomic.LoadInt32(&c1), atomic.LoadInt32(&c2)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&c1))
	assert.Equal(t, snap2, atomic.LoadInt32(&c2))
	assert.Equal(t, int32(0), atomic.LoadInt32(&d))
	assert.Empty(t, s.ListTickers())
}

func TestStop_IdempotentAndRejectsNewTasks(t *testing.T) {
	s := New(nil)
	s.Stop()
	s.Stop()

	s.AddTicker("late", time.Millisecond, func(context.Context) {})
	assert.Empty(t, s.ListTickers())
}

func TestListTickers(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	require.Empty(t, s.ListTickers())
	s.AddTicker("beta", time.Hour, func(context.Context) {})
	s.AddTicker("alpha", time.Hour, func(context.Context) {})
	assert.Equal(t, []string{"alpha", "beta"}, s.ListTickers())

	s.Remove("alpha")
	assert.Equal(t, []string{"beta"}, s.ListTickers())
}

func TestTicker_PanicRecovery(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var runs int32
	s.AddTicker("panic", 20*time.Millisecond, func(context.Context) {
		atomic.AddInt32(&runs, 1)
		panic("oops")
	})
	time.Sleep(90 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2), "ticker keeps running after a panic")
}
