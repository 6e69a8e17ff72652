package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStrictFIFOOrdering(t *testing.T) {
	q := New(context.Background(), nil)
	defer q.Close()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
			return nil
		})
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestEnqueueDuringProcessingRunsAfterPriorItems(t *testing.T) {
	q := New(context.Background(), nil)
	defer q.Close()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	q.Enqueue(func(ctx context.Context) error {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		// enqueue a new item while this one is still running
		q.Enqueue(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, "nested")
			mu.Unlock()
			close(done)
			return nil
		})
		return nil
	})
	q.Enqueue(func(ctx context.Context) error {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		return nil
	})

	<-done
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "nested"}, order)
}

func TestFlushWaitsForPriorItems(t *testing.T) {
	q := New(context.Background(), nil)
	defer q.Close()

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		q.Enqueue(func(ctx context.Context) error {
			count.Add(1)
			return nil
		})
	}
	<-q.Flush()
	assert.Equal(t, int32(10), count.Load())
}

func TestClearRemovesOnlyNotYetStartedItems(t *testing.T) {
	q := New(context.Background(), nil)
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var secondRan atomic.Bool

	q.Enqueue(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	q.Enqueue(func(ctx context.Context) error {
		secondRan.Store(true)
		return nil
	})

	<-started
	assert.Equal(t, 2, q.Size())
	q.Clear()
	close(release)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, secondRan.Load())
}

func TestErrorsReportedButDrainContinues(t *testing.T) {
	var errs []error
	var mu sync.Mutex
	q2 := New(context.Background(), func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	defer q2.Close()

	var ran atomic.Bool
	q2.Enqueue(func(ctx context.Context) error { return assertErr })
	q2.Enqueue(func(ctx context.Context) error { ran.Store(true); return nil })
	<-q2.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.True(t, ran.Load())
}

var assertErr = assertError("boom")

type assertError string

func (e assertError) Error() string { return string(e) }
