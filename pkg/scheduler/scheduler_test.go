package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllJobs(t *testing.T) {
	p := NewPool(4, 8)
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		p.Submit(FuncJob(func(ctx context.Context) { n.Add(1) }))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(50), n.Load())
}

func TestPoolSubmitDoesNotBlockWhenSaturated(t *testing.T) {
	p := NewPool(1, 0)
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)
	p.Submit(FuncJob(func(ctx context.Context) {
		started.Done()
		<-release
	}))
	started.Wait()

	var ran atomic.Bool
	done := make(chan bool, 1)
	go func() { done <- p.Submit(FuncJob(func(ctx context.Context) { ran.Store(true) })) }()

	select {
	case queued := <-done:
		assert.False(t, queued)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a saturated pool")
	}
	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, ran.Load())
	_, overflows := p.Stats()
	assert.Equal(t, int64(1), overflows)
}

func TestPoolRecoversFromPanic(t *testing.T) {
	p := NewPool(1, 4)
	var n atomic.Int32
	p.Submit(FuncJob(func(ctx context.Context) { panic("boom") }))
	p.Submit(FuncJob(func(ctx context.Context) { n.Add(1) }))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(1), n.Load())
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := NewPool(2, 2)
	require.NoError(t, p.Shutdown(context.Background()))

	done := make(chan struct{})
	assert.False(t, p.Submit(FuncJob(func(ctx context.Context) { close(done) })))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job submitted after shutdown never ran")
	}
}

func TestPoolShutdownTimeout(t *testing.T) {
	p := NewPool(1, 1)
	p.Submit(FuncJob(func(ctx context.Context) { <-ctx.Done() }))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}

func TestSchedulerEveryRunsImmediately(t *testing.T) {
	s := New()
	defer s.Stop()
	ran := make(chan struct{}, 1)
	s.Every(time.Hour, FuncJob(func(ctx context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Every did not run the job on start")
	}
}

func TestSchedulerOnceAfterCancelled(t *testing.T) {
	s := New()
	var ran atomic.Bool
	s.OnceAfter(50*time.Millisecond, FuncJob(func(ctx context.Context) { ran.Store(true) }))
	s.Stop()
	time.Sleep(100 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestCronAdd(t *testing.T) {
	c := NewCron(time.UTC)
	id, err := c.Add("0 3 * * *", FuncJob(func(ctx context.Context) {}))
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	c.Remove(id)
	assert.Empty(t, c.Entries())

	_, err = c.Add("not a cron", FuncJob(func(ctx context.Context) {}))
	assert.Error(t, err)
}
