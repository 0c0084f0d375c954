package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := New(4, 8, nil)
	defer p.Shutdown()

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.True(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			n.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int64(100), n.Load())
}

func TestPoolRecoversPanics(t *testing.T) {
	p := New(1, 1, nil)
	defer p.Shutdown()

	done := make(chan struct{})
	require.True(t, p.Submit(context.Background(), func() { panic("boom") }))
	require.True(t, p.Submit(context.Background(), func() { close(done) }))
	<-done
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := New(2, 0, nil)
	p.Shutdown()
	p.Shutdown()
	assert.False(t, p.Submit(context.Background(), func() {}))
	assert.False(t, p.TrySubmit(func() {}))
}

func TestShutdownRunsQueuedTasks(t *testing.T) {
	p := New(1, 4, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		require.True(t, p.TrySubmit(func() {
			defer wg.Done()
			n.Add(1)
		}))
	}
	assert.Equal(t, 3, p.Queued())

	stopped := make(chan struct{})
	go func() {
		p.Shutdown()
		close(stopped)
	}()
	close(release)
	<-stopped

	wg.Wait()
	assert.Equal(t, int64(3), n.Load())
	assert.Zero(t, p.Queued())
	assert.False(t, p.TrySubmit(func() {}))
}
