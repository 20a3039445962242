package dataset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromiseQueueAddReturnsResult(t *testing.T) {
	q := NewPromiseQueue()

	wantErr := errors.New("boom")
	assert.NoError(t, q.Add(func() error { return nil }))
	assert.ErrorIs(t, q.Add(func() error { return wantErr }), wantErr)
	assert.Equal(t, 0, q.Len())
}

func TestPromiseQueueReadyIdle(t *testing.T) {
	q := NewPromiseQueue()
	require.NoError(t, q.Ready(context.Background()))
}

func TestPromiseQueueReadyWaitsForInFlight(t *testing.T) {
	q := NewPromiseQueue()
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Add(func() error {
			<-release
			return nil
		})
	}()

	// Let the operation enter the queue before waiting on it.
	for q.Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Ready(ctx))
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}

func TestPromiseQueueReadyHonorsContext(t *testing.T) {
	q := NewPromiseQueue()
	release := make(chan struct{})
	defer close(release)
	go func() {
		_ = q.Add(func() error {
			<-release
			return nil
		})
	}()
	for q.Len() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Ready(ctx), context.DeadlineExceeded)
}
