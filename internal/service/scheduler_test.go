package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeResync struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeResync) Run(ctx context.Context) (*ResyncReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &ResyncReport{}, nil
}

func (f *fakeResync) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCleaner struct {
	mu      sync.Mutex
	calls   int
	lastArg int
}

func (f *fakeCleaner) CleanupOldDeliveries(ctx context.Context, retentionDays int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArg = retentionDays
	return 3, nil
}

func TestSchedulerRunsMaintenanceOnStart(t *testing.T) {
	resync := &fakeResync{}
	cleaner := &fakeCleaner{}

	scheduler := NewScheduler(resync, cleaner, 30, 24, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return resync.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	cleaner.mu.Lock()
	defer cleaner.mu.Unlock()
	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 30, cleaner.lastArg)
}

func TestSchedulerStop(t *testing.T) {
	scheduler := NewScheduler(&fakeResync{}, &fakeCleaner{}, 30, 24, testLogger())

	done := make(chan struct{})
	go func() {
		scheduler.Start(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	scheduler.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	scheduler := NewScheduler(&fakeResync{}, &fakeCleaner{}, 0, 0, testLogger())
	assert.Equal(t, 24, scheduler.intervalHours)
	assert.Equal(t, 30, scheduler.retentionDays)
}
