package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type panickyWorker struct {
	runs *atomic.Int32
}

func (w panickyWorker) Run(ctx context.Context) error {
	if w.runs.Add(1) == 1 {
		panic("first run explodes")
	}
	<-ctx.Done()
	return nil
}

func TestSupervisor_RestartsAfterPanic(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)

	var runs atomic.Int32
	sup.Add(panickyWorker{runs: &runs})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	req.Eventually(func() bool {
		return runs.Load() >= 2
	}, time.Second, 10*time.Millisecond)

	sup.Stop()
}

type countingWorker struct {
	started chan struct{}
}

func (w countingWorker) Run(ctx context.Context) error {
	w.started <- struct{}{}
	<-ctx.Done()
	return nil
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)

	started := make(chan struct{}, 1)
	sup.Add(countingWorker{started: started})

	finished := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(finished)
	}()

	<-started
	sup.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		req.Fail("supervisor did not stop in time")
	}
}
