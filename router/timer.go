package router

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// timerEntry is one installed timer behaviour. running guards against
// overlapping ticks: a tick that fires while the previous invocation is
// still executing is skipped, not queued.
type timerEntry struct {
	handler twin.TimerHandler
	period  time.Duration
	running atomic.Bool
}

func (r *Router) runTimer(ctx context.Context, twinType twin.Type, entry *timerEntry) {
	defer r.timerWG.Done()

	ticker := time.NewTicker(entry.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, twinType, entry)
		}
	}
}

func (r *Router) tick(ctx context.Context, twinType twin.Type, entry *timerEntry) {
	if !entry.running.CompareAndSwap(false, true) {
		r.logger.Debug("timer tick skipped, previous invocation still running",
			"behaviour", entry.handler.ID())
		return
	}
	defer entry.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, r.handlerTimeout)
	defer cancel()

	set, err := entry.handler.Tick(ctx)
	if err != nil {
		r.logger.Error("timer behaviour failed",
			"behaviour", entry.handler.ID(), "error", err)
		return
	}
	r.forward(set, twinType)
}
