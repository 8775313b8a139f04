package engine

import (
	"context"
	"time"
)

// startFlushTimer arms the background flush loop when AutoSave is off and
// FlushInterval is positive, per SPEC_FULL.md §4.9's periodic-flush mode.
// Grounded on the Aman-CERP pack's internal/async/indexer.go stop/done
// channel shutdown pattern.
func (e *Engine) startFlushTimer(ctx context.Context) {
	if e.cfg.AutoSave || e.cfg.FlushInterval <= 0 {
		return
	}
	e.flushStop = make(chan struct{})
	e.flushDone = make(chan struct{})

	go func() {
		defer close(e.flushDone)
		ticker := time.NewTicker(e.cfg.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.saveIfDirty(ctx)
			case <-e.flushStop:
				return
			}
		}
	}()
}

func (e *Engine) stopFlushTimer() {
	if e.flushStop == nil {
		return
	}
	close(e.flushStop)
	<-e.flushDone
	e.flushStop = nil
	e.flushDone = nil
}
