package coordinator

import (
	"context"

	"github.com/ecotech/contentforge/internal/eventlog"
	"github.com/ecotech/contentforge/internal/models"
)

// emitter is the single writer of a run's event sequence. It owns the
// monotonicity invariants: Step strictly increases, Progress never
// decreases, and nothing is emitted once the run context is cancelled.
type emitter struct {
	ctx       context.Context
	ch        chan<- models.AgentActivityEvent
	mirror    eventlog.Publisher
	requestID string
	step      int
	progress  int
}

func newEmitter(ctx context.Context, ch chan<- models.AgentActivityEvent, mirror eventlog.Publisher, requestID string) *emitter {
	return &emitter{ctx: ctx, ch: ch, mirror: mirror, requestID: requestID}
}

// emit stamps the event with the run's request id, next step number, and
// clamped progress, then delivers it. Delivery to the caller respects
// cancellation; the mirror is fire-and-forget.
func (e *emitter) emit(event models.AgentActivityEvent) {
	if e.ctx.Err() != nil {
		return
	}

	e.step++
	event.Step = e.step
	event.RequestID = e.requestID
	if event.Progress < e.progress {
		event.Progress = e.progress
	}
	e.progress = event.Progress

	if e.mirror != nil {
		e.mirror.Publish(event)
	}
	if e.ch == nil {
		return
	}
	select {
	case e.ch <- event:
	case <-e.ctx.Done():
	}
}
