package session

import (
	"context"
	"time"

	"magnetctl/internal/engine"
)

// Pump moves alerts from the engine to the dispatcher in emission order.
type Pump struct {
	engine     engine.Engine
	dispatcher *Dispatcher
}

func NewPump(e engine.Engine, d *Dispatcher) *Pump {
	return &Pump{engine: e, dispatcher: d}
}

// Poll dispatches whatever is queued without blocking and returns the number
// of alerts handled.
func (p *Pump) Poll(ctx context.Context, st *State) int {
	alerts := p.engine.PopAlerts()
	for _, a := range alerts {
		p.dispatcher.Handle(ctx, st, a)
	}
	return len(alerts)
}

// Drain waits up to timeout for an alert and then polls. It returns 0 when
// the wait timed out; the caller re-checks its exit condition and calls again.
func (p *Pump) Drain(ctx context.Context, st *State, timeout time.Duration) int {
	if p.engine.WaitForAlert(timeout) == nil {
		return 0
	}
	return p.Poll(ctx, st)
}
