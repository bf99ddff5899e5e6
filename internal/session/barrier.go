package session

import (
	"errors"
	"fmt"

	"magnetctl/internal/domain"
	"magnetctl/internal/engine"
)

// ErrBarrierUnderflow reports a completion without a matching request.
var ErrBarrierUnderflow = errors.New("outstanding save counter underflow")

// Barrier counts resume data requests that have not completed yet. Shutdown
// waits for it to reach zero.
type Barrier struct {
	n int
}

func (b *Barrier) Increment() {
	b.n++
}

// Decrement closes one slot. The counter never goes below zero; an unmatched
// completion is reported as ErrBarrierUnderflow and otherwise ignored.
func (b *Barrier) Decrement() error {
	if b.n == 0 {
		return ErrBarrierUnderflow
	}
	b.n--
	return nil
}

func (b *Barrier) Outstanding() int {
	return b.n
}

// Done reports whether every issued request has completed.
func (b *Barrier) Done() bool {
	return b.n == 0
}

// requestSave issues an asynchronous save and opens a barrier slot for it once
// the engine has accepted the request.
func requestSave(e engine.Engine, st *State, id domain.Identity, flags engine.SaveFlags) error {
	if err := e.RequestSave(id, flags); err != nil {
		return fmt.Errorf("request save %s: %w", id, err)
	}
	st.Outstanding.Increment()
	return nil
}
