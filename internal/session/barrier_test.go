package session

import (
	"errors"
	"testing"
)

func TestBarrier(t *testing.T) {
	var b Barrier
	if !b.Done() {
		t.Fatal("new barrier should be done")
	}
	b.Increment()
	b.Increment()
	if got := b.Outstanding(); got != 2 {
		t.Fatalf("Outstanding() = %d, want 2", got)
	}
	for i := 0; i < 2; i++ {
		if err := b.Decrement(); err != nil {
			t.Fatalf("Decrement() #%d: %v", i, err)
		}
	}
	if !b.Done() {
		t.Fatalf("barrier not done after matching decrements: %d", b.Outstanding())
	}
}

func TestBarrierUnderflow(t *testing.T) {
	var b Barrier
	if err := b.Decrement(); !errors.Is(err, ErrBarrierUnderflow) {
		t.Fatalf("Decrement() on empty barrier = %v, want ErrBarrierUnderflow", err)
	}
	if got := b.Outstanding(); got != 0 {
		t.Fatalf("Outstanding() = %d after underflow, want 0", got)
	}
}
