package engine

import (
	"sync"
	"time"

	"magnetctl/internal/domain"
)

// Queue is an unbounded FIFO of alerts. Alerts are never dropped or
// reordered: save results gate shutdown.
type Queue struct {
	mu     sync.Mutex
	alerts []domain.Alert
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends an alert and wakes a waiter, if any.
func (q *Queue) Push(a domain.Alert) {
	q.mu.Lock()
	q.alerts = append(q.alerts, a)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns every queued alert.
func (q *Queue) Pop() []domain.Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.alerts
	q.alerts = nil
	return out
}

// Len returns the number of queued alerts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alerts)
}

// Wait returns the front alert without removing it, blocking up to timeout.
func (q *Queue) Wait(timeout time.Duration) domain.Alert {
	if a := q.front(); a != nil {
		return a
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			// the token may be stale if a previous Pop already drained
			if a := q.front(); a != nil {
				return a
			}
		case <-timer.C:
			return q.front()
		}
	}
}

func (q *Queue) front() domain.Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.alerts) == 0 {
		return nil
	}
	return q.alerts[0]
}
