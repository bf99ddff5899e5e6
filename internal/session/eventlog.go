package session

import (
	"time"

	"magnetctl/internal/domain"
)

// EventLogCapacity is the number of events retained.
const EventLogCapacity = 20

const eventTimeLayout = "Jan 02 15:04:05"

// Event is one line of the event log.
type Event struct {
	Time     time.Time
	Category domain.Category
	Message  string
}

func (e Event) String() string {
	return "[" + e.Time.Format(eventTimeLayout) + "] " + e.Message
}

// EventLog is a fixed size ring buffer; appending to a full log drops the
// oldest entry.
type EventLog struct {
	buf   [EventLogCapacity]Event
	start int
	n     int
}

func (l *EventLog) Append(e Event) {
	if l.n < EventLogCapacity {
		l.buf[(l.start+l.n)%EventLogCapacity] = e
		l.n++
		return
	}
	l.buf[l.start] = e
	l.start = (l.start + 1) % EventLogCapacity
}

func (l *EventLog) Len() int {
	return l.n
}

// Entries returns the retained events, oldest first.
func (l *EventLog) Entries() []Event {
	out := make([]Event, l.n)
	for i := 0; i < l.n; i++ {
		out[i] = l.buf[(l.start+i)%EventLogCapacity]
	}
	return out
}

// Lines returns the formatted events, oldest first.
func (l *EventLog) Lines() []string {
	entries := l.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}
