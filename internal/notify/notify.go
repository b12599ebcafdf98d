// Package notify defines the domain events the attendance engine emits.
// Delivery (push, email, chat) is the surrounding system's concern; this
// package only carries the events to a pluggable sink.
package notify

import (
	"log"
	"time"
)

// Event kinds emitted by the engine.
const (
	CheckInRecorded       = "CheckInRecorded"
	CheckOutRecorded      = "CheckOutRecorded"
	BreakStarted          = "BreakStarted"
	BreakEnded            = "BreakEnded"
	LateArrival           = "LateArrival"
	ExceptionAutoApproved = "ExceptionAutoApproved"
	ExceptionPending      = "ExceptionPending"
)

// Event is a domain event forwarded to the notification sink.
type Event struct {
	Kind       string
	EmployeeID string
	At         time.Time
	Detail     map[string]string
}

// Sink receives domain events. Implementations must not block; slow
// consumers should buffer internally.
type Sink interface {
	Publish(event Event)
}

// LogSink writes events to the process log. Used when no external
// notification system is wired in.
type LogSink struct{}

// Publish logs the event.
func (LogSink) Publish(event Event) {
	log.Printf("event %s employee=%s at=%s detail=%v",
		event.Kind, event.EmployeeID, event.At.Format(time.RFC3339), event.Detail)
}
