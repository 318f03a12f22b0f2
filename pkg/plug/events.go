package plug

import (
	"time"
)

// EventType identifies the coordinator transition that produced an Event.
type EventType string

const (
	EventPromptStarted  EventType = "prompt_started"
	EventPromptAnswered EventType = "prompt_answered"
	EventPromptRemoved  EventType = "prompt_removed"
)

// Event describes a state change of the coordinator.
type Event struct {
	Type      EventType `json:"type"`
	PromptID  string    `json:"prompt_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives coordinator measurements. Calls happen outside the lock
// except SnapshotServed, which is reported while the cache is inspected and
// must not block.
type Observer interface {
	PromptStarted(replaced bool)
	PromptAnswered(wait time.Duration)
	PromptRemoved()
	WaitTimedOut()
	ResponseRejected()
	SnapshotServed(hit bool, resolve time.Duration)
}

type nopObserver struct{}

func (nopObserver) PromptStarted(bool)                 {}
func (nopObserver) PromptAnswered(time.Duration)       {}
func (nopObserver) PromptRemoved()                     {}
func (nopObserver) WaitTimedOut()                      {}
func (nopObserver) ResponseRejected()                  {}
func (nopObserver) SnapshotServed(bool, time.Duration) {}
