package application

import "time"

// EventKind names a state-machine trigger. The machine is purely reactive to
// (state, event) pairs; elapsed-time triggers and dispatch outcomes arrive as
// explicit events from the collaborators, never from in-process timers.
type EventKind string

const (
	// EventScored carries the relevance scorer output.
	EventScored EventKind = "scored"
	// EventQueueApproved is the orchestrator's threshold filter passing.
	EventQueueApproved EventKind = "queue_approved"
	// EventThresholdRejected is the orchestrator's threshold filter failing.
	EventThresholdRejected EventKind = "threshold_rejected"
	// EventDispatchSucceeded reports a successful send.
	EventDispatchSucceeded EventKind = "dispatch_succeeded"
	// EventDispatchFailed reports a failed send, transient or permanent.
	EventDispatchFailed EventKind = "dispatch_failed"
	// EventFollowUpDue fires when the follow-up window elapsed with no response.
	EventFollowUpDue EventKind = "follow_up_due"
	// EventResponseRecorded carries a manual or parsed employer response.
	EventResponseRecorded EventKind = "response_recorded"
	// EventCancelled aborts a pending retry, e.g. when the user withdraws.
	EventCancelled EventKind = "cancelled"
)

// Failure classifies a dispatch failure.
type Failure string

const (
	FailureTransient Failure = "transient"
	FailurePermanent Failure = "permanent"
)

// Response classifies an employer response.
type Response string

const (
	ResponsePositive Response = "positive"
	ResponseNegative Response = "negative"
	ResponseNone     Response = "none"
)

// Event is a single trigger offered to the machine. Only the fields relevant
// to the Kind are consulted.
type Event struct {
	Kind      EventKind
	Score     int
	Breakdown map[string]float64
	Failure   Failure
	Response  Response
	Detail    string
	At        time.Time
}
