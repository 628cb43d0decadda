package store

import "time"

// Record is one decoded JSON object: a conversation or a student.
type Record map[string]any

// State is the storage representation of the dashboard data.
type State struct {
	Conversations []Record          `json:"conversations"`
	Students      map[string]Record `json:"students"`
}

// Snapshot is a stored [State] plus its provenance.
type Snapshot struct {
	State State `json:"state"`

	// UpdatedAt is when the fetch producing State completed.
	UpdatedAt time.Time `json:"updated_at"`

	// Transport names the strategy that delivered State.
	Transport string `json:"transport"`
}

// Status is the outcome of the latest refresh attempt.
type Status struct {
	// OK is true if the latest attempt replaced the state.
	OK bool `json:"ok"`

	// AttemptedAt is when the latest attempt finished. Zero before the first.
	AttemptedAt time.Time `json:"attempted_at"`

	// UpdatedAt is when the state was last replaced. Zero if never.
	UpdatedAt time.Time `json:"updated_at"`

	// Transport names the strategy behind the current state.
	Transport string `json:"transport"`

	// Error holds the failure message of the latest attempt, if it failed.
	Error *string `json:"error"`

	// Conversations and Students count the records in the current state.
	Conversations int `json:"conversations"`
	Students      int `json:"students"`
}

// Store defines the interface for holding the dashboard state.
//
// Store implementations must be safe for concurrent access: overlapping
// refreshes may write at the same time, and the last write wins.
type Store interface {
	// Replace stores snap as the current snapshot and notifies subscribers.
	Replace(snap Snapshot)

	// Current returns the current snapshot and whether one exists.
	Current() (Snapshot, bool)

	// RecordFailure notes a failed refresh attempt. The snapshot is kept.
	RecordFailure(err error, at time.Time)

	// Status returns the outcome of the latest refresh attempt.
	Status() Status

	// Subscribe returns a channel that receives every new snapshot.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
