// Package store holds the dashboard state and publishes replacements.
//
// This package is internal to dashfeed. It keeps exactly one [Snapshot], the
// last state fetched successfully, together with the outcome of the most
// recent refresh attempt. Every successful fetch replaces the snapshot as a
// whole; there is no merging.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: A stored state and where it came from
//   - [Status]: Outcome of the latest refresh attempt
//
// Subscribers receive snapshots via channels with non-blocking sends (slow
// subscribers miss intermediate snapshots rather than block fetching).
package store
