// Package fsevent defines the event shape produced by the directory watcher
// and consumed by the bounded event bus and processing coordinator.
package fsevent

import "time"

// Kind identifies the filesystem change an Event describes.
type Kind int

const (
	Created Kind = iota
	Modified
	Deleted
	Renamed
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is an immutable record of a single filesystem change. OldPath is only
// populated for Renamed events. Processable reflects whether Path matched the
// configured extension policy at observation time.
type Event struct {
	Kind        Kind
	Path        string
	OldPath     string
	ObservedAt  time.Time
	Processable bool
}
