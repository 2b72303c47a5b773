// Package booking describes the booking status graph shared by the service and storage layers.
package booking

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled}

// transitions is the adjacency list of legal moves. Nothing re-enters pending.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCompleted, StatusCancelled},
}

// ParseStatus converts user input into a Status.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range Statuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("booking: unknown status %q", value)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Targets returns the statuses reachable from s in one step.
func (s Status) Targets() []Status {
	return append([]Status(nil), transitions[s]...)
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Holds reports whether a booking in this status keeps its room reserved.
func (s Status) Holds() bool {
	return s == StatusPending || s == StatusApproved
}

// ReleasesRoom reports whether moving into s frees the booked room.
func (s Status) ReleasesRoom() bool {
	return s == StatusRejected || s == StatusCancelled
}

// CanTransition reports whether from -> to is an edge of the graph.
func CanTransition(from, to Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}
