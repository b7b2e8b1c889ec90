package domain

import "fmt"

// Status is the referral lifecycle state.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusPaid    Status = "PAID"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusPaid:
		return true
	}
	return false
}

// Event drives a lifecycle transition.
type Event int

const (
	EventInvest Event = iota + 1
	EventMarkPaid
)

func (e Event) String() string {
	switch e {
	case EventInvest:
		return "invest"
	case EventMarkPaid:
		return "mark_paid"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Advance returns the state reached from current on event. PAID is terminal:
// every event on a paid referral is rejected with ErrInvalidState.
func Advance(current Status, event Event) (Status, error) {
	switch current {
	case StatusPending, StatusActive:
		switch event {
		case EventInvest:
			return StatusActive, nil
		case EventMarkPaid:
			return StatusPaid, nil
		}
	case StatusPaid:
		return current, fmt.Errorf("%w: referral already paid, cannot %s", ErrInvalidState, event)
	default:
		return current, fmt.Errorf("%w: unknown status %q", ErrInvalidState, current)
	}
	return current, fmt.Errorf("%w: unknown event %s", ErrInvalidArgument, event)
}
