package scheduler

import (
	"context"

	"github.com/bookline-ai/bookline/graph"
)

// The routers are pure functions over the state record. "Present" always
// means the field holds the exact structured type; a raw string, a falsy
// sentinel, or an absent value uniformly routes back to waiting, never to
// an error.

// verifyDateGathered proceeds to the availability check once a structured
// date range has been gathered.
func verifyDateGathered(_ context.Context, state graph.State) string {
	if _, ok := state[KeyUserRequirements].(*DesiredAppointment); ok {
		return NodeCheckAvailability
	}
	return NodeWaitForMessage
}

// verifySlotSelected proceeds to contact gathering once an open slot has
// been confirmed.
func verifySlotSelected(_ context.Context, state graph.State) string {
	if _, ok := state[KeySelectedAppointment].(*SelectedAppointment); ok {
		return NodeGatherContactInfo
	}
	return NodeWaitForAnotherTime
}

// verifyContactComplete proceeds to finalization once the booking payload is
// complete.
func verifyContactComplete(_ context.Context, state graph.State) string {
	if _, ok := state[KeyMeetingDetails].(*MeetingDetails); ok {
		return NodeFinalizeMeeting
	}
	return NodeWaitForUserDetails
}
