package scheduler

import (
	"context"
	"testing"

	"github.com/bookline-ai/bookline/graph"
)

func TestVerifyDateGathered(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"structured", &DesiredAppointment{DateFrom: "2026-09-01", DateTo: "2026-09-01", Time: "10:00"}, NodeCheckAvailability},
		{"absent", nil, NodeWaitForMessage},
		{"raw text", "I still need a date from you.", NodeWaitForMessage},
		{"value not pointer", DesiredAppointment{}, NodeWaitForMessage},
		{"wrong type", &SelectedAppointment{}, NodeWaitForMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := graph.State{}
			if tt.value != nil {
				state[KeyUserRequirements] = tt.value
			}
			if got := verifyDateGathered(context.Background(), state); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVerifySlotSelected(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"structured", &SelectedAppointment{ID: "evt123"}, NodeGatherContactInfo},
		{"absent", nil, NodeWaitForAnotherTime},
		{"raw text", "No open slots that day, pick another.", NodeWaitForAnotherTime},
		{"wrong type", &DesiredAppointment{}, NodeWaitForAnotherTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := graph.State{}
			if tt.value != nil {
				state[KeySelectedAppointment] = tt.value
			}
			if got := verifySlotSelected(context.Background(), state); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVerifyContactComplete(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"structured", &MeetingDetails{FullName: "Ada", Email: "ada@example.com"}, NodeFinalizeMeeting},
		{"absent", nil, NodeWaitForUserDetails},
		{"falsy sentinel", false, NodeWaitForUserDetails},
		{"raw text", "What is your email?", NodeWaitForUserDetails},
		{"contact only", &ContactInformation{FullName: "Ada"}, NodeWaitForUserDetails},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := graph.State{}
			if tt.value != nil {
				state[KeyMeetingDetails] = tt.value
			}
			if got := verifyContactComplete(context.Background(), state); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// Routers never mutate the state they inspect.
func TestRoutersLeaveStateUntouched(t *testing.T) {
	state := graph.State{
		KeyUserRequirements:    "pending",
		KeySelectedAppointment: "pending",
		KeyMeetingDetails:      false,
	}
	_ = verifyDateGathered(context.Background(), state)
	_ = verifySlotSelected(context.Background(), state)
	_ = verifyContactComplete(context.Background(), state)
	if len(state) != 3 || state[KeyUserRequirements] != "pending" || state[KeyMeetingDetails] != false {
		t.Fatalf("router mutated state: %v", state)
	}
}
