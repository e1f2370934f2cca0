// Package scheduler implements the appointment-scheduling conversation: a
// resumable graph of four reasoning steps that elicits a desired date range,
// checks the calendar for an open slot, collects contact details, and books
// the meeting.
package scheduler

// State keys. Every key except KeyMessages is replaced on update;
// KeyMessages is the append-only transcript of encoded message rows.
const (
	KeyMessages            = "messages"
	KeyUserInput           = "user_input"
	KeyUserRequirements    = "user_requirements"
	KeySelectedAppointment = "selected_appointment"
	KeyContactInformation  = "contact_information"
	KeyMeetingDetails      = "meeting_details"
)

// Node names.
const (
	NodeGatherDateRange    = "gather_date_range"
	NodeCheckAvailability  = "check_availability"
	NodeGatherContactInfo  = "gather_contact_info"
	NodeFinalizeMeeting    = "finalize_meeting"
	NodeWaitForMessage     = "wait_for_message"
	NodeWaitForAnotherTime = "wait_for_another_time"
	NodeWaitForUserDetails = "wait_for_user_details"
)

// DesiredAppointment is the user's desired date range and time of day.
// Dates use the form 2006-01-02, times 15:04.
type DesiredAppointment struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	Time     string `json:"time"`
}

// SelectedAppointment is a confirmed open slot: the id of the calendar event
// titled "Available" that backs it.
type SelectedAppointment struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// ContactInformation holds the user's contact details. PhoneNumber is
// optional.
type ContactInformation struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// MeetingDetails is the finalized booking payload: contact details plus the
// selected slot.
type MeetingDetails struct {
	FullName            string              `json:"full_name"`
	Email               string              `json:"email"`
	PhoneNumber         string              `json:"phone_number,omitempty"`
	SelectedAppointment SelectedAppointment `json:"selected_appointment"`
}
