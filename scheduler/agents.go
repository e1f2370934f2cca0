package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/bookline-ai/bookline"
	"github.com/bookline-ai/bookline/calendar"
)

const gatherDateInstructions = `Role: Appointment Requirements Gatherer
Task: Help the user settle on the date range and time of day they want an
appointment checked for.
Rules:
- Ask for a concrete date (or a short range of dates) plus a time of day.
- Reject dates in the past.
- Reject whole-month or open-ended ranges; ask the user to narrow down.
- Once you have a valid range and time, call desired_appointment with it.
- If the request is ambiguous or invalid, reply with a short clarifying
  question instead.`

const checkAvailabilityInstructions = `Role: Calendar Availability Checker
Task: Find an open slot matching the user's desired date range and time.
Use the get_calendar_events tool to fetch events in the requested range.
A slot is open only when an event titled exactly "Available" exists at that
time; no event at a time never means the time is open.
When an open slot matches, call selected_appointment with that event's id,
start and end. Otherwise reply with a short message telling the user nothing
is open and asking for another time.`

const gatherContactInstructions = `Role: Contact Information Gatherer
Task: Collect user contact details for the appointment.
Start with a friendly greeting and ask for the user's contact information
for the meeting.
Gather the following information:
1. Full Name (required)
2. Email Address (required)
3. Phone Number (optional)
Rules:
- Ensure all required fields are provided.
- Validate email format.
- Phone number is optional but should be collected if available.
When everything required is gathered, call set_contact with it. Until then,
reply with a short question asking for what is missing.`

const finalizeMeetingInstructions = `Role: Meeting Details Setter
Task: Book the selected appointment by calling the set_event tool, then
report the tool's outcome to the user verbatim, including the event link
when there is one.`

// newGatherDateAgent builds the date-gathering reasoning step.
func newGatherDateAgent(model bookline.ModelProvider) (*bookline.Agent, error) {
	schema, err := jsonschema.For[DesiredAppointment](nil)
	if err != nil {
		return nil, err
	}
	return bookline.NewAgent(NodeGatherDateRange,
		bookline.WithModel(model),
		bookline.WithInstructions(gatherDateInstructions),
		bookline.WithOutputTools(&bookline.OutputTool{
			Name:        "desired_appointment",
			Description: "Record the validated desired date range and time.",
			Schema:      schema,
			Parse: func(_ context.Context, arguments string) (any, error) {
				var desired DesiredAppointment
				if err := json.Unmarshal([]byte(arguments), &desired); err != nil {
					return nil, err
				}
				if desired.DateFrom == "" || desired.Time == "" {
					return nil, fmt.Errorf("scheduler: desired appointment missing date or time")
				}
				if desired.DateTo == "" {
					desired.DateTo = desired.DateFrom
				}
				return &desired, nil
			},
		}),
	)
}

// newAvailabilityAgent builds the availability-checking reasoning step. It
// is the only step besides finalization that touches the calendar, and only
// through its tool.
func newAvailabilityAgent(model bookline.ModelProvider, cal calendar.Service) (*bookline.Agent, error) {
	outputSchema, err := jsonschema.For[SelectedAppointment](nil)
	if err != nil {
		return nil, err
	}
	type listArgs struct {
		DateFrom string `json:"date_from" jsonschema:"start date, 2006-01-02"`
		DateTo   string `json:"date_to" jsonschema:"end date inclusive, 2006-01-02"`
	}
	listSchema, err := jsonschema.For[listArgs](nil)
	if err != nil {
		return nil, err
	}
	return bookline.NewAgent(NodeCheckAvailability,
		bookline.WithModel(model),
		bookline.WithInstructions(checkAvailabilityInstructions),
		bookline.WithTools(&bookline.Tool{
			Name:        "get_calendar_events",
			Description: "List calendar events between two dates.",
			InputSchema: listSchema,
			Handle: func(ctx context.Context, input string) (string, error) {
				var args listArgs
				if err := json.Unmarshal([]byte(input), &args); err != nil {
					return "", err
				}
				timeMin, err := time.Parse("2006-01-02", args.DateFrom)
				if err != nil {
					return fmt.Sprintf("Failed to get events: invalid date_from %q", args.DateFrom), nil
				}
				timeMax, err := time.Parse("2006-01-02", args.DateTo)
				if err != nil {
					return fmt.Sprintf("Failed to get events: invalid date_to %q", args.DateTo), nil
				}
				events, err := cal.ListEvents(ctx, timeMin, timeMax.AddDate(0, 0, 1), 20)
				if err != nil {
					return fmt.Sprintf("Failed to get events: %v", err), nil
				}
				return formatEvents(events), nil
			},
		}),
		bookline.WithOutputTools(&bookline.OutputTool{
			Name:        "selected_appointment",
			Description: "Record the open slot selected for the user.",
			Schema:      outputSchema,
			Parse: func(_ context.Context, arguments string) (any, error) {
				var selected SelectedAppointment
				if err := json.Unmarshal([]byte(arguments), &selected); err != nil {
					return nil, err
				}
				if selected.ID == "" {
					return nil, fmt.Errorf("scheduler: selected appointment missing event id")
				}
				return &selected, nil
			},
		}),
	)
}

// newContactAgent builds the contact-gathering reasoning step. Its
// dependency is the selected appointment; a complete set of contact details
// produces the finalized MeetingDetails payload.
func newContactAgent(model bookline.ModelProvider) (*bookline.Agent, error) {
	schema, err := jsonschema.For[ContactInformation](nil)
	if err != nil {
		return nil, err
	}
	return bookline.NewAgent(NodeGatherContactInfo,
		bookline.WithModel(model),
		bookline.WithInstructions(gatherContactInstructions),
		bookline.WithOutputTools(&bookline.OutputTool{
			Name:        "set_contact",
			Description: "Record the gathered contact information.",
			Schema:      schema,
			Parse: func(ctx context.Context, arguments string) (any, error) {
				var contact ContactInformation
				if err := json.Unmarshal([]byte(arguments), &contact); err != nil {
					return nil, err
				}
				if contact.FullName == "" || !strings.Contains(contact.Email, "@") {
					return nil, fmt.Errorf("scheduler: contact information incomplete")
				}
				selected, ok := bookline.DepsFromContext[*SelectedAppointment](ctx)
				if !ok {
					return nil, fmt.Errorf("scheduler: no selected appointment in context")
				}
				return &MeetingDetails{
					FullName:            contact.FullName,
					Email:               contact.Email,
					PhoneNumber:         contact.PhoneNumber,
					SelectedAppointment: *selected,
				}, nil
			},
		}),
	)
}

// newFinalizeAgent builds the meeting-finalization reasoning step. Calendar
// failures surface as the tool's text result, not as run errors, so the
// conversation reports them and still terminates.
func newFinalizeAgent(model bookline.ModelProvider, cal calendar.Service) (*bookline.Agent, error) {
	type setEventArgs struct{}
	setSchema, err := jsonschema.For[setEventArgs](nil)
	if err != nil {
		return nil, err
	}
	return bookline.NewAgent(NodeFinalizeMeeting,
		bookline.WithModel(model),
		bookline.WithInstructions(finalizeMeetingInstructions),
		bookline.WithTools(&bookline.Tool{
			Name:        "set_event",
			Description: "Book the selected appointment with the gathered contact details.",
			InputSchema: setSchema,
			Handle: func(ctx context.Context, _ string) (string, error) {
				details, ok := bookline.DepsFromContext[*MeetingDetails](ctx)
				if !ok || details.FullName == "" || details.Email == "" {
					return "Error: Missing required meeting information", nil
				}
				title := "Meeting with " + details.FullName
				description := fmt.Sprintf("Meeting with %s\nEmail: %s", details.FullName, details.Email)
				if details.PhoneNumber != "" {
					description += "\nPhone: " + details.PhoneNumber
				}
				location := "Online"
				event, err := cal.UpdateEvent(ctx, details.SelectedAppointment.ID, &calendar.EventPatch{
					Title:       &title,
					Description: &description,
					Location:    &location,
					Attendees:   []string{details.Email},
				})
				if err != nil {
					return fmt.Sprintf("Failed to create event: %v", err), nil
				}
				if event.Link != "" {
					return "Event created successfully: " + event.Link, nil
				}
				return "Event created successfully.", nil
			},
		}),
	)
}

// formatEvents renders events as a compact listing for the model.
func formatEvents(events []*calendar.Event) string {
	if len(events) == 0 {
		return "No events found in the requested range."
	}
	var buf strings.Builder
	for _, event := range events {
		fmt.Fprintf(&buf, "- id=%s title=%q start=%s end=%s\n",
			event.ID, event.Title,
			event.Start.Format(time.RFC3339), event.End.Format(time.RFC3339))
	}
	return buf.String()
}
