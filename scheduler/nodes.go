package scheduler

import (
	"context"

	"github.com/bookline-ai/bookline"
	"github.com/bookline-ai/bookline/graph"
)

// runAgent executes one reasoning step against the thread state: it decodes
// the full transcript, streams content fragments to the caller (tool
// activity stays filtered), and returns the terminal outcome plus the run's
// new transcript row.
func runAgent(ctx context.Context, state graph.State, agent *bookline.Agent, input string, deps any) (any, []byte, error) {
	rows, _ := state[KeyMessages].([][]byte)
	history, err := bookline.DecodeHistory(rows)
	if err != nil {
		return nil, nil, err
	}
	var (
		output any
		row    []byte
		runErr error
	)
	for event, err := range agent.Stream(ctx, &bookline.Request{Input: input, History: history, Deps: deps}) {
		if err != nil {
			runErr = err
			break
		}
		switch {
		case event.Content != "":
			graph.Write(ctx, event.Content)
		case event.Result != nil:
			output = event.Result.Output
			row = event.Result.NewMessages
		}
	}
	if runErr != nil {
		return nil, nil, runErr
	}
	return output, row, nil
}

// transcriptUpdate wraps a run's new row as a partial state update.
func transcriptUpdate(row []byte) [][]byte {
	if row == nil {
		return nil
	}
	return [][]byte{row}
}

// gatherDateNode asks the date-gathering step to extract a desired date
// range from the latest user text. Whatever the outcome, structured range or
// clarification text, it lands in user_requirements; routing decides what
// counts.
func gatherDateNode(agent *bookline.Agent) graph.Handler {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		input, _ := state[KeyUserInput].(string)
		output, row, err := runAgent(ctx, state, agent, input, nil)
		if err != nil {
			return nil, err
		}
		return graph.State{
			KeyUserRequirements: output,
			KeyMessages:         transcriptUpdate(row),
		}, nil
	}
}

// checkAvailabilityNode asks the availability step to find an open slot for
// the gathered requirements. A non-structured outcome stays in the field as
// the "keep waiting" signal.
func checkAvailabilityNode(agent *bookline.Agent) graph.Handler {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		input, _ := state[KeyUserInput].(string)
		output, row, err := runAgent(ctx, state, agent, input, state[KeyUserRequirements])
		if err != nil {
			return nil, err
		}
		return graph.State{
			KeySelectedAppointment: output,
			KeyMessages:            transcriptUpdate(row),
		}, nil
	}
}

// gatherContactNode collects contact details for the selected slot. On
// complete information the outcome is the finalized MeetingDetails payload;
// anything else becomes the falsy sentinel, with the step's clarifying
// question already forwarded to the output stream.
func gatherContactNode(agent *bookline.Agent) graph.Handler {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		input, _ := state[KeyUserInput].(string)
		output, row, err := runAgent(ctx, state, agent, input, state[KeySelectedAppointment])
		if err != nil {
			return nil, err
		}
		update := graph.State{KeyMessages: transcriptUpdate(row)}
		if details, ok := output.(*MeetingDetails); ok {
			update[KeyMeetingDetails] = details
			update[KeyContactInformation] = &ContactInformation{
				FullName:    details.FullName,
				Email:       details.Email,
				PhoneNumber: details.PhoneNumber,
			}
		} else {
			update[KeyMeetingDetails] = false
		}
		return update, nil
	}
}

// finalizeMeetingNode books the meeting through the finalization step's
// calendar tool and forwards its confirmation or failure text. Terminal:
// it updates no routing field.
func finalizeMeetingNode(agent *bookline.Agent) graph.Handler {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		_, row, err := runAgent(ctx, state, agent, "", state[KeyMeetingDetails])
		if err != nil {
			return nil, err
		}
		return graph.State{KeyMessages: transcriptUpdate(row)}, nil
	}
}
