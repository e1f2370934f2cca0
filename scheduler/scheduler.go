package scheduler

import (
	"context"
	"errors"

	"github.com/bookline-ai/bookline"
	"github.com/bookline-ai/bookline/calendar"
	"github.com/bookline-ai/bookline/graph"
)

// ErrModelProviderRequired is returned when a conversation is built without a model.
var ErrModelProviderRequired = errors.New("scheduler: model provider is required")

// Option is an option for configuring the Conversation.
type Option func(*options)

type options struct {
	model       bookline.ModelProvider
	calendar    calendar.Service
	saver       graph.Checkpointer
	middlewares []graph.Middleware
}

// WithModel sets the model provider shared by all reasoning steps. The
// provider is constructed once by the caller and injected here; there is no
// process-wide default.
func WithModel(model bookline.ModelProvider) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithCalendar sets the calendar store. Defaults to an in-memory calendar.
func WithCalendar(service calendar.Service) Option {
	return func(o *options) {
		o.calendar = service
	}
}

// WithCheckpointer sets the checkpoint store. Defaults to an in-memory saver.
func WithCheckpointer(saver graph.Checkpointer) Option {
	return func(o *options) {
		o.saver = saver
	}
}

// WithMiddleware sets node middleware applied to every node.
func WithMiddleware(ms ...graph.Middleware) Option {
	return func(o *options) {
		o.middlewares = ms
	}
}

// Conversation is the appointment-scheduling dialogue, addressable by
// opaque thread ids. Threads are independent and may be driven concurrently.
type Conversation struct {
	executor *graph.Executor
}

// New assembles the conversation graph:
//
//	gather_date_range   -> verify date   -> check_availability | wait_for_message
//	check_availability  -> verify slot   -> gather_contact_info | wait_for_another_time
//	gather_contact_info -> verify contact-> finalize_meeting | wait_for_user_details
//	finalize_meeting    (finish)
//
// with each wait node resuming at the step it guards.
func New(opts ...Option) (*Conversation, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.model == nil {
		return nil, ErrModelProviderRequired
	}
	if o.calendar == nil {
		o.calendar = calendar.NewMemoryService()
	}

	gatherDate, err := newGatherDateAgent(o.model)
	if err != nil {
		return nil, err
	}
	availability, err := newAvailabilityAgent(o.model, o.calendar)
	if err != nil {
		return nil, err
	}
	contact, err := newContactAgent(o.model)
	if err != nil {
		return nil, err
	}
	finalize, err := newFinalizeAgent(o.model, o.calendar)
	if err != nil {
		return nil, err
	}

	g := graph.NewGraph(
		graph.WithReducer(KeyMessages, graph.AppendRows),
		graph.WithInputKey(KeyUserInput),
		graph.WithCheckpointer(o.saver),
		graph.WithMiddleware(o.middlewares...),
	)
	g.AddNode(NodeGatherDateRange, gatherDateNode(gatherDate))
	g.AddNode(NodeCheckAvailability, checkAvailabilityNode(availability))
	g.AddNode(NodeGatherContactInfo, gatherContactNode(contact))
	g.AddNode(NodeFinalizeMeeting, finalizeMeetingNode(finalize))

	g.AddRouter(NodeGatherDateRange, verifyDateGathered, NodeCheckAvailability, NodeWaitForMessage)
	g.AddRouter(NodeCheckAvailability, verifySlotSelected, NodeGatherContactInfo, NodeWaitForAnotherTime)
	g.AddRouter(NodeGatherContactInfo, verifyContactComplete, NodeFinalizeMeeting, NodeWaitForUserDetails)

	g.AddWaitNode(NodeWaitForMessage)
	g.AddEdge(NodeWaitForMessage, NodeGatherDateRange)
	g.AddWaitNode(NodeWaitForAnotherTime)
	g.AddEdge(NodeWaitForAnotherTime, NodeCheckAvailability)
	g.AddWaitNode(NodeWaitForUserDetails)
	g.AddEdge(NodeWaitForUserDetails, NodeGatherContactInfo)

	g.SetEntryPoint(NodeGatherDateRange)
	g.SetFinishPoint(NodeFinalizeMeeting)

	executor, err := g.Compile()
	if err != nil {
		return nil, err
	}
	return &Conversation{executor: executor}, nil
}

// Resume drives the thread with a new user message and returns the lazy
// sequence of output fragments. The sequence ends when the conversation
// either suspends awaiting the next message or completes the booking.
func (c *Conversation) Resume(ctx context.Context, threadID, userMessage string) bookline.Generator[string, error] {
	return c.executor.Run(ctx, threadID, userMessage)
}
