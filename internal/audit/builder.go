package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// EventBuilder provides a fluent API for constructing audit events from a request.
//
//	event := audit.NewEventBuilder(r).
//		WithAction(audit.ActionCatalogReload).
//		WithETags(before, after).
//		Success().
//		Build()
type EventBuilder struct {
	event Event
}

// NewEventBuilder fills request id and source from r.
func NewEventBuilder(r *http.Request) *EventBuilder {
	return &EventBuilder{
		event: Event{
			RequestID: middleware.GetReqID(r.Context()),
			Resource:  "catalog",
			Source: Source{
				IPAddress: r.RemoteAddr,
				UserAgent: r.UserAgent(),
			},
		},
	}
}

func (b *EventBuilder) WithAction(action string) *EventBuilder {
	b.event.Action = action
	return b
}

func (b *EventBuilder) WithResource(resource string) *EventBuilder {
	b.event.Resource = resource
	return b
}

func (b *EventBuilder) WithETags(before, after string) *EventBuilder {
	b.event.BeforeETag = before
	b.event.AfterETag = after
	return b
}

func (b *EventBuilder) Success() *EventBuilder {
	b.event.Status = StatusSuccess
	return b
}

// Failure marks the event failed and records err's message.
func (b *EventBuilder) Failure(err error) *EventBuilder {
	b.event.Status = StatusFailure
	if err != nil {
		b.event.ErrorMessage = err.Error()
	}
	return b
}

func (b *EventBuilder) Build() Event {
	return b.event
}
