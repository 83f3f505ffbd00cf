// Package httpprovider defines the HTTP side-effect provider consumed by node
// kinds, and ships a net/http backed implementation of it.
package httpprovider

import (
	"context"
	"iter"
)

// Request is an outbound HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a fully read HTTP response.
type Response struct {
	OK         bool
	Status     int
	StatusText string
	Body       []byte
	Headers    map[string]string
}

// StreamEvent is one server-sent event.
type StreamEvent struct {
	Event string
	Data  string
	ID    string
}

// Provider performs HTTP requests on behalf of node executors.
//
// A provider that cannot stream reports SupportsStreaming() == false and
// returns runerr.ErrUnsupportedCapability from StreamEvents.
type Provider interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
	SupportsStreaming() bool
	StreamEvents(ctx context.Context, req Request) (iter.Seq2[StreamEvent, error], error)
}
