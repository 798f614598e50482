// Package orchestration records the outbound calls made during a sync cycle.
//
// Each stage returns the Trail of requests it made; the orchestrator
// concatenates them in stage order. A Trail is a plain value and is never
// held in package-level state.
package orchestration

import (
	"net/http"
	"net/url"
	"time"
)

// Request captures the outbound side of an orchestration.
type Request struct {
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	Querystring string    `json:"querystring"`
	Body        string    `json:"body,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Response captures what the remote returned.
type Response struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Orchestration is one request/response exchange with an upstream system.
type Orchestration struct {
	Name     string   `json:"name"`
	Request  Request  `json:"request"`
	Response Response `json:"response"`
}

// Trail is an ordered list of orchestrations.
type Trail []Orchestration

// Append returns the trail with o added at the end.
func (t Trail) Append(o Orchestration) Trail {
	return append(t, o)
}

// Concat returns a new trail holding t followed by every trail in others.
func (t Trail) Concat(others ...Trail) Trail {
	n := len(t)
	for _, o := range others {
		n += len(o)
	}
	out := make(Trail, 0, n)
	out = append(out, t...)
	for _, o := range others {
		out = append(out, o...)
	}
	return out
}

// Len returns the number of orchestrations in the trail.
func (t Trail) Len() int {
	return len(t)
}

// Build assembles an orchestration from an executed request. statusCode and
// respBody describe the response; header may be nil when the call failed
// before a response was received.
func Build(name string, started time.Time, method, rawURL, reqBody string, statusCode int, header http.Header, respBody string) Orchestration {
	path, query := rawURL, ""
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
		query = u.RawQuery
	}
	return Orchestration{
		Name: name,
		Request: Request{
			Method:      method,
			Path:        path,
			Querystring: query,
			Body:        reqBody,
			Timestamp:   started,
		},
		Response: Response{
			Status:    statusCode,
			Headers:   flattenHeader(header),
			Body:      respBody,
			Timestamp: time.Now(),
		},
	}
}

func flattenHeader(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
