package httpprovider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
	"golang.org/x/time/rate"
)

// Client is the default Provider, backed by net/http.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	streaming bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRateLimit throttles requests to perSecond with the given burst.
// A non-positive rate disables throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithoutStreaming makes the client declare no streaming capability.
func WithoutStreaming() Option {
	return func(cl *Client) { cl.streaming = false }
}

// NewClient creates a Client. Streaming is supported unless disabled.
func NewClient(opts ...Option) *Client {
	c := &Client{http: http.DefaultClient, streaming: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SupportsStreaming implements Provider.
func (c *Client) SupportsStreaming() bool { return c.streaming }

// Fetch implements Provider.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Making HTTP request", "method", req.Method, "url", req.URL)

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	logger.Debug("Received HTTP response", "status", resp.Status)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       body,
		Headers:    flattenHeaders(resp.Header),
	}, nil
}

// StreamEvents implements Provider. The returned sequence reads the response
// body lazily and closes it when iteration stops.
func (c *Client) StreamEvents(ctx context.Context, req Request) (iter.Seq2[StreamEvent, error], error) {
	if !c.streaming {
		return nil, runerr.Unsupported("http event streaming")
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	if _, ok := req.Headers["Accept"]; !ok {
		req.Headers["Accept"] = "text/event-stream"
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("stream request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return func(yield func(StreamEvent, error) bool) {
		defer resp.Body.Close()
		for ev, err := range ParseEvents(resp.Body) {
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}, nil
}

func (c *Client) do(ctx context.Context, req Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

// ParseEvents decodes a text/event-stream body.
func ParseEvents(r io.Reader) iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var (
			ev      StreamEvent
			data    []string
			pending bool
		)
		flush := func() bool {
			if !pending {
				return true
			}
			ev.Data = strings.Join(data, "\n")
			out := ev
			ev, data, pending = StreamEvent{}, nil, false
			return yield(out, nil)
		}

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if !flush() {
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				ev.Event = value
			case "data":
				data = append(data, value)
			case "id":
				ev.ID = value
			default:
				continue
			}
			pending = true
		}
		if err := scanner.Err(); err != nil {
			yield(StreamEvent{}, fmt.Errorf("reading event stream: %w", err))
			return
		}
		flush()
	}
}
