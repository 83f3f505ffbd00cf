// Package remotedebug relays run events to a remote debugger over socket.io.
package remotedebug

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event every relayed message is sent under.
const EventName = "processEvent"

// Message is the payload of one relayed event.
type Message struct {
	Type event.Kind     `json:"type"`
	Data map[string]any `json:"data"`
}

// Sender delivers one named socket.io message.
type Sender interface {
	Send(name string, payload any)
}

// Relay is an event listener forwarding filtered events to a Sender.
type Relay struct {
	out    Sender
	filter Filter
	logger *slog.Logger
	sent   atomic.Int64
}

// NewRelay creates a relay. logger may be nil.
func NewRelay(out Sender, filter Filter, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Relay{out: out, filter: filter, logger: logger}
}

// Record forwards ev when the filter allows it. It has the event.Listener
// signature.
func (r *Relay) Record(ev event.Event) {
	if !r.filter.Allows(ev) {
		return
	}
	msg, err := NewMessage(ev)
	if err != nil {
		r.logger.Warn("Dropping event for remote debugger.", "event", ev.Kind, "error", err)
		return
	}
	r.out.Send(EventName, msg)
	r.sent.Add(1)
}

// Sent returns the number of forwarded events.
func (r *Relay) Sent() int64 { return r.sent.Load() }

// NewMessage encodes ev as a debugger message.
func NewMessage(ev event.Event) (Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s event: %w", ev.Kind, err)
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return Message{}, fmt.Errorf("encoding %s event: %w", ev.Kind, err)
	}
	delete(data, "type")
	return Message{Type: ev.Kind, Data: data}, nil
}

// DialOptions tunes Dial.
type DialOptions struct {
	Namespace          string
	InsecureSkipVerify bool
}

// Conn is a connected socket.io client.
type Conn struct {
	io *socket.Socket
}

// Dial connects to the socket.io server at rawURL over websocket. It blocks
// until the connection is established, refused, or ctx ends.
func Dial(ctx context.Context, rawURL string, o DialOptions) (*Conn, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("remote debugger URL %q needs a scheme and host", rawURL)
	}

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	opts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := o.Namespace
	if namespace == "" {
		namespace = "/"
	}
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})
	io.Connect()

	select {
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out while waiting for remote debugger connection: %w", ctx.Err())
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("connecting to remote debugger: %w", err)
		}
	}
	logger.Info("🔌 Connected to remote debugger", "namespace", namespace, "sid", io.Id())
	return &Conn{io: io}, nil
}

// Send emits payload under name.
func (c *Conn) Send(name string, payload any) {
	c.io.Emit(name, payload)
}

// Close disconnects the client.
func (c *Conn) Close() {
	c.io.Disconnect()
}
