package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/projectgraph/internal/ctxlog"
)

// DefaultSocketIOEvent is the event name events are emitted under.
const DefaultSocketIOEvent = "build_event"

// SocketIOConfig configures a SocketIOSink.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	EventName          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIOSink streams events to a socket.io server.
type SocketIOSink struct {
	client    *socket.Socket
	eventName string
}

// DialSocketIO connects to the server and waits for the connection to be
// acknowledged.
func DialSocketIO(ctx context.Context, cfg SocketIOConfig) (*SocketIOSink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("events URL %q must include a scheme and a host", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	eventName := cfg.EventName
	if eventName == "" {
		eventName = DefaultSocketIOEvent
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Event stream connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Connecting event stream.")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIOSink{client: io, eventName: eventName}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Publish implements Sink.
func (s *SocketIOSink) Publish(ctx context.Context, e Event) {
	if !s.client.Connected() {
		ctxlog.FromContext(ctx).Warn("Event stream is not connected; dropping event.", "type", string(e.Type))
		return
	}
	s.client.Emit(s.eventName, payload(e))
}

// Close implements Sink.
func (s *SocketIOSink) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Closing event stream.", "sid", s.client.Id())
	s.client.Disconnect()
	return nil
}

func payload(e Event) map[string]any {
	out := map[string]any{
		"id":       e.ID,
		"build_id": e.BuildID,
		"type":     string(e.Type),
		"time":     e.Time.UTC().Format(time.RFC3339Nano),
	}
	if e.Project != "" {
		out["project"] = e.Project
	}
	if len(e.GlobalProperties) > 0 {
		props := make(map[string]any, len(e.GlobalProperties))
		for k, v := range e.GlobalProperties {
			props[k] = v
		}
		out["global_properties"] = props
	}
	if e.Message != "" {
		out["message"] = e.Message
	}
	return out
}
