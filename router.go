package doctalk

import (
	"log/slog"
	"sync"

	"github.com/doctalk/doctalk-go-sdk/wire"
)

// BinaryEvent is the reserved listener key for raw (non-JSON) frames.
const BinaryEvent = "binary"

// Handler consumes the data payload of one dispatched event. For JSON
// events the slice holds the envelope's raw data; for BinaryEvent it holds
// the frame bytes exactly as received.
type Handler func(data []byte)

// Router demultiplexes inbound frames by event name. Each name maps to at
// most one handler; subscribing again replaces the previous handler.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Subscribe binds h to event, silently replacing any previous handler.
func (r *Router) Subscribe(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = h
}

// Unsubscribe removes the handler for event. Dispatch for that name becomes
// a no-op until re-subscribed.
func (r *Router) Unsubscribe(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

// Dispatch routes one inbound frame. Text frames that fail to parse are
// logged and dropped; events with no handler are dropped silently. The
// connection is never affected by a bad frame.
func (r *Router) Dispatch(binary bool, payload []byte) {
	if binary {
		if h := r.handler(BinaryEvent); h != nil {
			h(payload)
		}
		return
	}

	env, err := wire.Decode(payload)
	if err != nil {
		slog.Debug("bad frame", "error", err)
		return
	}
	if h := r.handler(env.Event); h != nil {
		h(env.Data)
	}
}

func (r *Router) handler(event string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[event]
}
