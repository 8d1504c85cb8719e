package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tjbridge/internal/bridge"
	"tjbridge/pkg/types"
)

const (
	streamBuffer      = 64
	heartbeatInterval = 15 * time.Second
)

// EventBroker is a bridge.EventPublisher that streams events to SSE
// clients. Publish never blocks: a full stream drops the event.
type EventBroker struct {
	mu   sync.Mutex
	subs map[*stream]struct{}
	done chan struct{}
	once sync.Once
}

type stream struct {
	ch        chan types.EventMessage
	placement string
}

// NewEventBroker returns an empty broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{subs: make(map[*stream]struct{}), done: make(chan struct{})}
}

func (b *EventBroker) Publish(e bridge.Event) {
	msg := types.EventMessage{Name: e.Name, Placement: e.Placement, OperationID: e.OperationID, Fields: e.Fields}
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if s.placement != "" && s.placement != e.Placement {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			sseDroppedTotal.Inc()
		}
	}
}

// Clients reports the number of open streams.
func (b *EventBroker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every open stream.
func (b *EventBroker) Close() { b.once.Do(func() { close(b.done) }) }

func (b *EventBroker) add(placement string) *stream {
	s := &stream{ch: make(chan types.EventMessage, streamBuffer), placement: placement}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	sseClients.Inc()
	return s
}

func (b *EventBroker) remove(s *stream) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
	sseClients.Dec()
}

// ServeHTTP streams events as `event: <name>` / `data: <json>` frames.
// ?placement= restricts the stream to one placement.
func (b *EventBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	s := b.add(r.URL.Query().Get("placement"))
	defer b.remove(s)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	fl.Flush()

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()
	for {
		select {
		case msg := <-s.ch:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Name, data); err != nil {
				return
			}
			fl.Flush()
		case <-hb.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		case <-r.Context().Done():
			return
		case <-serverBaseCtx.Done():
			return
		case <-b.done:
			return
		}
	}
}
