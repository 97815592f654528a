// Package statusserver exposes a publication's progress events over
// Server-Sent Events so a local UI (or integration test) can watch a
// publication run without polling.
package statusserver

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/Kavex/Third3D-uploader/internal/orchestrator"
)

// eventPayload is the JSON shape pushed down each SSE stream.
type eventPayload struct {
	Kind           string `json:"kind"`
	Platform       string `json:"platform,omitempty"`
	Part           int    `json:"part,omitempty"`
	TotalParts     int    `json:"totalParts,omitempty"`
	PlatformIndex  int    `json:"platformIndex,omitempty"`
	TotalPlatforms int    `json:"totalPlatforms,omitempty"`
	Error          string `json:"error,omitempty"`
}

var eventKindNames = map[orchestrator.EventKind]string{
	orchestrator.EventInit:      "init",
	orchestrator.EventThumbnail: "thumbnail",
	orchestrator.EventWaiting:   "waiting",
	orchestrator.EventBundle:    "bundle",
	orchestrator.EventCompleted: "completed",
	orchestrator.EventError:     "error",
}

func toPayload(ev orchestrator.Event) eventPayload {
	p := eventPayload{
		Kind:           eventKindNames[ev.Kind],
		Platform:       ev.Platform,
		Part:           ev.Part,
		TotalParts:     ev.TotalParts,
		PlatformIndex:  ev.PlatformIndex,
		TotalPlatforms: ev.TotalPlatforms,
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}

// subscriber is one SSE client's delivery channel.
type subscriber chan eventPayload

// hub fans out one publication's events to every subscriber currently
// watching it, and remembers the history so a client that connects
// mid-publication still sees everything emitted so far.
type hub struct {
	mu          sync.Mutex
	history     map[string][]eventPayload
	subscribers map[string]map[subscriber]struct{}
}

func newHub() *hub {
	return &hub{
		history:     make(map[string][]eventPayload),
		subscribers: make(map[string]map[subscriber]struct{}),
	}
}

// NewPublicationID mints a fresh correlation id for a publication.
func NewPublicationID() string {
	return uuid.NewString()
}

func (h *hub) publish(id string, ev orchestrator.Event) {
	payload := toPayload(ev)

	h.mu.Lock()
	h.history[id] = append(h.history[id], payload)
	subs := make([]subscriber, 0, len(h.subscribers[id]))
	for sub := range h.subscribers[id] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// subscribe registers a new subscriber for id, replaying any history
// already recorded, and returns an unsubscribe func.
func (h *hub) subscribe(id string) (subscriber, []eventPayload, func()) {
	sub := make(subscriber, 32)

	h.mu.Lock()
	backlog := append([]eventPayload(nil), h.history[id]...)
	if h.subscribers[id] == nil {
		h.subscribers[id] = make(map[subscriber]struct{})
	}
	h.subscribers[id][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers[id], sub)
		h.mu.Unlock()
	}
	return sub, backlog, cancel
}

// forward drains sink and republishes every event under id, returning
// once sink is closed. Call it in its own goroutine per publication.
func (h *hub) forward(id string, sink <-chan orchestrator.Event) {
	for ev := range sink {
		h.publish(id, ev)
	}
}

func encodeSSE(p eventPayload) ([]byte, error) {
	return json.Marshal(p)
}
