package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docarchive/internal/event"
)

// EventsHeartbeat is how often an idle event stream sends a comment line.
const EventsHeartbeat = 15 * time.Second

// EventsHandler streams bus events to clients as server-sent events.
type EventsHandler struct {
	bus       event.Bus
	heartbeat time.Duration
}

func NewEventsHandler(bus event.Bus, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = EventsHeartbeat
	}
	return &EventsHandler{bus: bus, heartbeat: heartbeat}
}

// Stream sends every event, or only those for ?collection=name, until the
// client goes away.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported"))
		return
	}
	collection := r.URL.Query().Get("collection")

	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if collection != "" && !matchesCollection(ev, collection) {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func matchesCollection(ev event.Event, collection string) bool {
	payload, ok := ev.Payload.(event.DocumentsPayload)
	if !ok {
		return false
	}
	return payload.Collection == collection || payload.Archive == collection
}
