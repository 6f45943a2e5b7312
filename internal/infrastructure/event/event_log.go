package event

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/newsdesk/backend/internal/domain/shared"
)

// EventLogHandler appends every event it receives to w as one JSON line.
// Subscribe it without event types to record all of them.
type EventLogHandler struct {
	mu         sync.Mutex
	w          io.Writer
	serializer *EventSerializer
}

// NewEventLogHandler creates a handler writing to w
func NewEventLogHandler(w io.Writer, serializer *EventSerializer) *EventLogHandler {
	return &EventLogHandler{w: w, serializer: serializer}
}

// EventTypes returns nil so the handler receives every event
func (h *EventLogHandler) EventTypes() []string {
	return nil
}

// Handle writes the event as a single line
func (h *EventLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	data, err := h.serializer.Serialize(event)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", event.EventType(), err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	return nil
}

// ReadEventLog decodes an event log written by EventLogHandler.
// Blank lines are skipped; an unknown event type stops the read.
func ReadEventLog(r io.Reader, serializer *EventSerializer) ([]shared.DomainEvent, error) {
	var events []shared.DomainEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return events, fmt.Errorf("line %d: %w", line, err)
		}
		event, err := serializer.Deserialize(head.Type, data)
		if err != nil {
			return events, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

var _ shared.EventHandler = (*EventLogHandler)(nil)
