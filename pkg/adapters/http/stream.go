package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/joule/pkg/domain"
)

// Event is one server-sent event.
type Event struct {
	Type domain.EventType
	Data string
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Event]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Event]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Subscribers returns the number of open streams of a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

func (sm *StreamManager) Broadcast(sessionID string, ev Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- ev:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID, "type", ev.Type)
		}
	}
}

func (sm *StreamManager) publish(sessionID string, t domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("SSE: Failed to encode event", "type", t, "err", err)
		return
	}
	sm.Broadcast(sessionID, Event{Type: t, Data: string(data)})
}

// Hooks returns lifecycle hooks that fan events out to subscribers of the session.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(_ context.Context, e *domain.TurnEvent) {
			sm.publish(e.SessionID, e.Type, e)
		},
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			sm.publish(e.SessionID, e.Type, turnEnd{TurnEvent: e, Failed: e.Err != nil})
		},
		OnWorkflowChange: func(_ context.Context, e *domain.WorkflowEvent) {
			sm.publish(e.SessionID, e.Type, e)
		},
		OnValidation: func(_ context.Context, e *domain.ValidationEvent) {
			sm.publish(e.SessionID, e.Type, e)
		},
		OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
			sm.publish(e.SessionID, e.Type, e)
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			sm.publish(e.SessionID, e.Type, e)
		},
	}
}

type turnEnd struct {
	*domain.TurnEvent
	Failed bool `json:"failed"`
}

// SubscribeEvents handles the GET /api/sessions/{sessionId}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, sessionId string, params SubscribeEventsParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	keep := map[domain.EventType]bool{}
	if params.Types != nil {
		for _, t := range strings.Split(*params.Types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				keep[domain.EventType(t)] = true
			}
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.Logger.Info("SSE: Subscribing to session events", "session_id", sessionId)
	ch, cancel := s.Streams.Subscribe(sessionId)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "session_id", sessionId)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if len(keep) > 0 && !keep[ev.Type] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}
