package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/optics-run/optics/pkg/events"
	"github.com/optics-run/optics/pkg/session"
)

const sseHeartbeatInterval = 15 * time.Second

// eventsHandler handles GET /v1/sessions/{id}/events, a Server-Sent
// Events stream of a session's lifecycle Events, adapted from the
// teacher's WebSocket ConnectionManager.HandleConnection/Broadcast
// pattern: one per-connection subscriber feeds a buffered channel that a
// dedicated write loop drains, so a slow client never blocks the bus's
// dispatch goroutine.
func (s *Server) eventsHandler(c *echo.Context) error {
	sess, err := s.sessionFromPath(c)
	if err != nil {
		return mapError(err)
	}

	resp := c.Response()
	resp.Header().Set("Content-Type", "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	ch := make(chan events.Event, 64)
	subID := uuid.New().String()
	sess.Bus.Subscribe(subID, events.SubscriberFunc(func(ev events.Event) {
		select {
		case ch <- ev:
		default:
			// Slow consumer: drop rather than block the bus's single
			// dispatch goroutine (mirrors the bus's own drop-oldest policy).
		}
	}))
	defer sess.Bus.Unsubscribe(subID)

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			if err := writeSSEFrame(resp, ev); err != nil {
				return nil
			}
			resp.Flush()
		case <-ticker.C:
			if err := writeSSEFrame(resp, HeartbeatEvent{ExecutionID: "heartbeat", Status: "HEARTBEAT"}); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// publishExecution publishes an ad hoc keyword invocation's lifecycle as
// an EntityExecution event, so a session's SSE stream reports /action
// and convenience-endpoint calls the same way it reports scheduler-driven
// keyword nodes.
func (s *Server) publishExecution(sess *session.Session, executionID, name, status, message string) {
	sess.Bus.Publish(events.Event{
		EntityType: events.EntityExecution,
		EntityID:   executionID,
		Name:       name,
		Status:     events.Status(status),
		Message:    message,
		Timestamp:  time.Now(),
	})
}
