package lcu

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// EventType is the opcode of a WAMP frame sent by the client
type EventType int

const (
	EventTypeSubscribe   EventType = 5
	EventTypeUnsubscribe EventType = 6
	EventTypeEvent       EventType = 8
)

const champSelectEvent = "OnJsonApiEvent_lol-champ-select_v1_session"

// SessionHandler receives champ select updates. session is nil when champ
// select ends.
type SessionHandler func(session *ChampSelectSession)

// Watcher streams champ select events from the client
type Watcher struct {
	url        string
	authHeader string
	dialer     websocket.Dialer
	handler    SessionHandler
}

// NewWatcher creates a watcher for the endpoint
func NewWatcher(ep *Endpoint, handler SessionHandler) *Watcher {
	return &Watcher{
		url:        ep.WebSocketURL(),
		authHeader: ep.AuthHeader(),
		dialer: websocket.Dialer{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
		handler: handler,
	}
}

// Run connects, subscribes to champ select and dispatches events until the
// connection drops or ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", w.authHeader)

	conn, _, err := w.dialer.DialContext(ctx, w.url, header)
	if err != nil {
		return fmt.Errorf("failed to connect to LCU WebSocket: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON([]interface{}{EventTypeSubscribe, champSelectEvent}); err != nil {
		return fmt.Errorf("failed to subscribe to champ select: %w", err)
	}
	log.Printf("[Watch] Subscribed to champ select")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("LCU WebSocket closed: %w", err)
		}
		w.handleMessage(message)
	}
}

func (w *Watcher) handleMessage(data []byte) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) < 3 {
		return
	}

	var eventType EventType
	if err := json.Unmarshal(raw[0], &eventType); err != nil || eventType != EventTypeEvent {
		return
	}

	var eventName string
	if err := json.Unmarshal(raw[1], &eventName); err != nil || eventName != champSelectEvent {
		return
	}

	var event struct {
		EventType string          `json:"eventType"`
		URI       string          `json:"uri"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw[2], &event); err != nil {
		return
	}

	switch event.EventType {
	case "Create", "Update":
		var session ChampSelectSession
		if err := json.Unmarshal(event.Data, &session); err != nil {
			log.Printf("[Watch] Failed to parse session: %v", err)
			return
		}
		w.handler(&session)
	case "Delete":
		w.handler(nil)
	}
}
