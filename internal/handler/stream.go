package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/event"
	"github.com/matthewbaird/fadem/internal/ledger"
)

const (
	streamBuffer       = 32
	streamWriteTimeout = 5 * time.Second
)

// StreamMessage is what alert stream clients receive. The first message on
// a connection is a "snapshot" of open alerts; "alert_raised" and
// "alert_resolved" follow as they happen.
type StreamMessage struct {
	Type       string              `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Alert      *event.AlertPayload `json:"alert,omitempty"`
	Alerts     []ledger.Alert      `json:"alerts,omitempty"`
}

// AlertStream fans alert events out to WebSocket subscribers. It is an
// event bus handler; slow subscribers miss messages rather than block the
// bus.
type AlertStream struct {
	snapshot func() []ledger.Alert
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[chan StreamMessage]struct{}
}

// NewAlertStream returns a stream whose snapshot messages come from
// snapshot.
func NewAlertStream(snapshot func() []ledger.Alert, logger *zap.Logger) *AlertStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertStream{
		snapshot: snapshot,
		logger:   logger.Named("alert_stream"),
		clients:  make(map[chan StreamMessage]struct{}),
	}
}

// HandleEvent broadcasts alert events.
func (s *AlertStream) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.TypeAlertRaised && evt.EventType != event.TypeAlertResolved {
		return nil
	}
	var p event.AlertPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return err
	}
	s.broadcast(StreamMessage{Type: evt.EventType, OccurredAt: evt.OccurredAt, Alert: &p})
	return nil
}

func (s *AlertStream) broadcast(msg StreamMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- msg:
		default:
			s.logger.Warn("subscriber lagging, message dropped", zap.String("type", msg.Type))
		}
	}
}

func (s *AlertStream) subscribe() chan StreamMessage {
	ch := make(chan StreamMessage, streamBuffer)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *AlertStream) unsubscribe(ch chan StreamMessage) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

// Subscribers reports how many connections are attached.
func (s *AlertStream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ServeHTTP upgrades to WebSocket and streams until the client goes away.
func (s *AlertStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// Clients only listen; CloseRead handles their control frames and
	// cancels ctx when they disconnect.
	ctx := conn.CloseRead(r.Context())

	snapshot := s.snapshot()
	if snapshot == nil {
		snapshot = []ledger.Alert{}
	}
	if err := s.write(ctx, conn, StreamMessage{Type: "snapshot", OccurredAt: time.Now().UTC(), Alerts: snapshot}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-ch:
			if err := s.write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

func (s *AlertStream) write(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		if websocket.CloseStatus(err) == -1 {
			s.logger.Debug("write failed", zap.Error(err))
		}
		return err
	}
	return nil
}
