// Package notify forwards alert events to external channels.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/event"
)

// Notification is what every channel receives.
type Notification struct {
	EventID    string             `json:"event_id"`
	EventType  string             `json:"event_type"`
	OccurredAt time.Time          `json:"occurred_at"`
	Summary    string             `json:"summary"`
	Alert      event.AlertPayload `json:"alert"`
}

// Notifier delivers a notification to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nt.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// AlertConsumer is an event bus handler that forwards alert events.
type AlertConsumer struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewAlertConsumer(n Notifier, logger *zap.Logger) *AlertConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertConsumer{notifier: n, logger: logger.Named("notify")}
}

func (c *AlertConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.TypeAlertRaised && evt.EventType != event.TypeAlertResolved {
		return nil
	}
	var p event.AlertPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("decoding alert payload: %w", err)
	}
	n := Notification{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt,
		Summary:    evt.Summary,
		Alert:      p,
	}
	if err := c.notifier.Notify(ctx, n); err != nil {
		return err
	}
	c.logger.Debug("alert forwarded",
		zap.String("notifier", c.notifier.Name()),
		zap.String("alert_id", p.AlertID),
		zap.String("event_type", evt.EventType))
	return nil
}
