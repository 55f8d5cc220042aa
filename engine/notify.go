package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Notification kinds published to the host.
const (
	NotifyWelcome     = "welcome"
	NotifyIdle        = "idle_progress"
	NotifyEvolution   = "evolution_ready"
	NotifyEncounter   = "encounter"
	NotifyLoadWarning = "load_warning"
	NotifySaveFailed  = "save_failed"
)

// Notification is a message for the display layer. The engine only publishes
// it; how it is shown is up to the subscriber.
type Notification struct {
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	CompanionID string    `json:"companion_id,omitempty"`
	Species     string    `json:"species,omitempty"`
	Zone        string    `json:"zone,omitempty"`
	Minutes     int64     `json:"minutes,omitempty"`
	Currency    int64     `json:"currency,omitempty"`
	At          time.Time `json:"at"`
}

// publish sends every notification on the configured channel. Failures are
// logged and otherwise ignored.
func (e *Engine) publish(ctx context.Context, notes []Notification) {
	if e.pubsub == nil || len(notes) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, n := range notes {
		payload, err := json.Marshal(n)
		if err != nil {
			e.logger.Warn("notification not encodable", zap.String("kind", n.Kind), zap.Error(err))
			continue
		}
		if err := e.pubsub.Publish(ctx, e.cfg.NotifyChannel, string(payload)); err != nil {
			e.logger.Warn("notification publish failed", zap.String("kind", n.Kind), zap.Error(err))
		}
	}
}
