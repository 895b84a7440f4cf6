// Package notify fans an assessment out to chat and email channels.
package notify

import (
	"context"
	"log/slog"
	"time"

	"meraki-alert-receiver/internal/assessment"
	"meraki-alert-receiver/internal/meraki"
	"meraki-alert-receiver/internal/metrics"
)

// Message is everything a channel needs to render one alert notification.
type Message struct {
	Assessment assessment.Assessment
	Alert      meraki.AlertInfo
	Timestamp  time.Time
}

type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Delivery is the outcome of sending a message on one channel.
type Delivery struct {
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

type Dispatcher struct {
	notifiers []Notifier
}

func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Channels lists the configured channel names in dispatch order.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Dispatch sends msg on every channel. A failing channel is logged and
// does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) []Delivery {
	deliveries := make([]Delivery, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		delivery := Delivery{Channel: n.Name()}
		if err := n.Send(ctx, msg); err != nil {
			metrics.NotificationsTotal.WithLabelValues(n.Name(), "error").Inc()
			slog.Error("failed to send notification", "channel", n.Name(), "error", err)
			delivery.Error = err.Error()
		} else {
			metrics.NotificationsTotal.WithLabelValues(n.Name(), "success").Inc()
			slog.Info("notification sent", "channel", n.Name(), "alert_type", msg.Alert.AlertType)
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries
}
