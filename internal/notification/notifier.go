// Package notification provides alert delivery to external channels
// (Telegram, webhooks) for screener and monitor events.
package notification

import (
	"context"
	"errors"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error

	// Name identifies the channel for logging and metrics.
	Name() string
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

func (n *LogNotifier) Name() string { return "log" }

// Multi fans an alert out to every configured channel. A failing channel
// does not block the others; Send returns the joined errors.
type Multi struct {
	channels []Notifier

	// Optional metrics hooks, keyed by channel name.
	OnSent  func(channel string)
	OnError func(channel string)
}

// NewMulti creates a fan-out notifier over the given channels.
func NewMulti(channels ...Notifier) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, alert); err != nil {
			log.Printf("[notify] %s send failed: %v", ch.Name(), err)
			if m.OnError != nil {
				m.OnError(ch.Name())
			}
			errs = append(errs, err)
			continue
		}
		if m.OnSent != nil {
			m.OnSent(ch.Name())
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Name() string { return "multi" }
