package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTP carries a phone verification code.
	KindOTP = "otp"
	// KindAccountCreated announces a freshly opened account.
	KindAccountCreated = "account_created"
	// KindAccountActivated confirms an activation.
	KindAccountActivated = "account_activated"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
// Bodies are not logged since they may carry codes.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message metadata to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "bytes", len(message.Body))
	return nil
}

// Recorder keeps sent messages in memory. Useful for tests.
type Recorder struct {
	Messages []Message
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.Messages = append(r.Messages, message)
	return nil
}

// Last returns the most recent message of the given kind.
func (r *Recorder) Last(kind string) (Message, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Kind == kind {
			return r.Messages[i], true
		}
	}
	return Message{}, false
}
