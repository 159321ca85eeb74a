package notifications

import (
	"context"

	"github.com/teamnishkar/nishkar-backend/pkg/logger"
)

// Message is one rendered notification handed to a transport.
type Message struct {
	OrderID   string
	Recipient string
	From      string
	Subject   string
	Body      string
}

// Notifier delivers a rendered message over some transport. Implementations
// must be safe for concurrent use; the worker retries on error.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes the message to the structured log instead of an external
// channel. It is the default transport until a mail provider is wired in.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds the log-backed transport.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if n.logg == nil {
		return nil
	}
	lctx := n.logg.WithFields(n.logg.WithOrderID(ctx, msg.OrderID), map[string]any{
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
	})
	n.logg.Info(lctx, "notification dispatched")
	return nil
}
