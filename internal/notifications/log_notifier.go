package notifications

import (
	"go.uber.org/zap"
)

// LogNotifier writes every event to the application log. It is the
// default sink when no broker is configured.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(event Event) error {
	n.log.Infow("notification",
		"event_id", event.ID,
		"type", string(event.Type),
		"recipients", event.Recipients,
		"payload", event.Payload,
	)
	return nil
}
