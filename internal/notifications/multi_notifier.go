package notifications

// MultiNotifier fans an event out to every configured sink. All sinks
// are attempted even when one fails; the first error is returned.
type MultiNotifier struct {
	sinks []Notifier
}

func NewMultiNotifier(sinks ...Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks}
}

func (m *MultiNotifier) Notify(event Event) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Notify(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
