//go:build !linux

package notify

// New returns a no-op notifier: desktop notifications need the Linux session bus.
func New(...Option) (Notifier, error) {
	return stubNotifier{}, nil
}
