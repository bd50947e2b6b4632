package notify

import "context"

// Notifier publishes user-facing notifications (new best score, previous
// score kept). The abstraction allows swapping the log-backed
// implementation for a real push/email channel without refactoring.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}
