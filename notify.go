package accounts

import "log"

// NotificationKind selects the template sent after registration.
type NotificationKind string

const (
	// NotifyWelcome is sent after every successful registration
	NotifyWelcome NotificationKind = "welcome"

	// NotifyCoupon is an optional promotion hook. The core never requires
	// it; dispatchers that don't run promotions can ignore the kind.
	NotifyCoupon NotificationKind = "coupon"
)

// Notifier is the post-registration notification hook. Implementations are
// invoked fire-and-forget: failures are logged by the caller and never
// affect the registration result.
type Notifier interface {
	Notify(email string, kind NotificationKind) error
}

// ConsoleNotifier is a development implementation that logs notifications
// instead of sending them.
type ConsoleNotifier struct{}

func (c *ConsoleNotifier) Notify(email string, kind NotificationKind) error {
	switch kind {
	case NotifyWelcome:
		log.Printf("\n=== EMAIL: Welcome ===")
		log.Printf("To: %s", email)
		log.Printf("Subject: Hi :)")
		log.Printf("======================\n")
	case NotifyCoupon:
		// promotion hook - nothing to send yet
	default:
		log.Printf("unknown notification kind %q for %s", kind, email)
	}
	return nil
}
