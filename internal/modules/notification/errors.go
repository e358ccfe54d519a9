package notification

import "errors"

// ErrNotificationFailure marks a delivery that did not reach the mail
// transport. It is logged and retried, never shown to API callers.
var ErrNotificationFailure = errors.New("notification failure")
