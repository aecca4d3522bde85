package relay

import "errors"

var (
	// ErrUnknownRecipient is returned when an envelope targets a device
	// that does not exist.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrAlreadySubscribed is returned when a second session tries to
	// subscribe to an address that already has a live subscription.
	ErrAlreadySubscribed = errors.New("address already subscribed")
)
