package cloudsync

import "errors"

// Common errors for the cloudsync package.
var (
	// ErrNotConnected indicates an outbound send was attempted without an
	// active Cloud connection. The message is dropped, not queued.
	ErrNotConnected = errors.New("not connected to cloud")
	// ErrAlreadyStarted indicates Start was called on a running client.
	ErrAlreadyStarted = errors.New("client already started")
	// ErrMissingType indicates an envelope without the required type field.
	ErrMissingType = errors.New("envelope missing type")
)
