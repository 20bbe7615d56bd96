package vaultsandbox

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInboxNotFound is returned when the gateway does not know the
	// inbox address.
	ErrInboxNotFound = errors.New("vaultsandbox: inbox not found")

	// ErrEmailNotFound is returned when the gateway does not know the
	// email id.
	ErrEmailNotFound = errors.New("vaultsandbox: email not found")

	// ErrInboxDisposed is returned by every operation on a disposed
	// inbox.
	ErrInboxDisposed = errors.New("vaultsandbox: inbox disposed")

	// ErrDecryptionFailed is returned when a payload cannot be verified
	// or decrypted, or its decrypted JSON does not match the expected
	// shape. It is never retried automatically: the same payload would
	// fail the same way.
	ErrDecryptionFailed = errors.New("vaultsandbox: decryption failed")

	// ErrWaitTimeout is matched (via errors.Is) by the timeout error of
	// WaitForEmail and WaitForEmailCount.
	ErrWaitTimeout = errors.New("vaultsandbox: wait timed out")
)

// WaitTimeoutError reports that a wait operation exceeded its configured
// timeout. It matches ErrWaitTimeout.
type WaitTimeoutError struct {
	Timeout time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("vaultsandbox: no matching email within %s", e.Timeout)
}

func (e *WaitTimeoutError) Is(target error) bool {
	return target == ErrWaitTimeout
}

// decodeError wraps a failure cause under ErrDecryptionFailed.
func decodeError(cause error) error {
	return fmt.Errorf("%w: %v", ErrDecryptionFailed, cause)
}
