// Package channels holds small generic helpers for handing values between
// goroutines that must never block each other.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrChannelFull   = errors.New("channel full")
)
