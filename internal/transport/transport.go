// SPDX-License-Identifier: MIT
// Package transport delivers analyzer frames to the outside world.
package transport

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use and must not block the
// caller for long; slow consumers drop data instead.
type Transport interface {
	Send(data any) error
	Close() error
}
