// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync/atomic"

	applog "equalizer/internal/log"
)

// LoggingTransport implements the Transport interface by logging a one-line
// summary of every message at debug level.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs data. Values implementing fmt.Stringer are logged through
// String, anything else by type.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if s, ok := data.(fmt.Stringer); ok {
		applog.Debugf("LogTransport: #%d %s", n, s)
		return nil
	}
	applog.Debugf("LogTransport: #%d %T", n, data)
	return nil
}

// Sent returns the number of messages logged so far.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close logs the total and returns nil.
func (lt *LoggingTransport) Close() error {
	applog.Infof("LogTransport: Closed after %d messages", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
