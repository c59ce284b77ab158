// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	applog "equalizer/internal/log"
)

// HeaderSize is the number of bytes before the first spectrum value.
const HeaderSize = 4 + 8 + 2

// DefaultInterval is used when NewUDPPublisher gets a non-positive interval.
const DefaultInterval = 33 * time.Millisecond

// SpectrumProvider hands out the newest decibel spectrum of a channel.
// analyzer.Analyzer implements it.
type SpectrumProvider interface {
	LatestSpectrum(ch int, dst []float32) ([]float32, bool)
}

// UDPPublisher periodically fetches the newest spectrum frame, packs it into
// a binary packet and sends it with a UDPSender. It runs in a separate
// goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	source   SpectrumProvider
	channel  int
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32

	// Reused on every tick.
	spectrum []float32
	packet   []byte
}

// NewUDPPublisher creates a publisher sending channel ch (0 left, 1 right)
// of source every interval.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, source SpectrumProvider, ch int) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: spectrum source cannot be nil")
	}
	if ch < 0 || ch > 1 {
		return nil, fmt.Errorf("UDPPublisher: channel must be 0 or 1, got %d", ch)
	}
	if interval <= 0 {
		interval = DefaultInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Channel: %d)", interval, ch)

	return &UDPPublisher{
		sender:   sender,
		source:   source,
		channel:  ch,
		interval: interval,
	}, nil
}

// Start begins the periodic publishing process. Subsequent calls are no-ops
// while running.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Captured so the goroutine never reads p.ticker or p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Safe to call multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Value Count       | uint16         | 2            | Number of floats (N)    |
| Levels            | []float32      | N * 4        | Spectrum in dB per bin  |
+-----------------------------------------------------------------------------+
*/

// publish sends the newest spectrum, if there is one.
func (p *UDPPublisher) publish() {
	var ok bool
	p.spectrum, ok = p.source.LatestSpectrum(p.channel, p.spectrum)
	if !ok {
		return
	}

	p.sequenceNum++
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, time.Now().UnixNano(), p.spectrum)

	if err := p.sender.Send(p.packet); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
	}
}

// AppendPacket appends one encoded packet to dst. Spectra longer than
// math.MaxUint16 values are truncated.
func AppendPacket(dst []byte, seq uint32, timestamp int64, levels []float32) []byte {
	if len(levels) > math.MaxUint16 {
		levels = levels[:math.MaxUint16]
	}
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(levels)))
	for _, v := range levels {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// DecodePacket is the inverse of AppendPacket. levels reuses dst.
func DecodePacket(packet []byte, dst []float32) (seq uint32, timestamp int64, levels []float32, err error) {
	if len(packet) < HeaderSize {
		return 0, 0, dst[:0], fmt.Errorf("packet too short: %d bytes", len(packet))
	}
	seq = binary.BigEndian.Uint32(packet[0:4])
	timestamp = int64(binary.BigEndian.Uint64(packet[4:12]))
	n := int(binary.BigEndian.Uint16(packet[12:14]))
	if len(packet) != HeaderSize+4*n {
		return 0, 0, dst[:0], fmt.Errorf("packet length %d does not match %d values", len(packet), n)
	}
	levels = dst[:0]
	for i := range n {
		off := HeaderSize + 4*i
		levels = append(levels, math.Float32frombits(binary.BigEndian.Uint32(packet[off:off+4])))
	}
	return seq, timestamp, levels, nil
}

// Close stops the publisher and closes its sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
