// SPDX-License-Identifier: MIT
package params

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Listener is notified after a parameter changed. It runs on the goroutine
// that performed the write and must not block.
type Listener func(id string, value float64)

// Store is the parameter tree. Reads are lock-free; writes take a short
// mutex only to serialise listener notification.
type Store struct {
	params []*Parameter
	byID   map[string]int

	generation atomic.Uint64

	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

// NewStore returns a store holding the default layout.
func NewStore() *Store {
	ps := Layout()
	byID := make(map[string]int, len(ps))
	for i, p := range ps {
		byID[p.ID] = i
	}
	return &Store{
		params:    ps,
		byID:      byID,
		listeners: make(map[uint64]Listener),
	}
}

// Parameters returns the layout in host order. The slice must not be
// modified.
func (s *Store) Parameters() []*Parameter {
	return s.params
}

// Lookup returns the parameter with the given identifier.
func (s *Store) Lookup(id string) (*Parameter, error) {
	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	return s.params[i], nil
}

// Get returns the current plain value of a parameter.
func (s *Store) Get(id string) (float64, error) {
	p, err := s.Lookup(id)
	if err != nil {
		return 0, err
	}
	return p.Value(), nil
}

// Set validates and stores a plain value, then notifies listeners.
func (s *Store) Set(id string, value float64) error {
	p, err := s.Lookup(id)
	if err != nil {
		return err
	}
	v, err := p.Validate(value)
	if err != nil {
		return err
	}
	s.write(p, v)
	return nil
}

// SetNormalized stores a 0..1 host value.
func (s *Store) SetNormalized(id string, normalized float64) error {
	p, err := s.Lookup(id)
	if err != nil {
		return err
	}
	s.write(p, p.Denormalize(normalized))
	return nil
}

// Reset restores every parameter to its default.
func (s *Store) Reset() {
	for _, p := range s.params {
		s.write(p, p.Default)
	}
}

func (s *Store) write(p *Parameter, v float64) {
	p.store(v)
	s.generation.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		l(p.ID, v)
	}
}

// Generation increases on every write. Comparing two readings tells a
// poller whether anything changed in between.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Subscribe registers l for change notifications. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot reads every parameter into a ChainSettings. It performs only
// atomic loads and is safe on the audio goroutine.
func (s *Store) Snapshot() ChainSettings {
	ps := s.params
	return ChainSettings{
		LowCutFreq:      ps[idxLowCutFreq].Value(),
		HighCutFreq:     ps[idxHighCutFreq].Value(),
		PeakFreq:        ps[idxPeakFreq].Value(),
		PeakGainDb:      ps[idxPeakGain].Value(),
		PeakQuality:     ps[idxPeakQuality].Value(),
		LowCutSlope:     Slope(int(ps[idxLowCutSlope].Value())),
		HighCutSlope:    Slope(int(ps[idxHighCutSlope].Value())),
		LowCutBypassed:  ps[idxLowCutBypassed].Value() > 0.5,
		PeakBypassed:    ps[idxPeakBypassed].Value() > 0.5,
		HighCutBypassed: ps[idxHighCutBypassed].Value() > 0.5,
		AnalyzerEnabled: ps[idxAnalyzerEnabled].Value() > 0.5,
	}
}
