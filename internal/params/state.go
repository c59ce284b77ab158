// SPDX-License-Identifier: MIT
package params

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StateVersion is written into every serialised state.
const StateVersion = 1

// ErrInvalidState is returned when a state blob cannot be restored.
var ErrInvalidState = errors.New("invalid parameter state")

// State is the serialised form of a Store.
type State struct {
	Version    int                `yaml:"version"`
	Parameters map[string]float64 `yaml:"parameters"`
}

// Values returns a copy of every plain value keyed by identifier.
func (s *Store) Values() map[string]float64 {
	out := make(map[string]float64, len(s.params))
	for _, p := range s.params {
		out[p.ID] = p.Value()
	}
	return out
}

// Apply writes a set of plain values. Every entry is validated first; if
// any entry fails nothing is written. Parameters missing from values keep
// their current value.
func (s *Store) Apply(values map[string]float64) error {
	type pending struct {
		p *Parameter
		v float64
	}
	batch := make([]pending, 0, len(values))
	for id, raw := range values {
		p, err := s.Lookup(id)
		if err != nil {
			return err
		}
		v, err := p.Validate(raw)
		if err != nil {
			return err
		}
		batch = append(batch, pending{p, v})
	}
	for _, b := range batch {
		s.write(b.p, b.v)
	}
	return nil
}

// MarshalState serialises the store as YAML.
func (s *Store) MarshalState() ([]byte, error) {
	return yaml.Marshal(State{Version: StateVersion, Parameters: s.Values()})
}

// UnmarshalState restores a blob produced by MarshalState. On error the
// store is left untouched.
func (s *Store) UnmarshalState(data []byte) error {
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if st.Version != StateVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidState, st.Version)
	}
	if err := s.Apply(st.Parameters); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}
