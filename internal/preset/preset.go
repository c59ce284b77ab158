// SPDX-License-Identifier: MIT
// Package preset stores parameter sets as YAML files and reloads them into a
// running store when the file changes on disk.
package preset

import (
	"fmt"
	"os"
	"path/filepath"

	applog "equalizer/internal/log"
	"equalizer/internal/params"
)

// Load reads the preset at path into store. On any error the store keeps
// its current values.
func Load(path string, store *params.Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preset: %w", err)
	}
	if err := store.UnmarshalState(data); err != nil {
		return fmt.Errorf("preset %s: %w", path, err)
	}
	applog.Infof("Preset: Loaded %s", path)
	return nil
}

// Save writes the current values of store to path. The file is written next
// to its destination and renamed into place so readers never see a partial
// preset.
func Save(path string, store *params.Store) error {
	data, err := store.MarshalState()
	if err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".preset-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create preset: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	applog.Infof("Preset: Saved %s", path)
	return nil
}
