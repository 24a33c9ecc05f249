// Package config loads and live-reloads the allocator's tunables from a
// JSON file on disk: the mapping threshold and a schema version gate. It
// mirrors the project-config pattern used elsewhere in this codebase for
// tool configuration, adapted to the allocator's much smaller tunable set.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	semver "github.com/Masterminds/semver/v3"

	"github.com/blockheap/blockheap/internal/allocator"
)

// schemaConstraint is the range of config schema versions this build
// understands. Bumping SchemaVersion in a config file past this range is
// treated as a validation failure rather than silently misapplied.
const schemaConstraint = ">= 1.0.0, < 2.0.0"

// Tunables is the on-disk shape of the allocator's rebindable knobs.
type Tunables struct {
	// SchemaVersion gates forward/backward compatibility via semver.
	SchemaVersion string `json:"schema_version"`

	// MapThresholdBytes is the threshold Apply installs in the allocator. It
	// must be > 0: a zero or absent value fails validation.
	MapThresholdBytes uintptr `json:"map_threshold_bytes,omitempty"`
}

// Default returns the tunables a fresh install ships with.
func Default() *Tunables {
	return &Tunables{
		SchemaVersion:     "1.0.0",
		MapThresholdBytes: allocator.DefaultMapThreshold,
	}
}

// Load reads and validates a tunables file. A missing file is not an
// error: it yields Default().
func Load(path string) (*Tunables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read config: %w", err)
	}

	var t Tunables
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

// validate checks the schema version against schemaConstraint and rejects
// a zero (or absent) threshold, which would route every allocation through
// anonymous mapping.
func (t *Tunables) validate() error {
	if t.SchemaVersion == "" {
		return fmt.Errorf("config: schema_version is required")
	}

	v, err := semver.NewVersion(t.SchemaVersion)
	if err != nil {
		return fmt.Errorf("config: invalid schema_version %q: %w", t.SchemaVersion, err)
	}

	c, err := semver.NewConstraint(schemaConstraint)
	if err != nil {
		return fmt.Errorf("config: invalid internal constraint: %w", err)
	}

	if !c.Check(v) {
		return fmt.Errorf("config: schema_version %s does not satisfy %s", t.SchemaVersion, schemaConstraint)
	}

	if t.MapThresholdBytes == 0 {
		return fmt.Errorf("config: map_threshold_bytes must be > 0")
	}

	return nil
}

// Apply rebinds the allocator's map threshold to t's value.
func (t *Tunables) Apply() {
	allocator.SetMapThreshold(t.MapThresholdBytes)
}

// Save writes t to path as indented JSON.
func Save(path string, t *Tunables) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
