package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if *got != *want {
		t.Fatalf("Load() = %+v, want default %+v", got, want)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunables.json")

	want := &Tunables{SchemaVersion: "1.2.0", MapThresholdBytes: 64 * 1024}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if *got != *want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestValidateRejectsOutOfRangeSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunables.json")
	Save(path, &Tunables{SchemaVersion: "2.0.0", MapThresholdBytes: 1024})

	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted a schema_version outside the supported range")
	}
}

func TestValidateRejectsZeroThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunables.json")
	Save(path, &Tunables{SchemaVersion: "1.0.0", MapThresholdBytes: 0})

	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted a zero map_threshold_bytes")
	}
}
