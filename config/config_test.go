package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsNonPow2Blocksize(t *testing.T) {
	cfg := Default()
	cfg.L1.BlockSize = 48
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-power-of-two block size")
	}
}

func TestValidateRejectsUnevenSets(t *testing.T) {
	cfg := Default()
	cfg.L1.SizeBytes = cfg.L1.Assoc*cfg.L1.BlockSize*3 + 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for size not divisible by assoc*blocksize")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")

	want := Default()
	want.WindowSize = 256
	want.VPEnable = true

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.WindowSize != want.WindowSize || got.VPEnable != want.VPEnable {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
