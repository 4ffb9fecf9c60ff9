package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, rest, err := Parse("test", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("rest = %v", rest)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("sample rate = %d", cfg.SampleRate)
	}
	if cfg.TargetLUFS != -14.0 {
		t.Errorf("target lufs = %v", cfg.TargetLUFS)
	}
	if cfg.HeadroomDB != 1.0 {
		t.Errorf("headroom = %v", cfg.HeadroomDB)
	}
	if cfg.StorageKind != "local" {
		t.Errorf("storage kind = %q", cfg.StorageKind)
	}
	if cfg.StorageDir == "" {
		t.Error("storage dir not derived from data dir")
	}
}

func TestFlagsOverride(t *testing.T) {
	cfg, rest, err := Parse("test", []string{"-target-lufs", "-16", "-workers", "4", "positional"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TargetLUFS != -16.0 {
		t.Errorf("target lufs = %v", cfg.TargetLUFS)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if len(rest) != 1 || rest[0] != "positional" {
		t.Errorf("rest = %v", rest)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TARGET_LUFS", "-12.5")
	t.Setenv("SAMPLE_RATE", "48000")
	cfg, _, err := Parse("test", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TargetLUFS != -12.5 {
		t.Errorf("target lufs = %v", cfg.TargetLUFS)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("sample rate = %d", cfg.SampleRate)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masher.toml")
	content := "target_lufs = -18.0\nworkers = 8\nstorage_kind = \"s3\"\ns3_bucket = \"mashups\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// Explicit flags beat the file; file beats defaults.
	cfg, _, err := Parse("test", []string{"-config", path, "-workers", "2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TargetLUFS != -18.0 {
		t.Errorf("target lufs = %v, want file value", cfg.TargetLUFS)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers = %d, want flag value", cfg.Workers)
	}
	if cfg.StorageKind != "s3" || cfg.S3Bucket != "mashups" {
		t.Errorf("storage = %q/%q", cfg.StorageKind, cfg.S3Bucket)
	}
}
