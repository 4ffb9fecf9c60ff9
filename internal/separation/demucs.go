package separation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DemucsCLI drives the demucs command-line separator.
type DemucsCLI struct {
	Binary string
	Model  string // e.g. "htdemucs"
	Device string // "cuda", "cpu", or empty for the model's default
	logger *slog.Logger
}

// NewDemucsCLI returns a demucs-backed separator, or an error when the binary
// is not on PATH so callers can fall back to the passthrough separator.
func NewDemucsCLI(model, device string, logger *slog.Logger) (*DemucsCLI, error) {
	path, err := exec.LookPath("demucs")
	if err != nil {
		return nil, fmt.Errorf("demucs binary not found: %w", err)
	}
	if model == "" {
		model = "htdemucs"
	}
	return &DemucsCLI{Binary: path, Model: model, Device: device, logger: logger}, nil
}

// Separate runs demucs and returns the four stem paths under outDir.
func (d *DemucsCLI) Separate(ctx context.Context, inputPath, outDir string) (Stems, error) {
	args := []string{"-n", d.Model, "-o", outDir}
	if d.Device != "" {
		args = append(args, "-d", d.Device)
	}
	args = append(args, inputPath)

	cmd := exec.CommandContext(ctx, d.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return Stems{}, fmt.Errorf("demucs: %w: %s", err, tail(string(out), 200))
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	stemDir := filepath.Join(outDir, d.Model, base)
	stems := Stems{
		Vocals: filepath.Join(stemDir, "vocals.wav"),
		Drums:  filepath.Join(stemDir, "drums.wav"),
		Bass:   filepath.Join(stemDir, "bass.wav"),
		Other:  filepath.Join(stemDir, "other.wav"),
	}
	for _, p := range []string{stems.Vocals, stems.Drums, stems.Bass, stems.Other} {
		if _, err := os.Stat(p); err != nil {
			return Stems{}, fmt.Errorf("demucs output missing stem %s: %w", filepath.Base(p), err)
		}
	}
	return stems, nil
}

func (d *DemucsCLI) Close() error { return nil }

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
