// Package config assembles runtime configuration from, in increasing
// precedence: built-in defaults, environment variables (with .env support),
// an optional TOML file, and explicit command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config carries every knob the pipeline recognizes.
type Config struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`

	// Audio processing.
	SampleRate int     `toml:"sample_rate"`
	TargetLUFS float64 `toml:"target_lufs"`
	HeadroomDB float64 `toml:"headroom_db"`

	// Worker pool.
	Workers int `toml:"workers"`

	// External I/O hard timeout, seconds.
	IOTimeoutSec int `toml:"io_timeout_sec"`

	// Artifact storage: "local" or "s3".
	StorageKind string `toml:"storage_kind"`
	StorageDir  string `toml:"storage_dir"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Endpoint  string `toml:"s3_endpoint"`

	// Separation model.
	DemucsModel  string `toml:"demucs_model"`
	DemucsDevice string `toml:"demucs_device"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir:      defaultDataDir(),
		LogLevel:     "info",
		SampleRate:   44100,
		TargetLUFS:   -14.0,
		HeadroomDB:   1.0,
		Workers:      2,
		IOTimeoutSec: 60,
		StorageKind:  "local",
		StorageDir:   "",
		DemucsModel:  "htdemucs",
	}
}

// Parse builds the configuration for a command. args are the command's
// arguments after the subcommand name; remaining positionals are returned.
// register, when non-nil, adds command-specific flags to the same flag set so
// one parse covers both.
func Parse(name string, args []string, register func(fs *flag.FlagSet)) (Config, []string, error) {
	// .env is best-effort: absence is the normal case.
	_ = godotenv.Load()

	cfg := Defaults()

	// Optional TOML file, path from MASHER_CONFIG or -config.
	configPath := os.Getenv("MASHER_CONFIG")
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&configPath, "config", configPath, "path to TOML config file")
	fs.StringVar(&cfg.DataDir, "data-dir", envStr("MASHER_DATA_DIR", cfg.DataDir), "data directory for the job registry and local artifacts")
	fs.StringVar(&cfg.LogLevel, "log-level", envStr("MASHER_LOG_LEVEL", cfg.LogLevel), "log level (debug, info, warn, error)")
	fs.IntVar(&cfg.SampleRate, "sample-rate", envInt("SAMPLE_RATE", cfg.SampleRate), "internal sample rate")
	fs.Float64Var(&cfg.TargetLUFS, "target-lufs", envFloat("TARGET_LUFS", cfg.TargetLUFS), "mastering loudness target in LUFS")
	fs.Float64Var(&cfg.HeadroomDB, "headroom-db", envFloat("HEADROOM_DB", cfg.HeadroomDB), "mastering headroom in dB")
	fs.IntVar(&cfg.Workers, "workers", envInt("MASHER_WORKERS", cfg.Workers), "render worker pool size")
	fs.IntVar(&cfg.IOTimeoutSec, "io-timeout", envInt("MASHER_IO_TIMEOUT", cfg.IOTimeoutSec), "hard timeout for external I/O, seconds")
	fs.StringVar(&cfg.StorageKind, "storage", envStr("MASHER_STORAGE", cfg.StorageKind), "artifact storage backend (local, s3)")
	fs.StringVar(&cfg.StorageDir, "storage-dir", envStr("MASHER_STORAGE_DIR", cfg.StorageDir), "local artifact directory (default <data-dir>/artifacts)")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", envStr("MASHER_S3_BUCKET", cfg.S3Bucket), "artifact bucket for s3 storage")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", envStr("MASHER_S3_ENDPOINT", cfg.S3Endpoint), "custom endpoint for S3-compatible servers")
	fs.StringVar(&cfg.DemucsModel, "demucs-model", envStr("DEMUCS_MODEL", cfg.DemucsModel), "separation model name")
	fs.StringVar(&cfg.DemucsDevice, "demucs-device", envStr("DEMUCS_DEVICE", cfg.DemucsDevice), "separation device (cuda, cpu)")
	if register != nil {
		register(fs)
	}

	// Defaults with environment overrides, before any flag is applied.
	envCfg := cfg

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if configPath != "" {
		// The file layers over the environment, not over bare defaults.
		fileCfg := envCfg
		if _, err := toml.DecodeFile(configPath, &fileCfg); err != nil {
			return Config{}, nil, fmt.Errorf("load config file: %w", err)
		}
		// Flags given explicitly still win over the file.
		merged := fileCfg
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "data-dir":
				merged.DataDir = cfg.DataDir
			case "log-level":
				merged.LogLevel = cfg.LogLevel
			case "sample-rate":
				merged.SampleRate = cfg.SampleRate
			case "target-lufs":
				merged.TargetLUFS = cfg.TargetLUFS
			case "headroom-db":
				merged.HeadroomDB = cfg.HeadroomDB
			case "workers":
				merged.Workers = cfg.Workers
			case "io-timeout":
				merged.IOTimeoutSec = cfg.IOTimeoutSec
			case "storage":
				merged.StorageKind = cfg.StorageKind
			case "storage-dir":
				merged.StorageDir = cfg.StorageDir
			case "s3-bucket":
				merged.S3Bucket = cfg.S3Bucket
			case "s3-endpoint":
				merged.S3Endpoint = cfg.S3Endpoint
			case "demucs-model":
				merged.DemucsModel = cfg.DemucsModel
			case "demucs-device":
				merged.DemucsDevice = cfg.DemucsDevice
			}
		})
		cfg = merged
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = cfg.DataDir + "/artifacts"
	}
	return cfg, fs.Args(), nil
}

func defaultDataDir() string {
	if dir := os.Getenv("MASHER_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".masher"
	}
	return home + "/.masher"
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
