package config

import (
	"os"
	"strings"

	units "github.com/docker/go-units"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/Brownie44l1/pothole-api/internal/segment"
)

type Config struct {
	Port string

	ModelPath      string
	MetadataPath   string
	OnnxRuntimeLib string
	PoolSize       int
	IntraOpThreads int

	ConfThreshold   float32
	SelectionPolicy segment.SelectionPolicy
	// CoeffColumn is the first mask coefficient column of a detection row.
	// The default 6 leaves 31 coefficients for 32 prototypes, so StrictShapes
	// rejects every request unless CoeffColumn is 5.
	CoeffColumn     int
	StrictShapes    bool

	AllowedContentTypes []string
	MaxUploadSize       int64
	AllowedOrigins      []string

	LogLevel string
	LogFile  string
	LogDev   bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           env("PORT", "8080"),
		ModelPath:      env("MODEL_PATH", "../model/model.onnx"),
		MetadataPath:   env("MODEL_METADATA_PATH", ""),
		OnnxRuntimeLib: env("ONNXRUNTIME_LIB", ""),
		AllowedContentTypes: list(env("ALLOWED_CONTENT_TYPES",
			"image/jpeg,image/png,image/jpg")),
		AllowedOrigins: list(env("ALLOWED_ORIGINS",
			"http://localhost:3000,http://localhost:5000")),
		LogLevel: env("LOG_LEVEL", "info"),
		LogFile:  env("LOG_FILE", ""),
	}

	var err error
	if cfg.PoolSize, err = cast.ToIntE(env("SESSION_POOL_SIZE", "1")); err != nil || cfg.PoolSize < 1 {
		return nil, errors.Errorf("SESSION_POOL_SIZE: invalid value %q", os.Getenv("SESSION_POOL_SIZE"))
	}
	if cfg.IntraOpThreads, err = cast.ToIntE(env("INTRA_OP_THREADS", "0")); err != nil || cfg.IntraOpThreads < 0 {
		return nil, errors.Errorf("INTRA_OP_THREADS: invalid value %q", os.Getenv("INTRA_OP_THREADS"))
	}

	threshold, err := cast.ToFloat32E(env("CONF_THRESHOLD", "0.5"))
	if err != nil || threshold <= 0 || threshold >= 1 {
		return nil, errors.Errorf("CONF_THRESHOLD: must be in (0, 1), got %q", os.Getenv("CONF_THRESHOLD"))
	}
	cfg.ConfThreshold = threshold

	if cfg.SelectionPolicy, err = segment.ParseSelectionPolicy(env("SELECTION_POLICY", "first")); err != nil {
		return nil, errors.Wrap(err, "SELECTION_POLICY")
	}
	if cfg.CoeffColumn, err = cast.ToIntE(env("COEFF_COLUMN", "6")); err != nil || cfg.CoeffColumn <= segment.ConfidenceColumn {
		return nil, errors.Errorf("COEFF_COLUMN: must be above %d, got %q", segment.ConfidenceColumn, os.Getenv("COEFF_COLUMN"))
	}
	if cfg.StrictShapes, err = cast.ToBoolE(env("STRICT_SHAPES", "false")); err != nil {
		return nil, errors.Wrap(err, "STRICT_SHAPES")
	}
	if cfg.LogDev, err = cast.ToBoolE(env("LOG_DEV", "false")); err != nil {
		return nil, errors.Wrap(err, "LOG_DEV")
	}
	if cfg.MaxUploadSize, err = units.RAMInBytes(env("MAX_UPLOAD_SIZE", "10MiB")); err != nil || cfg.MaxUploadSize <= 0 {
		return nil, errors.Errorf("MAX_UPLOAD_SIZE: invalid value %q", os.Getenv("MAX_UPLOAD_SIZE"))
	}

	return cfg, nil
}

// Options returns the pipeline settings carried by the configuration.
func (c *Config) Options() segment.Options {
	opts := segment.DefaultOptions()
	opts.Threshold = c.ConfThreshold
	opts.Policy = c.SelectionPolicy
	opts.StrictShapes = c.StrictShapes
	opts.CoeffColumn = c.CoeffColumn
	return opts
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
