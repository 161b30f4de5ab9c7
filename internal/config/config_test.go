package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/pothole-api/internal/segment"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{
		"PORT", "MODEL_PATH", "MODEL_METADATA_PATH", "ONNXRUNTIME_LIB", "SESSION_POOL_SIZE",
		"INTRA_OP_THREADS", "CONF_THRESHOLD", "SELECTION_POLICY", "STRICT_SHAPES",
		"ALLOWED_CONTENT_TYPES", "MAX_UPLOAD_SIZE", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FILE",
		"COEFF_COLUMN", "LOG_DEV",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "../model/model.onnx", cfg.ModelPath)
	assert.Equal(t, 1, cfg.PoolSize)
	assert.Equal(t, float32(0.5), cfg.ConfThreshold)
	assert.Equal(t, segment.SelectFirst, cfg.SelectionPolicy)
	assert.False(t, cfg.StrictShapes)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/jpg"}, cfg.AllowedContentTypes)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5000"}, cfg.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDev)
	assert.Equal(t, segment.DefaultCoeffColumn, cfg.CoeffColumn)
	assert.Equal(t, segment.DefaultCoeffColumn, cfg.Options().CoeffColumn)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("SESSION_POOL_SIZE", "4")
	t.Setenv("CONF_THRESHOLD", "0.35")
	t.Setenv("SELECTION_POLICY", "best")
	t.Setenv("STRICT_SHAPES", "true")
	t.Setenv("MAX_UPLOAD_SIZE", "2MB")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com, ,http://localhost:3000")
	t.Setenv("COEFF_COLUMN", "5")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, float32(0.35), cfg.ConfThreshold)
	assert.Equal(t, segment.SelectBest, cfg.SelectionPolicy)
	assert.True(t, cfg.StrictShapes)
	assert.Equal(t, int64(2*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, []string{"https://example.com", "http://localhost:3000"}, cfg.AllowedOrigins)

	opts := cfg.Options()
	assert.Equal(t, float32(0.35), opts.Threshold)
	assert.Equal(t, segment.SelectBest, opts.Policy)
	assert.True(t, opts.StrictShapes)
	assert.Equal(t, segment.ClassPothole, opts.Class)
	assert.Equal(t, 5, opts.CoeffColumn)
	assert.True(t, cfg.LogDev)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SESSION_POOL_SIZE": "0",
		"INTRA_OP_THREADS":  "-1",
		"CONF_THRESHOLD":    "1.5",
		"SELECTION_POLICY":  "random",
		"STRICT_SHAPES":     "maybe",
		"MAX_UPLOAD_SIZE":   "lots",
		"COEFF_COLUMN":      "4",
		"LOG_DEV":           "sometimes",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
