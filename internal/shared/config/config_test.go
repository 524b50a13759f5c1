package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("ANALYSIS_DISPATCH", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "sync", cfg.AnalysisDispatch)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 100000, cfg.MaxDocumentChars)
	assert.Equal(t, 10*time.Minute, cfg.StuckAfter)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, "none", cfg.QueueBackend)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "MinIO")
	t.Setenv("ANALYSIS_DISPATCH", "async")
	t.Setenv("LLM_TIMEOUT_SECONDS", "15")
	t.Setenv("ANALYSIS_STUCK_AFTER", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("QUEUE_BACKEND", "kafka")

	cfg := Load()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "minio", cfg.ObjectStoreType)
	assert.Equal(t, "async", cfg.AnalysisDispatch)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 90*time.Second, cfg.StuckAfter)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "kafka", cfg.QueueBackend)
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nTIKA_URL=http://tika:9998\n"), 0o600))
	chdir(t, dir)
	t.Setenv("PORT", "7000")
	t.Setenv("TIKA_URL", "")
	os.Unsetenv("TIKA_URL")

	cfg := Load()

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "http://tika:9998", cfg.TikaURL)
}

// chdir mirrors testing.T.Chdir (Go 1.24+): change the working directory
// for the test and restore the previous one on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
