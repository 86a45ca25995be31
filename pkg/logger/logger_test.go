package logger

import (
	"os"
	"path/filepath"
	"testing"

	"cmms/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cfg := &config.Config{Log: config.LogConfig{
		Level:    "debug",
		Format:   "json",
		FilePath: path,
		MaxSize:  1,
	}}

	require.NoError(t, Initialize(cfg))
	l := GetLogger()
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l.Info("hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestInitialize_BadLevelFallsBackToInfo(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "loud", Format: "text"}}

	require.NoError(t, Initialize(cfg))
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, GetLogger().Formatter)
}

func TestForTenant(t *testing.T) {
	require.NoError(t, Initialize(&config.Config{Log: config.LogConfig{Level: "info"}}))
	entry := ForTenant(42)
	assert.Equal(t, uint(42), entry.Data["tenant_id"])
}
