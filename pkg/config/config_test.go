package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerConfigDefaultsValidate(t *testing.T) {
	cfg := NewServerConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:6379", cfg.Address())
}

func TestServerConfigApplyEnv(t *testing.T) {
	t.Setenv("MIRKV_PORT", "7000")
	t.Setenv("MIRKV_LOG_LEVEL", "debug")

	cfg := NewServerConfig()
	cfg.ApplyEnv()

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestServerConfigValidateRejectsBadPort(t *testing.T) {
	cfg := NewServerConfig()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestServerConfigValidateRejectsBadLogLevel(t *testing.T) {
	cfg := NewServerConfig()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestClientConfigApplyEnv(t *testing.T) {
	t.Setenv("MIRKV_ADDR", "example:1234")

	cfg := NewClientConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "example:1234", cfg.Addr)
}

func TestClientConfigValidateRejectsEmptyAddr(t *testing.T) {
	cfg := NewClientConfig()
	cfg.Addr = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadDotEnvMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(wd) }()

	require.NoError(t, os.Chdir(dir))
	assert.NoError(t, LoadDotEnv())
}
