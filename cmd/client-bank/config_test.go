package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)
	require.Equal(t, "localhost", cfg.Finance.Host)
	require.Equal(t, 8000, cfg.Finance.Port)
	require.Equal(t, 8001, cfg.File.Port)
	require.Equal(t, 8002, cfg.Logging.Port)
	require.Equal(t, 3, cfg.Retries)
	require.Empty(t, cfg.Spawn)
}

func TestParseArgsFileThenFlags(t *testing.T) {
	cfg, err := parseArgs([]string{"-c", "ex.config.toml", "-r", "2", "--file-host", "files.local"}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Retries)
	require.Equal(t, "127.0.0.1", cfg.Finance.Host)
	require.Equal(t, 8100, cfg.Finance.Port)
	require.Equal(t, "files.local", cfg.File.Host)
	require.Equal(t, 8101, cfg.File.Port)
	require.Equal(t, "error", cfg.LogLevel)
	require.Len(t, cfg.Spawn, 1)
	require.Equal(t, "finance", cfg.Spawn[0].Name)
	require.Equal(t, []string{"-c", "cmd/financectl/ex.config.toml"}, cfg.Spawn[0].Args)
}

func TestParseArgsRejectsZeroRetries(t *testing.T) {
	_, err := parseArgs([]string{"--retries", "0"}, io.Discard)
	require.Error(t, err)
}

func TestSessionConfig(t *testing.T) {
	cfg, err := parseArgs([]string{"-c", "ex.config.toml"}, io.Discard)
	require.NoError(t, err)
	scfg, err := sessionConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8102", scfg.Audit.Addr())
	require.Equal(t, 5, scfg.MaxAttempts)
	require.Equal(t, 10*time.Second, scfg.Channel.Session.OperationTimeout)
	require.Equal(t, "downloads", scfg.DownloadDir)
}
