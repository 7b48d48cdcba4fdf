package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/netbank/internal/client"
	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/node"
	"github.com/spf13/pflag"
)

// parseArgs resolves defaults, then the TOML file, then flags set on the command line.
func parseArgs(args []string, usage io.Writer) (config.Client, error) {
	def := config.DefaultClient()
	fs := pflag.NewFlagSet("client-bank", pflag.ContinueOnError)
	fs.SetOutput(usage)
	rt := node.BindRuntime(fs, def.Runtime)
	financeHost := fs.String("finance-host", def.Finance.Host, "finance server host")
	financePort := fs.Int("finance-port", def.Finance.Port, "finance server port")
	fileHost := fs.String("file-host", def.File.Host, "file server host")
	filePort := fs.Int("file-port", def.File.Port, "file server port")
	loggingHost := fs.String("logging-host", def.Logging.Host, "logging server host")
	loggingPort := fs.Int("logging-port", def.Logging.Port, "logging server port")
	retries := fs.IntP("retries", "r", def.Retries, "attempts per operation")
	timeout := fs.String("operation-timeout", def.OperationTimeout, "alarm armed around each attempt")
	downloads := fs.String("download-dir", def.DownloadDir, "directory downloads are written to")
	if err := fs.Parse(args); err != nil {
		return config.Client{}, err
	}

	cfg := def
	if rt.ConfigPath != "" {
		var err error
		if cfg, err = loadFileConfig(rt.ConfigPath, cfg); err != nil {
			return config.Client{}, err
		}
	}
	rt.Apply(fs, &cfg.Runtime)
	if fs.Changed("finance-host") {
		cfg.Finance.Host = strings.TrimSpace(*financeHost)
	}
	if fs.Changed("finance-port") {
		cfg.Finance.Port = *financePort
	}
	if fs.Changed("file-host") {
		cfg.File.Host = strings.TrimSpace(*fileHost)
	}
	if fs.Changed("file-port") {
		cfg.File.Port = *filePort
	}
	if fs.Changed("logging-host") {
		cfg.Logging.Host = strings.TrimSpace(*loggingHost)
	}
	if fs.Changed("logging-port") {
		cfg.Logging.Port = *loggingPort
	}
	if fs.Changed("retries") {
		cfg.Retries = *retries
	}
	if fs.Changed("operation-timeout") {
		cfg.OperationTimeout = strings.TrimSpace(*timeout)
	}
	if fs.Changed("download-dir") {
		cfg.DownloadDir = strings.TrimSpace(*downloads)
	}
	return cfg, cfg.Validate()
}

func loadFileConfig(path string, cfg config.Client) (config.Client, error) {
	var raw config.Client
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Client{}, fmt.Errorf("load client config: %w", err)
	}
	node.OverlayRuntime(meta, raw.Runtime, &cfg.Runtime)
	overlayEndpoint(meta, "finance", raw.Finance, &cfg.Finance)
	overlayEndpoint(meta, "file", raw.File, &cfg.File)
	overlayEndpoint(meta, "logging", raw.Logging, &cfg.Logging)
	if meta.IsDefined("retries") {
		cfg.Retries = raw.Retries
	}
	if meta.IsDefined("operation_timeout") {
		cfg.OperationTimeout = strings.TrimSpace(raw.OperationTimeout)
	}
	if meta.IsDefined("download_dir") {
		cfg.DownloadDir = strings.TrimSpace(raw.DownloadDir)
	}
	if meta.IsDefined("spawn") {
		cfg.Spawn = raw.Spawn
	}
	return cfg, nil
}

func overlayEndpoint(meta toml.MetaData, key string, raw config.Endpoint, dst *config.Endpoint) {
	if meta.IsDefined(key, "host") {
		dst.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined(key, "port") {
		dst.Port = raw.Port
	}
}

// sessionConfig maps a validated client config onto the session layer.
func sessionConfig(cfg config.Client) (client.Config, error) {
	out := client.DefaultConfig()
	out.Finance = client.Endpoint{Host: cfg.Finance.Host, Port: cfg.Finance.Port}
	out.File = client.Endpoint{Host: cfg.File.Host, Port: cfg.File.Port}
	out.Audit = client.Endpoint{Host: cfg.Logging.Host, Port: cfg.Logging.Port}
	out.MaxAttempts = cfg.Retries
	out.Channel.Session.MaxAttempts = cfg.Retries
	if cfg.DownloadDir != "" {
		out.DownloadDir = cfg.DownloadDir
	}
	timeout, err := config.ParseDuration(cfg.OperationTimeout)
	if err != nil {
		return client.Config{}, fmt.Errorf("parse operation_timeout: %w", err)
	}
	if timeout > 0 {
		out.Channel.Session.OperationTimeout = timeout
	}
	return out, nil
}
