package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/node"
	"github.com/spf13/pflag"
)

func parseArgs(args []string, usage io.Writer) (config.Audit, error) {
	def := config.DefaultAudit()
	fs := pflag.NewFlagSet("auditctl", pflag.ContinueOnError)
	fs.SetOutput(usage)
	rt := node.BindRuntime(fs, def.Runtime)
	sv := node.BindServing(fs, def.Serving)
	file := fs.StringP("file", "f", def.File, "log file to append to")
	if err := fs.Parse(args); err != nil {
		return config.Audit{}, err
	}

	cfg := def
	if rt.ConfigPath != "" {
		var err error
		if cfg, err = loadFileConfig(rt.ConfigPath, cfg); err != nil {
			return config.Audit{}, err
		}
	}
	rt.Apply(fs, &cfg.Runtime)
	sv.Apply(fs, &cfg.Serving)
	if fs.Changed("file") {
		cfg.File = strings.TrimSpace(*file)
	}
	return cfg, cfg.Validate()
}

func loadFileConfig(path string, cfg config.Audit) (config.Audit, error) {
	var raw config.Audit
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Audit{}, fmt.Errorf("load audit config: %w", err)
	}
	node.OverlayRuntime(meta, raw.Runtime, &cfg.Runtime)
	node.OverlayServing(meta, raw.Serving, &cfg.Serving)
	if meta.IsDefined("file") {
		cfg.File = strings.TrimSpace(raw.File)
	}
	return cfg, nil
}
