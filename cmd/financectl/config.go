package main

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/node"
	"github.com/spf13/pflag"
)

// parseArgs resolves defaults, then the TOML file, then flags set on the command line.
func parseArgs(args []string, usage io.Writer) (config.Finance, error) {
	def := config.DefaultFinance()
	fs := pflag.NewFlagSet("financectl", pflag.ContinueOnError)
	fs.SetOutput(usage)
	rt := node.BindRuntime(fs, def.Runtime)
	sv := node.BindServing(fs, def.Serving)
	maxAccounts := fs.IntP("max-accounts", "m", def.MaxAccounts, "highest account id served")
	if err := fs.Parse(args); err != nil {
		return config.Finance{}, err
	}

	cfg := def
	if rt.ConfigPath != "" {
		var err error
		if cfg, err = loadFileConfig(rt.ConfigPath, cfg); err != nil {
			return config.Finance{}, err
		}
	}
	rt.Apply(fs, &cfg.Runtime)
	sv.Apply(fs, &cfg.Serving)
	if fs.Changed("max-accounts") {
		cfg.MaxAccounts = *maxAccounts
	}
	return cfg, cfg.Validate()
}

func loadFileConfig(path string, cfg config.Finance) (config.Finance, error) {
	var raw config.Finance
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Finance{}, fmt.Errorf("load finance config: %w", err)
	}
	node.OverlayRuntime(meta, raw.Runtime, &cfg.Runtime)
	node.OverlayServing(meta, raw.Serving, &cfg.Serving)
	if meta.IsDefined("max_accounts") {
		cfg.MaxAccounts = raw.MaxAccounts
	}
	return cfg, nil
}
