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

// parseArgs resolves defaults, then the TOML file, then flags. Positional arguments
// replace the allowed extension list.
func parseArgs(args []string, usage io.Writer) (config.FileServer, error) {
	def := config.DefaultFileServer()
	fs := pflag.NewFlagSet("filectl", pflag.ContinueOnError)
	fs.SetOutput(usage)
	fs.Usage = func() {
		fmt.Fprintln(usage, "Usage: filectl [flags] [ALLOWED_EXTENSIONS...]")
		fs.PrintDefaults()
	}
	rt := node.BindRuntime(fs, def.Runtime)
	sv := node.BindServing(fs, def.Serving)
	storage := fs.String("storage", def.Storage, "directory uploaded files are stored in")
	if err := fs.Parse(args); err != nil {
		return config.FileServer{}, err
	}

	cfg := def
	if rt.ConfigPath != "" {
		var err error
		if cfg, err = loadFileConfig(rt.ConfigPath, cfg); err != nil {
			return config.FileServer{}, err
		}
	}
	rt.Apply(fs, &cfg.Runtime)
	sv.Apply(fs, &cfg.Serving)
	if fs.Changed("storage") {
		cfg.Storage = strings.TrimSpace(*storage)
	}
	if fs.NArg() > 0 {
		cfg.Extensions = normalizeExtensions(fs.Args())
	}
	return cfg, cfg.Validate()
}

func loadFileConfig(path string, cfg config.FileServer) (config.FileServer, error) {
	var raw config.FileServer
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.FileServer{}, fmt.Errorf("load file server config: %w", err)
	}
	node.OverlayRuntime(meta, raw.Runtime, &cfg.Runtime)
	node.OverlayServing(meta, raw.Serving, &cfg.Serving)
	if meta.IsDefined("storage") {
		cfg.Storage = strings.TrimSpace(raw.Storage)
	}
	if meta.IsDefined("extensions") {
		cfg.Extensions = normalizeExtensions(raw.Extensions)
	}
	return cfg, nil
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, ext := range in {
		v := strings.TrimSpace(ext)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
