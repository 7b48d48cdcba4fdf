package main

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/pflag"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 8000 || cfg.Threads != 4 || cfg.MaxAccounts != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SignalLog != "signals.log" || cfg.AdminAddr != "" {
		t.Fatalf("unexpected runtime defaults: %+v", cfg.Runtime)
	}
}

func TestParseArgsConfigFileThenFlags(t *testing.T) {
	cfg, err := parseArgs([]string{"-c", "ex.config.toml", "-m", "10"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 8100 {
		t.Fatalf("unexpected port: %d", cfg.Port)
	}
	if cfg.Threads != 6 {
		t.Fatalf("unexpected threads: %d", cfg.Threads)
	}
	if cfg.MaxAccounts != 10 {
		t.Fatalf("flag must win over file: %d", cfg.MaxAccounts)
	}
	if cfg.DrainGrace != "500ms" || cfg.MalformedPolicy != "reject" {
		t.Fatalf("unexpected serving section: %+v", cfg.Serving)
	}
	if cfg.AdminAddr != "127.0.0.1:7100" || cfg.SignalLog != "finance-signals.log" {
		t.Fatalf("unexpected runtime section: %+v", cfg.Runtime)
	}
}

func TestParseArgsRejectsInvalid(t *testing.T) {
	if _, err := parseArgs([]string{"-t", "0"}, io.Discard); err == nil {
		t.Fatalf("expected error for zero threads")
	}
	if _, err := parseArgs([]string{"-c", "missing.toml"}, io.Discard); err == nil {
		t.Fatalf("expected error for missing config file")
	}
	if _, err := parseArgs([]string{"-h"}, io.Discard); !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("expected ErrHelp, got %v", err)
	}
}
