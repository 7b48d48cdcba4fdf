package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 8002 || cfg.File != "system.log" || cfg.Threads != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseArgsFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.toml")
	body := "file = \"audit/system.log\"\nport = 8200\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := parseArgs([]string{"-c", path, "-f", "other.log"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.File != "other.log" {
		t.Fatalf("flag must win over file: %q", cfg.File)
	}
	if cfg.Port != 8200 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseArgsRejectsEmptyFile(t *testing.T) {
	if _, err := parseArgs([]string{"-f", " "}, io.Discard); err == nil {
		t.Fatalf("expected error for empty log file")
	}
}
