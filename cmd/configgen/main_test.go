package main

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/netbank/internal/config"
)

func TestWriteThenValidate(t *testing.T) {
	for _, kind := range config.Kinds() {
		path := filepath.Join(t.TempDir(), kind+".toml")
		var out bytes.Buffer
		if err := run([]string{"--kind", kind, "-o", path}, &out, io.Discard); err != nil {
			t.Fatalf("%s: write: %v", kind, err)
		}
		if err := run([]string{"--kind", kind, "--validate", "-i", path}, &out, io.Discard); err != nil {
			t.Fatalf("%s: validate: %v", kind, err)
		}
		if !strings.Contains(out.String(), "Validated "+kind) {
			t.Fatalf("%s: unexpected output %q", kind, out.String())
		}
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance.toml")
	if err := run([]string{"-o", path}, io.Discard, io.Discard); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := run([]string{"-o", path}, io.Discard, io.Discard); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := run([]string{"-o", path, "--force"}, io.Discard, io.Discard); err != nil {
		t.Fatalf("forced write: %v", err)
	}
}

func TestUnknownKind(t *testing.T) {
	err := run([]string{"--kind", "ghost"}, io.Discard, io.Discard)
	if !errors.Is(err, config.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestPrintTemplate(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-k", "audit", "--print"}, &out, io.Discard); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out.String(), "system.log") {
		t.Fatalf("unexpected template:\n%s", out.String())
	}
}
