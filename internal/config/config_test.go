package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplatesRoundTripThroughValidate(t *testing.T) {
	for _, kind := range Kinds() {
		tmpl, err := Template(kind)
		if err != nil {
			t.Fatalf("%s template: %v", kind, err)
		}
		if strings.TrimSpace(tmpl) == "" {
			t.Fatalf("%s template empty", kind)
		}
		path := filepath.Join(t.TempDir(), kind+".toml")
		if err := WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("%s write: %v", kind, err)
		}
		if err := ValidateFile(path, kind); err != nil {
			t.Fatalf("%s validate: %v", kind, err)
		}
		if err := WriteTemplate(path, kind, false); err == nil {
			t.Fatalf("%s: expected refusal to overwrite", kind)
		}
	}
}

func TestFinanceTemplateContainsDefaults(t *testing.T) {
	tmpl, err := Template(KindFinance)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	for _, want := range []string{"port = 8000", "threads = 4", "max_accounts = 100", "signal_log = "} {
		if !strings.Contains(tmpl, want) {
			t.Fatalf("template missing %q:\n%s", want, tmpl)
		}
	}
}

func TestUnknownKind(t *testing.T) {
	if _, err := Template("mirage"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestValidateRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "port = 8000\nthreads = 2\nmax_acounts = 5\n")
	if err := ValidateFile(path, KindFinance); err == nil {
		t.Fatalf("expected unknown key rejection")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		kind string
		body string
	}{
		{KindFinance, "threads = 0\n"},
		{KindFinance, "port = 70000\n"},
		{KindFinance, "drain_grace = \"soon\"\n"},
		{KindAudit, "malformed_policy = \"explode\"\n"},
		{KindFile, "storage = \"\"\n"},
		{KindClient, "retries = 0\n"},
		{KindClient, "[[spawn]]\nname = \"finance\"\n"},
	}
	for _, tc := range cases {
		if err := ValidateFile(writeFile(t, tc.body), tc.kind); err == nil {
			t.Fatalf("%s %q: expected validation error", tc.kind, tc.body)
		}
	}
}

func TestValidateAcceptsPartialFile(t *testing.T) {
	path := writeFile(t, "extensions = [\".txt\", \".pdf\"]\nport = 9001\n")
	if err := ValidateFile(path, KindFile); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	if d, err := ParseDuration(""); err != nil || d != 0 {
		t.Fatalf("empty duration: %v %v", d, err)
	}
	if _, err := ParseDuration("-1s"); err == nil {
		t.Fatalf("expected negative duration error")
	}
}
