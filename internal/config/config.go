// Package config holds the TOML file schemas shared by the netbank binaries,
// their defaults, strict validation and template rendering.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/pelletier/go-toml/v2"
)

const (
	KindFinance = "finance"
	KindFile    = "file"
	KindAudit   = "audit"
	KindClient  = "client"
)

var ErrUnknownKind = errors.New("config: unknown kind")

// Kinds lists every binary with a config file.
func Kinds() []string {
	return []string{KindFinance, KindFile, KindAudit, KindClient}
}

// Runtime is the section every binary shares.
type Runtime struct {
	AdminAddr  string `toml:"admin_addr"`
	AdminToken string `toml:"admin_token"`
	SignalLog  string `toml:"signal_log"`
	LogLevel   string `toml:"log_level"`
}

// Serving is the section every server binary shares.
type Serving struct {
	Port            int    `toml:"port"`
	Threads         int    `toml:"threads"`
	DrainGrace      string `toml:"drain_grace"`
	MalformedPolicy string `toml:"malformed_policy"`
}

type Finance struct {
	Runtime
	Serving
	MaxAccounts int `toml:"max_accounts"`
}

type FileServer struct {
	Runtime
	Serving
	Storage    string   `toml:"storage"`
	Extensions []string `toml:"extensions"`
}

type Audit struct {
	Runtime
	Serving
	File string `toml:"file"`
}

type Endpoint struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Spawn is a local server process started and supervised by the client.
type Spawn struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type Client struct {
	Runtime
	Finance          Endpoint `toml:"finance"`
	File             Endpoint `toml:"file"`
	Logging          Endpoint `toml:"logging"`
	Retries          int      `toml:"retries"`
	OperationTimeout string   `toml:"operation_timeout"`
	DownloadDir      string   `toml:"download_dir"`
	Spawn            []Spawn  `toml:"spawn"`
}

func defaultRuntime() Runtime {
	return Runtime{SignalLog: "signals.log", LogLevel: "info"}
}

func defaultServing(port int) Serving {
	return Serving{
		Port:            port,
		Threads:         4,
		DrainGrace:      "2s",
		MalformedPolicy: protocol.DegradeToQuit.String(),
	}
}

func DefaultFinance() Finance {
	return Finance{Runtime: defaultRuntime(), Serving: defaultServing(8000), MaxAccounts: 100}
}

func DefaultFileServer() FileServer {
	return FileServer{Runtime: defaultRuntime(), Serving: defaultServing(8001), Storage: "storage", Extensions: []string{}}
}

func DefaultAudit() Audit {
	return Audit{Runtime: defaultRuntime(), Serving: defaultServing(8002), File: "system.log"}
}

func DefaultClient() Client {
	rt := defaultRuntime()
	rt.LogLevel = "warn"
	return Client{
		Runtime:          rt,
		Finance:          Endpoint{Host: "localhost", Port: 8000},
		File:             Endpoint{Host: "localhost", Port: 8001},
		Logging:          Endpoint{Host: "localhost", Port: 8002},
		Retries:          3,
		OperationTimeout: "30s",
		DownloadDir:      ".",
		Spawn:            []Spawn{},
	}
}

func defaultFor(kind string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindFinance:
		v := DefaultFinance()
		return &v, nil
	case KindFile:
		v := DefaultFileServer()
		return &v, nil
	case KindAudit:
		v := DefaultAudit()
		return &v, nil
	case KindClient:
		v := DefaultClient()
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// Template renders the defaults for kind as a TOML document.
func Template(kind string) (string, error) {
	v, err := defaultFor(kind)
	if err != nil {
		return "", err
	}
	out, err := toml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("config: render %s: %w", kind, err)
	}
	return string(out), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// ValidateFile strictly decodes path as kind, rejecting unknown keys, then checks values.
func ValidateFile(path, kind string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	v, err := defaultFor(kind)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	switch cfg := v.(type) {
	case *Finance:
		return cfg.Validate()
	case *FileServer:
		return cfg.Validate()
	case *Audit:
		return cfg.Validate()
	case *Client:
		return cfg.Validate()
	}
	return nil
}

func validPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port out of range: %d", port)
	}
	return nil
}

// ParseDuration accepts an empty string as zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration: %s", raw)
	}
	return d, nil
}

func (s Serving) Validate() error {
	if err := validPort(s.Port); err != nil {
		return err
	}
	if s.Threads < 1 {
		return fmt.Errorf("threads must be positive: %d", s.Threads)
	}
	if _, err := ParseDuration(s.DrainGrace); err != nil {
		return fmt.Errorf("parse drain_grace: %w", err)
	}
	if _, err := protocol.ParseMalformedPolicy(s.MalformedPolicy); err != nil {
		return err
	}
	return nil
}

func (c Finance) Validate() error {
	if err := c.Serving.Validate(); err != nil {
		return fmt.Errorf("finance config invalid: %w", err)
	}
	if c.MaxAccounts < 0 {
		return fmt.Errorf("finance config invalid: max_accounts must not be negative: %d", c.MaxAccounts)
	}
	return nil
}

func (c FileServer) Validate() error {
	if err := c.Serving.Validate(); err != nil {
		return fmt.Errorf("file config invalid: %w", err)
	}
	if strings.TrimSpace(c.Storage) == "" {
		return fmt.Errorf("file config invalid: storage is required")
	}
	return nil
}

func (c Audit) Validate() error {
	if err := c.Serving.Validate(); err != nil {
		return fmt.Errorf("audit config invalid: %w", err)
	}
	if strings.TrimSpace(c.File) == "" {
		return fmt.Errorf("audit config invalid: file is required")
	}
	return nil
}

func (c Client) Validate() error {
	for name, ep := range map[string]Endpoint{"finance": c.Finance, "file": c.File, "logging": c.Logging} {
		if strings.TrimSpace(ep.Host) == "" {
			return fmt.Errorf("client config invalid: %s host is required", name)
		}
		if err := validPort(ep.Port); err != nil {
			return fmt.Errorf("client config invalid: %s %w", name, err)
		}
	}
	if c.Retries < 1 {
		return fmt.Errorf("client config invalid: retries must be positive: %d", c.Retries)
	}
	if _, err := ParseDuration(c.OperationTimeout); err != nil {
		return fmt.Errorf("client config invalid: parse operation_timeout: %w", err)
	}
	for i, sp := range c.Spawn {
		if strings.TrimSpace(sp.Name) == "" || strings.TrimSpace(sp.Command) == "" {
			return fmt.Errorf("client config invalid: spawn[%d] needs name and command", i)
		}
	}
	return nil
}
