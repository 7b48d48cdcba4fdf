package node

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/protocol"
	"github.com/danmuck/netbank/internal/server"
	"github.com/spf13/pflag"
)

// RuntimeFlags binds the config path, the admin surface, the signal trail and the log level.
type RuntimeFlags struct {
	ConfigPath string
	adminAddr  string
	adminToken string
	signalLog  string
	logLevel   string
}

func BindRuntime(fs *pflag.FlagSet, def config.Runtime) *RuntimeFlags {
	f := &RuntimeFlags{}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "TOML config file")
	fs.StringVar(&f.adminAddr, "admin-addr", def.AdminAddr, "admin HTTP listen address (empty disables)")
	fs.StringVar(&f.adminToken, "admin-token", def.AdminToken, "bearer token required by GET /status (empty leaves it open)")
	fs.StringVar(&f.signalLog, "signal-log", def.SignalLog, "signal event trail path")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel, "log level (trace|debug|info|warn|error|disabled)")
	return f
}

// Apply copies flags set on the command line over dst.
func (f *RuntimeFlags) Apply(fs *pflag.FlagSet, dst *config.Runtime) {
	if fs.Changed("admin-addr") {
		dst.AdminAddr = strings.TrimSpace(f.adminAddr)
	}
	if fs.Changed("admin-token") {
		dst.AdminToken = strings.TrimSpace(f.adminToken)
	}
	if fs.Changed("signal-log") {
		dst.SignalLog = strings.TrimSpace(f.signalLog)
	}
	if fs.Changed("log-level") {
		dst.LogLevel = strings.TrimSpace(f.logLevel)
	}
}

// ServingFlags binds -p/--port, -t/--threads, --drain-grace and --malformed-policy.
type ServingFlags struct {
	port       int
	threads    int
	drainGrace string
	policy     string
}

func BindServing(fs *pflag.FlagSet, def config.Serving) *ServingFlags {
	f := &ServingFlags{}
	fs.IntVarP(&f.port, "port", "p", def.Port, "port to listen on")
	fs.IntVarP(&f.threads, "threads", "t", def.Threads, "worker pool size")
	fs.StringVar(&f.drainGrace, "drain-grace", def.DrainGrace, "time idle clients get to quit on shutdown")
	fs.StringVar(&f.policy, "malformed-policy", def.MalformedPolicy, "malformed request handling (degrade_to_quit|reject)")
	return f
}

func (f *ServingFlags) Apply(fs *pflag.FlagSet, dst *config.Serving) {
	if fs.Changed("port") {
		dst.Port = f.port
	}
	if fs.Changed("threads") {
		dst.Threads = f.threads
	}
	if fs.Changed("drain-grace") {
		dst.DrainGrace = strings.TrimSpace(f.drainGrace)
	}
	if fs.Changed("malformed-policy") {
		dst.MalformedPolicy = strings.TrimSpace(f.policy)
	}
}

// OverlayRuntime copies keys defined in the TOML file from raw onto dst.
func OverlayRuntime(meta toml.MetaData, raw config.Runtime, dst *config.Runtime) {
	if meta.IsDefined("admin_addr") {
		dst.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("admin_token") {
		dst.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("signal_log") {
		dst.SignalLog = strings.TrimSpace(raw.SignalLog)
	}
	if meta.IsDefined("log_level") {
		dst.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
}

func OverlayServing(meta toml.MetaData, raw config.Serving, dst *config.Serving) {
	if meta.IsDefined("port") {
		dst.Port = raw.Port
	}
	if meta.IsDefined("threads") {
		dst.Threads = raw.Threads
	}
	if meta.IsDefined("drain_grace") {
		dst.DrainGrace = strings.TrimSpace(raw.DrainGrace)
	}
	if meta.IsDefined("malformed_policy") {
		dst.MalformedPolicy = strings.TrimSpace(raw.MalformedPolicy)
	}
}

// ServerConfig turns a validated Serving section into a server.Config.
func ServerConfig(name string, s config.Serving) (server.Config, error) {
	cfg := server.DefaultConfig(name, fmt.Sprintf(":%d", s.Port))
	cfg.Workers = s.Threads
	grace, err := config.ParseDuration(s.DrainGrace)
	if err != nil {
		return server.Config{}, fmt.Errorf("parse drain_grace: %w", err)
	}
	if strings.TrimSpace(s.DrainGrace) != "" {
		cfg.DrainGrace = grace
	}
	policy, err := protocol.ParseMalformedPolicy(s.MalformedPolicy)
	if err != nil {
		return server.Config{}, err
	}
	cfg.Channel.Policy = policy
	return cfg, nil
}
