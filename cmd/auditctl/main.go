package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/netbank/internal/audit"
	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/logging"
	"github.com/danmuck/netbank/internal/node"
	"github.com/danmuck/netbank/internal/server"
	"github.com/danmuck/netbank/internal/signals"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err == nil {
		err = run(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "auditctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Audit) error {
	logging.ConfigureRuntime()
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	scfg, err := node.ServerConfig("Logging", cfg.Serving)
	if err != nil {
		return err
	}

	auditLog := audit.New(cfg.File)
	opts := signals.DefaultOptions()
	opts.TrailPath = cfg.SignalLog
	n := &node.Node{
		Label:      "Logging",
		Server:     server.New(scfg, auditLog),
		Coord:      signals.New(opts),
		AdminAddr:  cfg.AdminAddr,
		AdminToken: cfg.AdminToken,
		Detail:     func() any { return map[string]string{"file": auditLog.Path()} },
		OnStart: func(port int) error {
			if err := auditLog.Started(port); err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			fmt.Printf("Logging server started on port %d with %d threads\n", port, cfg.Threads)
			fmt.Printf("Logging to file: %s\n", auditLog.Path())
			return nil
		},
		OnStop: func() {
			if err := auditLog.Stopped(); err != nil {
				log.Warn().Err(err).Msg("audit shutdown banner failed")
			}
			fmt.Println("Logging server shutting down...")
		},
	}
	return n.Run()
}
