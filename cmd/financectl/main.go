package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/ledger"
	"github.com/danmuck/netbank/internal/logging"
	"github.com/danmuck/netbank/internal/node"
	"github.com/danmuck/netbank/internal/server"
	"github.com/danmuck/netbank/internal/signals"
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
		fmt.Fprintf(os.Stderr, "financectl: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Finance) error {
	logging.ConfigureRuntime()
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	scfg, err := node.ServerConfig("Finance", cfg.Serving)
	if err != nil {
		return err
	}

	opts := signals.DefaultOptions()
	opts.TrailPath = cfg.SignalLog
	coord := signals.New(opts)

	store := ledger.NewStore(cfg.MaxAccounts)
	n := &node.Node{
		Label:      "Finance",
		Server:     server.New(scfg, ledger.NewHandler(store, cfg.Threads)),
		Coord:      coord,
		AdminAddr:  cfg.AdminAddr,
		AdminToken: cfg.AdminToken,
		Detail:     func() any { return store.Snapshot() },
		OnStart: func(port int) error {
			fmt.Printf("Finance server started on port %d with %d threads, max accounts %d\n", port, cfg.Threads, cfg.MaxAccounts)
			return nil
		},
		OnStop: func() {
			fmt.Println("Finance server shutting down...")
		},
	}
	return n.Run()
}
