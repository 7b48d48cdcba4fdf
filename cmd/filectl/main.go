package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/filestore"
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
		fmt.Fprintf(os.Stderr, "filectl: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.FileServer) error {
	logging.ConfigureRuntime()
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	scfg, err := node.ServerConfig("File", cfg.Serving)
	if err != nil {
		return err
	}
	store, err := filestore.New(cfg.Storage, cfg.Extensions)
	if err != nil {
		return err
	}

	opts := signals.DefaultOptions()
	opts.TrailPath = cfg.SignalLog
	n := &node.Node{
		Label:      "File",
		Server:     server.New(scfg, store),
		Coord:      signals.New(opts),
		AdminAddr:  cfg.AdminAddr,
		AdminToken: cfg.AdminToken,
		Detail: func() any {
			return map[string]any{"storage": store.Root(), "extensions": store.Allowed()}
		},
		OnStart: func(port int) error {
			fmt.Printf("File server started on port %d with %d threads\n", port, cfg.Threads)
			if allowed := store.Allowed(); len(allowed) > 0 {
				fmt.Printf("Allowed extensions: %s\n", strings.Join(allowed, " "))
			} else {
				fmt.Println("All file extensions allowed")
			}
			return nil
		},
		OnStop: func() {
			fmt.Println("File server shutting down...")
		},
	}
	return n.Run()
}
