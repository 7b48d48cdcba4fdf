package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/danmuck/netbank/internal/client"
	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/logging"
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
		fmt.Fprintf(os.Stderr, "client-bank: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Client) error {
	logging.ConfigureRuntime()
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	scfg, err := sessionConfig(cfg)
	if err != nil {
		return err
	}

	opts := signals.DefaultOptions()
	opts.TrailPath = cfg.SignalLog
	coord := signals.New(opts)
	coord.Install()
	defer coord.Stop()
	coord.Record("Network client started")

	for _, sp := range cfg.Spawn {
		cmd := exec.Command(sp.Command, sp.Args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := coord.Spawn(sp.Name, cmd); err != nil {
			log.Warn().Err(err).Str("name", sp.Name).Str("command", sp.Command).Msg("spawn failed")
			fmt.Fprintf(os.Stderr, "Failed to start %s: %v\n", sp.Name, err)
		}
	}

	ctx := coord.Context()
	prompt := client.NewPrompter(os.Stdin, os.Stdout)
	sess := client.Connect(ctx, scfg, coord, prompt, os.Stdout)
	menu := &client.Menu{
		Session: sess,
		Prompt:  prompt,
		Out:     os.Stdout,
		Status:  coord.WriteStatus,
	}
	if menu.Run(ctx) {
		fmt.Println("\nShutdown requested. Cleaning up...")
		coord.Record("Beginning graceful shutdown")
	} else {
		fmt.Println("Exiting...")
		coord.Record("Normal exit requested")
	}

	coord.Critical(sess.Close)
	coord.Record("Network client shutdown complete")
	fmt.Println("Client shutdown complete.")
	return nil
}
