package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/netbank/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("configgen", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.StringP("kind", "k", config.KindFinance, "config kind: "+strings.Join(config.Kinds(), "|"))
	output := fs.StringP("output", "o", "", "output path for config template (defaults to per-kind cmd path)")
	validate := fs.Bool("validate", false, "validate an existing config file")
	input := fs.StringP("input", "i", "", "config path for validation (defaults to per-kind cmd path)")
	force := fs.Bool("force", false, "overwrite existing config file")
	printOnly := fs.Bool("print", false, "write the template to stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *printOnly {
		template, err := config.Template(*kind)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, template)
		return err
	}

	if *validate {
		path := *input
		if path == "" {
			var err error
			if path, err = defaultPath(*kind); err != nil {
				return err
			}
		}
		if err := config.ValidateFile(path, *kind); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Validated %s config at %s\n", *kind, path)
		return nil
	}

	target := *output
	if target == "" {
		var err error
		if target, err = defaultPath(*kind); err != nil {
			return err
		}
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s config template to %s\n", *kind, target)
	return nil
}

func defaultPath(kind string) (string, error) {
	switch kind {
	case config.KindFinance:
		return "cmd/financectl/config.toml", nil
	case config.KindFile:
		return "cmd/filectl/config.toml", nil
	case config.KindAudit:
		return "cmd/auditctl/config.toml", nil
	case config.KindClient:
		return "cmd/client-bank/config.toml", nil
	default:
		return "", fmt.Errorf("%w: %s", config.ErrUnknownKind, kind)
	}
}
