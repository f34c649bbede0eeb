package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"dompet/internal/cli"
	"dompet/internal/log"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	verbose := flag.Bool("v", false, "log ledger activity to stderr")
	app := &cli.App{
		Out: os.Stdout,
		Err: os.Stderr,
		Open: func(ctx context.Context) (*cli.Ledger, error) {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return nil, err
			}
			logger := log.Discard()
			if *verbose {
				logger = cli.SetupLogger(cfg, os.Stderr)
			}
			return cli.OpenAuditedLedger(ctx, cfg, logger.WithComponent(log.ComponentCLI))
		},
	}
	cli.Register(commander, app)

	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: dompetctl <command> [flags]; see dompetctl help")
	}
	os.Exit(int(commander.Execute(context.Background())))
}
