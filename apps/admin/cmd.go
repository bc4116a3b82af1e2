package main

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/tablesync"
)

var (
	errNotConfirmed = errors.New("refusing to delete without --yes")

	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	keyColor  = color.New(color.FgCyan)
)

type commandLine struct {
	engine    *tablesync.Engine
	forecasts *forecast.Service
	out       io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "EduAdmin administration tool",
		Long:          "Inspect and edit the academic records held by the remote store, and run AI forecasts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(cli.refreshCmd())
	root.AddCommand(cli.schemasCmd())
	root.AddCommand(cli.listCmd())
	root.AddCommand(cli.predictCmd())
	root.AddCommand(cli.deleteCmd())
	return root
}

// run executes the command line; args include the program name like os.Args.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// sync loads a fresh snapshot. Commands reading records call it first.
func (cli *commandLine) sync(ctx context.Context) (*tablesync.Snapshot, error) {
	snap, err := cli.engine.RefreshAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "syncing with the remote store")
	}
	for id, reason := range snap.Degraded() {
		_, _ = warnColor.Fprintf(cli.out, "warning: %s could not be fetched: %s\n", id, reason)
	}
	return snap, nil
}
