package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/binfleet/app"
	"github.com/kilianp07/binfleet/config"
	"github.com/kilianp07/binfleet/infra/logger"
)

// options are the flags shared by every command.
type options struct {
	cfgPath      string
	snapshotPath string
	output       string
}

// NewRootCmd builds the command tree. Without a subcommand it serves the API.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "binfleet",
		Short:         "Waste collection dispatch service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (YAML or JSON); defaults and K_ env vars when empty")
	root.PersistentFlags().StringVarP(&opts.snapshotPath, "snapshot", "s", "", "roster snapshot file (YAML or JSON)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json, yaml or csv")

	root.AddCommand(
		newServeCmd(opts),
		newAssignCmd(opts),
		newRouteCmd(opts),
		newQuoteCmd(opts),
		newMaintenanceCmd(opts),
	)
	return root
}

// Execute runs the CLI.
func Execute() error { return NewRootCmd().Execute() }

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, opts)
		},
	}
}

func serve(cmd *cobra.Command, opts *options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}

// newService loads the configuration and the optional snapshot.
func newService(opts *options) (*app.Service, error) {
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	if opts.snapshotPath != "" {
		snap, err := LoadSnapshot(opts.snapshotPath)
		if err == nil {
			err = snap.Apply(svc.Roster)
		}
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

// oneShot runs fn against a fresh service and prints its result.
func oneShot(cmd *cobra.Command, opts *options, fn func(context.Context, *app.Service) (any, error)) error {
	svc, err := newService(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	res, err := fn(cmd.Context(), svc)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.output, res)
}
