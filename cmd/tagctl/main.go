package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:           "tagctl",
		Short:         "tagctl - operator tool for the tag redirect service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to YAML config file")
	root.PersistentFlags().StringVar(&opts.actor, "actor", "cli", "actor recorded in the audit log")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "developer mode (console logs)")

	root.AddCommand(importCmd(opts))
	root.AddCommand(exportCmd(opts))
	root.AddCommand(generateCmd(opts))
	root.AddCommand(blockCmd(opts, true))
	root.AddCommand(blockCmd(opts, false))
	root.AddCommand(statsCmd(opts))
	root.AddCommand(auditCmd(opts))
	root.AddCommand(hashPasswordCmd())
	return root
}
