package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "raggedbooks",
		Short:         "Index PDF books and answer questions from them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./raggedbooks.{yaml,toml,json})")

	cfgPathFn := func() string { return cfgPath }
	root.AddCommand(
		importFileCMD(cfgPathFn),
		importFolderCMD(cfgPathFn),
		searchCMD(cfgPathFn),
		booksCMD(cfgPathFn),
		removeCMD(cfgPathFn),
		runsCMD(cfgPathFn),
		serveCMD(cfgPathFn),
		watchCMD(cfgPathFn),
		modelsCMD(cfgPathFn),
	)
	return root
}
