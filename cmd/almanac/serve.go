package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/almanac"
	"github.com/praetorian-inc/almanac/pkg/engine"
	"github.com/praetorian-inc/almanac/pkg/serve"
	"github.com/spf13/cobra"
)

var (
	serveAlmanac string
	serveWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming NDJSON server",
	Long: `Run Almanac as a long-lived streaming server that accepts lookup, resolve
and solve requests via stdin and writes responses to stdout using NDJSON format.

The process loads the almanac once at startup and processes requests until
stdin closes, a close request arrives, or SIGTERM is received.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAlmanac, "almanac", "builtin", "Almanac file, or builtin[:name]")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 4, "Number of goroutines resolving ranges")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadAlmanacArg(serveAlmanac)
	if err != nil {
		return fmt.Errorf("loading almanac: %w", err)
	}

	core, err := engine.NewCoreFromAlmanac(a, logger, almanac.WithWorkers(serveWorkers))
	if err != nil {
		return err
	}
	defer core.Close()

	// Set up signal handling
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Create and run server
	srv := serve.NewServer(core, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	return srv.Run(ctx)
}
