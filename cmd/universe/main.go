// Package main is the Universe binary: the root broker of the task
// fabric.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Geurney/SpaceNetwork/checkpoint"
	"github.com/Geurney/SpaceNetwork/config"
	"github.com/Geurney/SpaceNetwork/examples/fib"
	"github.com/Geurney/SpaceNetwork/runtime/universe"
	"github.com/Geurney/SpaceNetwork/tracing"
	"github.com/Geurney/SpaceNetwork/transport/rpc"
)

var (
	configPath  string
	recoverFlag bool
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (see config.Config)")
	rootCmd.Flags().BoolVar(&recoverFlag, "recover", false, "load the last checkpoint before serving")
}

var rootCmd = &cobra.Command{
	Use:           "universe",
	Short:         "Run the root broker of the task fabric",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "universe:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := tracing.Init("universe", "", ""); err != nil {
		return fmt.Errorf("universe: tracing init failed: %w", err)
	}

	fib.RegisterTypes()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}
	if err := cfg.Universe.Validate(); err != nil {
		return err
	}

	checkpointer := checkpoint.New(cfg.Universe.CheckpointPath)
	scheduler := universe.New(checkpointer, universe.DefaultConfig())

	if recoverFlag || cfg.Universe.Recover {
		record, found, err := checkpointer.Load(ctx)
		if err != nil {
			log.Printf("universe: recovery load failed, starting fresh: %v", err)
		} else if found {
			scheduler.Restore(record.ReadyTasks)
			log.Printf("universe: restored %d ready tasks from %s (checkpointed at %s)",
				len(record.ReadyTasks), cfg.Universe.CheckpointPath, record.CreatedAt.Format(time.RFC3339))
		}
	}

	endpoint, err := rpc.ServeUniverse(cfg.Universe.ListenAddr, scheduler)
	if err != nil {
		return fmt.Errorf("universe: listen failed: %w", err)
	}
	defer endpoint.Close()
	log.Printf("universe: listening on %s", endpoint.Addr())

	ticker := time.NewTicker(cfg.Universe.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("universe: shutdown signal received, writing final checkpoint")
			finalCtx, finalCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := scheduler.Checkpoint(finalCtx); err != nil {
				log.Printf("universe: final checkpoint failed: %v", err)
			}
			finalCancel()
			return nil
		case <-ticker.C:
			if err := scheduler.Checkpoint(ctx); err != nil {
				log.Printf("universe: checkpoint failed: %v", err)
			}
		}
	}
}
