// Package main is the Space binary: an intermediate scheduler that
// registers with a Universe and accepts Computers.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Geurney/SpaceNetwork/config"
	"github.com/Geurney/SpaceNetwork/examples/fib"
	"github.com/Geurney/SpaceNetwork/runtime/space"
	"github.com/Geurney/SpaceNetwork/tracing"
	"github.com/Geurney/SpaceNetwork/transport/rpc"
)

var (
	configPath   string
	universeAddr string
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&universeAddr, "universe", "", "address of the Universe to register with (overrides config)")
}

var rootCmd = &cobra.Command{
	Use:           "space",
	Short:         "Run an intermediate scheduler of the task fabric",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "space:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := tracing.Init("space", "", ""); err != nil {
		return fmt.Errorf("space: tracing init failed: %w", err)
	}

	fib.RegisterTypes()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}
	if universeAddr != "" {
		cfg.Space.UniverseAddr = universeAddr
	}
	if err := cfg.Space.Validate(); err != nil {
		return err
	}

	scheduler := space.New(space.DefaultConfig())

	// Computers dial in at this fixed address (config.Space.ListenAddr),
	// separate from the ephemeral dial-back listener RegisterSpace opens
	// below for the Universe's SpaceProxy.
	endpoint, err := rpc.ServeSpace(cfg.Space.ListenAddr, scheduler)
	if err != nil {
		return fmt.Errorf("space: listen failed: %w", err)
	}
	defer endpoint.Close()
	log.Printf("space: listening on %s for computers", endpoint.Addr())

	universeClient, err := rpc.DialUniverse(cfg.Space.UniverseAddr)
	if err != nil {
		return fmt.Errorf("space: dial universe %s failed: %w", cfg.Space.UniverseAddr, err)
	}
	defer universeClient.Close()

	id, err := universeClient.RegisterSpace(ctx, scheduler)
	if err != nil {
		return fmt.Errorf("space: register with universe failed: %w", err)
	}
	log.Printf("space: registered with universe as space %d", id)

	<-ctx.Done()
	log.Println("space: shutdown signal received")
	return nil
}
