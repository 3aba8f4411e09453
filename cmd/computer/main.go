// Package main is the Computer binary: a worker process that registers
// with a Space and executes leaf tasks.
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
	"github.com/Geurney/SpaceNetwork/runtime/computer"
	"github.com/Geurney/SpaceNetwork/tracing"
	"github.com/Geurney/SpaceNetwork/transport/rpc"
)

var (
	configPath  string
	spaceAddr   string
	workerCount int
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&spaceAddr, "space", "", "address of the Space to register with (overrides config)")
	rootCmd.Flags().IntVar(&workerCount, "workers", 0, "worker goroutine count (overrides config; 0 keeps the configured value)")
}

var rootCmd = &cobra.Command{
	Use:           "computer",
	Short:         "Run a worker process of the task fabric",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "computer:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := tracing.Init("computer", "", ""); err != nil {
		return fmt.Errorf("computer: tracing init failed: %w", err)
	}

	fib.RegisterTypes()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}
	if spaceAddr != "" {
		cfg.Computer.SpaceAddr = spaceAddr
	}
	if workerCount > 0 {
		cfg.Computer.WorkerCount = workerCount
	}
	if err := cfg.Computer.Validate(); err != nil {
		return err
	}

	scheduler := computer.New(computer.Config{WorkerCount: cfg.Computer.WorkerCount})
	scheduler.Start(ctx)
	defer scheduler.Shutdown()

	// A Space dials in at this fixed address (config.Computer.ListenAddr),
	// separate from the ephemeral dial-back listener RegisterComputer
	// opens below for the Space's ComputerProxy.
	endpoint, err := rpc.ServeComputer(cfg.Computer.ListenAddr, scheduler)
	if err != nil {
		return fmt.Errorf("computer: listen failed: %w", err)
	}
	defer endpoint.Close()
	log.Printf("computer: listening on %s", endpoint.Addr())

	spaceClient, err := rpc.DialSpace(cfg.Computer.SpaceAddr)
	if err != nil {
		return fmt.Errorf("computer: dial space %s failed: %w", cfg.Computer.SpaceAddr, err)
	}
	defer spaceClient.Close()

	id, err := spaceClient.RegisterComputer(ctx, scheduler)
	if err != nil {
		return fmt.Errorf("computer: register with space failed: %w", err)
	}
	log.Printf("computer: registered with space as computer %d", id)

	<-ctx.Done()
	log.Println("computer: shutdown signal received")
	return nil
}
