// Package main is the Server binary: the client tier that submits a
// Fibonacci task to the Universe and waits for its final value.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Geurney/SpaceNetwork/examples/fib"
	"github.com/Geurney/SpaceNetwork/model/task"
	"github.com/Geurney/SpaceNetwork/model/taskid"
	"github.com/Geurney/SpaceNetwork/runtime/server"
	"github.com/Geurney/SpaceNetwork/tracing"
	"github.com/Geurney/SpaceNetwork/transport/rpc"
)

var (
	universeAddr string
	n            int
	clientTaskID int
)

func init() {
	rootCmd.Flags().StringVar(&universeAddr, "universe", ":9000", "address of the Universe to submit to")
	rootCmd.Flags().IntVar(&n, "n", 10, "Fibonacci index to compute")
	rootCmd.Flags().IntVar(&clientTaskID, "task-id", 1, "client-assigned id for the submitted task")
}

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Submit a Fibonacci task to the task fabric and print its result",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := tracing.Init("server", "", ""); err != nil {
		return fmt.Errorf("server: tracing init failed: %w", err)
	}

	fib.RegisterTypes()

	scheduler := server.New()

	universeClient, err := rpc.DialUniverse(universeAddr)
	if err != nil {
		return fmt.Errorf("server: dial universe %s failed: %w", universeAddr, err)
	}
	defer universeClient.Close()

	serverID, err := universeClient.RegisterServer(ctx, scheduler)
	if err != nil {
		return fmt.Errorf("server: register with universe failed: %w", err)
	}
	log.Printf("server: registered with universe as server %d", serverID)

	id := taskid.ID{
		ClientTaskID: clientTaskID,
		ServerID:     serverID,
		ClientSerial: 1,
		HasRouting:   true,
	}
	scheduler.Submit(fib.NewFibTask(id, n))
	log.Printf("server: submitted %s for fib(%d)", id, n)

	result, err := scheduler.Await(ctx)
	if err != nil {
		return fmt.Errorf("server: awaiting result failed: %w", err)
	}

	switch r := result.(type) {
	case *task.ValueResult[int]:
		fmt.Printf("fib(%d) = %d\n", n, r.Value())
	default:
		fmt.Printf("server: unexpected result type %T: %+v\n", r, r)
	}
	return nil
}
