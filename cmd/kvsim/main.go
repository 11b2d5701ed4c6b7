// cmd/kvsim is the CLI entry-point for running and checking simulations of
// the gossip membership + quorum replication system, built with Cobra per
// the teacher's cmd/client/main.go idiom.
//
// Usage:
//
//	kvsim run --nodes 5 --ticks 50 --scenario scenario.json --event-log events.ndjson
//	kvsim check --event-log events.ndjson
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "kvsim",
		Short: "Drive and check simulations of a gossip-membership, quorum-replicated key-value store",
	}

	root.AddCommand(runCmd(), checkCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
