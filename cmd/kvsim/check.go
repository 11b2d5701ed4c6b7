package main

import (
	"fmt"
	"os"

	"distributed-kvstore/internal/checker"
	"distributed-kvstore/internal/eventlog"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var eventLog string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Replay an event log and report any invariant violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventLog == "" {
				return fmt.Errorf("--event-log is required")
			}

			events, err := eventlog.ReadAll(eventLog)
			if err != nil {
				return err
			}

			report := checker.Check(events)
			fmt.Printf("events: %d NodeAdd, %d NodeRemove, %d resolved transactions\n",
				report.NodeAdds, report.NodeRemoves, report.Resolved)

			if report.OK() {
				fmt.Println("OK: no violations found")
				return nil
			}

			for _, v := range report.Violations {
				fmt.Printf("tick %d: %s: %s\n", v.Tick, v.Rule, v.Detail)
			}
			os.Exit(1)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventLog, "event-log", "", "path to the NDJSON event log to replay (required)")
	return cmd
}
