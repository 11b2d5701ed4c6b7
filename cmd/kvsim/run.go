package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distributed-kvstore/internal/api"
	"distributed-kvstore/internal/sim"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var (
		numNodes  int
		ticks     int
		dropProb  float64
		dupProb   float64
		seed      uint64
		scenario  string
		eventLog  string
		serveAddr string
		serve     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation to completion, optionally serving a read-only introspection API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventLog == "" {
				return fmt.Errorf("--event-log is required")
			}

			var s *sim.Simulation
			var err error

			if scenario != "" {
				sc, loadErr := sim.LoadScenario(scenario)
				if loadErr != nil {
					return loadErr
				}
				s, err = sim.RunScenario(sc, eventLog)
				if err != nil {
					return err
				}
				log.Printf("ran scenario %s for %d ticks", scenario, sc.Ticks)
			} else {
				s, err = sim.New(sim.Config{
					NumNodes:             numNodes,
					DropProbability:      dropProb,
					DuplicateProbability: dupProb,
					Seed:                 seed,
					EventLogPath:         eventLog,
				})
				if err != nil {
					return err
				}
				s.Start()
				s.Run(ticks)
				log.Printf("ran %d nodes for %d ticks", numNodes, ticks)
			}
			defer s.Close()

			if !serve {
				return nil
			}
			return serveIntrospection(s, serveAddr)
		},
	}

	cmd.Flags().IntVar(&numNodes, "nodes", 5, "number of simulated nodes (ignored with --scenario)")
	cmd.Flags().IntVar(&ticks, "ticks", 50, "number of ticks to run (ignored with --scenario)")
	cmd.Flags().Float64Var(&dropProb, "drop-probability", 0, "probability a sent message is dropped")
	cmd.Flags().Float64Var(&dupProb, "duplicate-probability", 0, "probability a sent message is delivered twice")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "network unreliability RNG seed")
	cmd.Flags().StringVar(&scenario, "scenario", "", "path to a scenario JSON file (overrides --nodes/--ticks)")
	cmd.Flags().StringVar(&eventLog, "event-log", "", "path to write the NDJSON event log (required)")
	cmd.Flags().BoolVar(&serve, "serve", false, "serve a read-only introspection API after the run completes")
	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "introspection API listen address")

	return cmd
}

// serveIntrospection starts the read-only Gin API and blocks until
// SIGINT/SIGTERM, mirroring the teacher's cmd/server/main.go graceful
// shutdown shape.
func serveIntrospection(s *sim.Simulation, addr string) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(), api.Recovery())
	api.NewHandler(s).Register(router)

	srv := &http.Server{Addr: addr, Handler: router, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		log.Printf("introspection API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
