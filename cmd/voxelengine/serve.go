package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
	"github.com/noahsabaj/voxelcore/internal/config"
	"github.com/noahsabaj/voxelcore/internal/engine"
	"github.com/noahsabaj/voxelcore/internal/voxel"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a headless engine tick loop",
	Long:  "Start the engine core and drive its tick loop until interrupted.",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "path to a YAML/JSON config file (defaults built in if omitted)")
	serveCmd.Flags().Int("metrics-port", 9477, "port to serve Prometheus metrics on")
	serveCmd.Flags().Float64("tick-rate", 60, "ticks per second")
}

func runServe(cmd *cobra.Command, args []string) {
	configPath, _ := cmd.Flags().GetString("config")
	metricsPort, _ := cmd.Flags().GetInt("metrics-port")
	tickRate, _ := cmd.Flags().GetFloat64("tick-rate")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("loading configuration: %v", err)
		os.Exit(1)
	}

	eng, err := engine.New(cfg, flatGroundGenerator(0))
	if err != nil {
		logger.Error("constructing engine: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(eng.Metrics.Registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", metricsPort), Handler: mux}
	go func() {
		logger.Info("serving metrics on :%d/metrics", metricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	observers := []engine.Observer{{ID: uuid.New(), Position: [3]float64{0, 0, 0}}}
	dt := 1.0 / tickRate
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	logger.Info("engine started, ticking at %.1f Hz", tickRate)

loop:
	for {
		select {
		case <-ticker.C:
			if err := eng.Tick(ctx, observers, dt); err != nil {
				logger.Error("tick failed: %v", err)
			}
		case sig := <-sigCh:
			logger.Info("received signal %v, shutting down", sig)
			break loop
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	cancel()
	if err := eng.Close(); err != nil {
		logger.Error("engine shutdown: %v", err)
		os.Exit(1)
	}
}

// flatGroundGenerator builds a GenerateChunkFunc that fills every voxel
// at or below groundY with a single solid block id and leaves the rest
// air, for a minimal runnable world with no asset pipeline.
func flatGroundGenerator(groundY int32) func(pos voxel.ChunkPos, size uint32) *voxel.Chunk {
	const solid = voxel.BlockID(1)
	return func(pos voxel.ChunkPos, size uint32) *voxel.Chunk {
		chunk := voxel.NewChunk(pos, size)
		baseY := pos.Y * int32(size)
		for y := uint32(0); y < size; y++ {
			if baseY+int32(y) > groundY {
				continue
			}
			for x := uint32(0); x < size; x++ {
				for z := uint32(0); z < size; z++ {
					chunk.SetBlock(x, y, z, solid)
				}
			}
		}
		return chunk
	}
}
