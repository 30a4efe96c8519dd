package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
	"github.com/noahsabaj/voxelcore/internal/config"
	"github.com/noahsabaj/voxelcore/internal/engine"
	"github.com/noahsabaj/voxelcore/internal/lighting"
	"github.com/noahsabaj/voxelcore/internal/voxel"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark an individual subsystem in isolation",
}

var benchLightCmd = &cobra.Command{
	Use:   "light",
	Short: "Benchmark light propagation",
	Run:   runBenchLight,
}

var benchPhysicsCmd = &cobra.Command{
	Use:   "physics",
	Short: "Benchmark the physics solver",
	Run:   runBenchPhysics,
}

func init() {
	benchLightCmd.Flags().Int("iterations", 50, "number of ProcessPending calls to time")
	benchPhysicsCmd.Flags().Int("iterations", 500, "number of Step calls to time")
	benchCmd.AddCommand(benchLightCmd, benchPhysicsCmd)
}

// benchEngine builds a small, self-contained engine with a flat ground
// generator and loads a handful of chunks around the origin so the
// light and physics subsystems have real data to work against.
func benchEngine() (*engine.Engine, error) {
	cfg := config.Default()
	cfg.Storage.Backend = "local"
	cfg.Storage.LocalPath = os.TempDir()

	eng, err := engine.New(cfg, flatGroundGenerator(0))
	if err != nil {
		return nil, fmt.Errorf("constructing engine: %w", err)
	}

	ctx := context.Background()
	observer := engine.Observer{Position: [3]float64{0, 0, 0}}
	if err := eng.Tick(ctx, []engine.Observer{observer}, 1.0/60); err != nil {
		return nil, fmt.Errorf("priming engine: %w", err)
	}
	return eng, nil
}

func runBenchLight(cmd *cobra.Command, args []string) {
	iterations, _ := cmd.Flags().GetInt("iterations")

	eng, err := benchEngine()
	if err != nil {
		logger.Error("bench light: %v", err)
		os.Exit(1)
	}
	defer eng.Close()

	chunkSize := int32(eng.World.ChunkSize())
	for cx := int32(-1); cx <= 1; cx++ {
		for cz := int32(-1); cz <= 1; cz++ {
			pos := voxel.VoxelPos{X: cx * chunkSize, Y: chunkSize / 2, Z: cz * chunkSize}
			eng.Lighting.AddLight(pos, lighting.ChannelBlock, 15)
		}
	}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := eng.Lighting.ProcessPending(ctx, 4096); err != nil {
			logger.Error("bench light: process pending: %v", err)
			os.Exit(1)
		}
	}
	elapsed := time.Since(start)

	stats := eng.Lighting.SnapshotStats()
	fmt.Printf("light propagation: %d iterations in %s (%.3fms/iter), %d jobs processed\n",
		iterations, elapsed, float64(elapsed.Milliseconds())/float64(iterations), stats.Processed)
}

func runBenchPhysics(cmd *cobra.Command, args []string) {
	iterations, _ := cmd.Flags().GetInt("iterations")

	eng, err := benchEngine()
	if err != nil {
		logger.Error("bench physics: %v", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx := context.Background()
	const dt = 1.0 / 60
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := eng.Physics.Step(ctx, dt); err != nil {
			logger.Error("bench physics: step: %v", err)
			os.Exit(1)
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("physics step: %d iterations in %s (%.4fms/iter), %d bodies awake\n",
		iterations, elapsed, float64(elapsed.Microseconds())/1000/float64(iterations), eng.Physics.AwakeBodies())
}
