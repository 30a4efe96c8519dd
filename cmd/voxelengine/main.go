// Command voxelengine runs and inspects the voxel engine core: serving
// a headless tick loop, dumping the resolved configuration, or
// benchmarking an individual subsystem in isolation.
package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
)

var rootCmd = &cobra.Command{
	Use:   "voxelengine",
	Short: "Voxel world engine core",
	Long: `voxelengine drives the tri-layered voxel world engine core: chunk
storage, disk<->resident paging, parallel light propagation, and the
fixed-timestep physics solver.

  • serve        - run a headless tick loop against a configuration
  • config dump  - print the fully resolved configuration
  • bench light  - benchmark light propagation in isolation
  • bench physics - benchmark the physics solver in isolation`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	logLevel := os.Getenv("VOXELCORE_LOG_LEVEL")
	switch strings.ToLower(logLevel) {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn", "warning":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	default:
		logger.SetLevel(logger.INFO)
	}

	rootCmd.AddCommand(serveCmd, configCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed: %v", err)
		os.Exit(1)
	}
}
