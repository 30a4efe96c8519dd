package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
	"github.com/noahsabaj/voxelcore/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the fully resolved configuration as JSON",
	Run:   runConfigDump,
}

func init() {
	configDumpCmd.Flags().String("config", "", "path to a YAML/JSON config file (defaults built in if omitted)")
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("loading configuration: %v", err)
		os.Exit(1)
	}

	fmt.Println(cfg.String())
}
