// posecast shares object poses, point clouds and click commands over UDP
// multicast.
//
// Usage:
//
//	posecast publish  run a demo pose pattern
//	posecast cloud    publish a demo point cloud
//	posecast monitor  keep a live replica and serve it over RPC
//	posecast list     query a running monitor
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	defaultSystemPath = "/etc/posecast/config.toml"
	defaultLocalPath  = "posecast.toml"
)

// Version information set at build time.
var version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "posecast",
		Short: "Soft-state pose and point-cloud sharing over UDP multicast",
		Long: `posecast publishes and mirrors a shared scene of named objects.

Publishers restate object poses on a multicast group; every subscriber
keeps its own replica, and entries that are not restated within their
timeout disappear on their own. Point clouds travel on a second group
and may be anchored to an object's pose. A third group carries click
commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configPath = resolveConfig(configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		fmt.Sprintf("Path to config file (default: looks for ./%s, then %s)", defaultLocalPath, defaultSystemPath))

	rootCmd.AddCommand(
		publishCmd(),
		cloudCmd(),
		commandCmd(),
		subscribeCmd(),
		monitorCmd(),
		listCmd(),
		hostloadCmd(),
		recordCmd(),
		editCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig auto-discovers the config file when none was given.
func resolveConfig(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(defaultLocalPath); err == nil {
		return defaultLocalPath
	}
	return defaultSystemPath
}
