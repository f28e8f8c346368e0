package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"posecast/cmd/cloud"
	"posecast/cmd/command"
	"posecast/cmd/edit"
	"posecast/cmd/hostload"
	"posecast/cmd/list"
	"posecast/cmd/monitor"
	"posecast/cmd/publish"
	"posecast/cmd/record"
	"posecast/cmd/subscribe"
	"posecast/internal/pubsub"
)

func publishCmd() *cobra.Command {
	var opts publish.Options

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a demo pose pattern",
		Long: `Publish one of the built-in pose patterns on the pose group.

Patterns:
  bounce  a sphere and line sweep down and up four times, then the sphere is deleted
  rotate  a cube rotates about the y axis

Examples:
  posecast publish
  posecast publish --pattern=rotate --cycles=3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return publish.Run(configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Pattern, "pattern", "p", publish.PatternBounce, "Pattern to play (bounce, rotate)")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 0, "Rotate cycles before stopping (0 runs until interrupted)")

	return cmd
}

func cloudCmd() *cobra.Command {
	opts := cloud.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Publish a demo point cloud",
		Long: `Publish a circle of points on the cloud group, restated every period.

With --parent the circle is drawn in that object's frame and follows it.

Examples:
  posecast cloud
  posecast cloud --parent="" --points=500 --color=Red`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cloud.Run(configPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", opts.ID, "Cloud identifier")
	cmd.Flags().StringVar(&opts.ParentFrame, "parent", opts.ParentFrame, "Object whose pose anchors the cloud (empty for the origin)")
	cmd.Flags().IntVar(&opts.Points, "points", opts.Points, "Number of points")
	cmd.Flags().StringVar(&opts.Color, "color", opts.Color, "Palette color")
	cmd.Flags().DurationVar(&opts.Period, "period", opts.Period, "Restate period")

	return cmd
}

func commandCmd() *cobra.Command {
	var opts command.Options

	cmd := &cobra.Command{
		Use:   "command",
		Short: "Send a click command",
		Long: `Send a click command on the command group.

Either give --point and --angle directly, or --from and --to to derive them
from a drag gesture.

Examples:
  posecast command --point=1,2 --angle=0.5
  posecast command --from=0,0 --to=1,1 --count=3 --interval=500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.Run(configPath, opts)
		},
	}

	cmd.Flags().Uint32Var(&opts.ID, "id", 0, "Id of the first command")
	cmd.Flags().StringVar(&opts.Point, "point", "", "Clicked point as x,y[,z]")
	cmd.Flags().Float64Var(&opts.Angle, "angle", 0, "Heading in radians")
	cmd.Flags().Float64Var(&opts.Length, "length", 0, "Gesture length")
	cmd.Flags().StringVar(&opts.From, "from", "", "Drag start as x,y[,z]")
	cmd.Flags().StringVar(&opts.To, "to", "", "Drag end as x,y[,z]")
	cmd.Flags().IntVar(&opts.Count, "count", 1, "Number of commands to send")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "Delay between repeated commands")

	return cmd
}

func subscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "subscribe [pose|cloud|command]",
		Short:     "Print decoded messages from a group as JSON lines",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{pubsub.KindPose, pubsub.KindCloud, pubsub.KindCommand},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := pubsub.KindPose
			if len(args) == 1 {
				kind = args[0]
			}
			return subscribe.Run(configPath, kind)
		},
	}
}

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Keep a live replica of the scene",
		Long: `Subscribe to all three groups, maintain the replica, print a summary on
every change and answer "posecast list" over the local RPC socket. When
monitor.status_addr is set, metrics and a JSON view are served over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.Run(configPath)
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the objects and clouds a running monitor holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return list.Run(configPath)
		},
	}
}

func hostloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hostload",
		Short: "Publish this host's CPU and memory load as a cube",
		RunE: func(cmd *cobra.Command, args []string) error {
			return hostload.Run(configPath)
		},
	}
}

func recordCmd() *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record multicast traffic into a session",
		Long: `Capture raw datagrams from the chosen groups into the recorder database
until interrupted. Sessions older than recorder.retention are pruned.

Examples:
  posecast record
  posecast record --kinds=pose,cloud
  posecast record list
  posecast record replay <session> --speed=2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return record.Record(configPath, kinds)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds",
		[]string{pubsub.KindPose, pubsub.KindCloud, pubsub.KindCommand}, "Groups to capture")

	var speed float64
	replayCmd := &cobra.Command{
		Use:   "replay <session>",
		Short: "Retransmit a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return record.Replay(configPath, args[0], speed)
		},
	}
	replayCmd.Flags().Float64Var(&speed, "speed", 1, "Playback speed multiplier")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recorded sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return record.List(configPath)
			},
		},
		replayCmd,
		&cobra.Command{
			Use:   "delete <session>",
			Short: "Delete a recorded session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return record.Delete(configPath, args[0])
			},
		},
	)

	return cmd
}

func editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the configuration file in your system editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return edit.Run(configPath)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("posecast %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
