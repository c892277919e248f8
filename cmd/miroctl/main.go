package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot wires the flag structs into the subcommand tree.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	imageFlags := &ImageFlags{}
	shapeFlags := &ShapeFlags{}
	logsFlags := &LogsFlags{}
	serveFlags := &ServeFlags{}
	healthFlags := &HealthFlags{}
	historyFlags := &HistoryFlags{}

	c := command{global: globalFlags, image: imageFlags, shape: shapeFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStartCommand(c),
		createStopCommand(c),
		createRestartCommand(c),
		createStatusCommand(c),
		createLogsCommand(c, logsFlags),
		createMonitorCommand(c),
		createServeCommand(c, serveFlags),
		createHealthCommand(c, healthFlags),
		createHistoryCommand(c, historyFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "miroctl",
		Short: "Supervisor for the MiroImage and MiroShape inference servers",
		Long: `Miroctl launches and supervises the two GPU-backed model servers behind the
Miro pipeline: the image-editing server (miroimage) and the image-to-3D
shape-generation server (miroshape).

Examples:
  miroctl start                 # launch both servers
  miroctl status                # check what is running
  miroctl logs miroimage 100    # tail the image server log
  miroctl monitor               # live status + log tails
  miroctl serve                 # read-only status HTTP API`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.PIDDir, "pid-dir", "./run", "directory for pid files")
	root.PersistentFlags().StringVar(&flags.LogDir, "log-dir", "./logs", "directory for service logs")
	return root
}
