package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/intimeai/miroctl/internal/config"
	"github.com/intimeai/miroctl/internal/history"
	"github.com/intimeai/miroctl/internal/history/factory"
	"github.com/intimeai/miroctl/internal/logger"
	"github.com/intimeai/miroctl/internal/metrics"
	"github.com/intimeai/miroctl/internal/server"
	"github.com/intimeai/miroctl/internal/service"
	"github.com/intimeai/miroctl/internal/supervisor"
	"github.com/intimeai/miroctl/pkg/client"
)

// command bundles the flag structs so subcommand constructors stay small.
type command struct {
	global *GlobalFlags
	image  *ImageFlags
	shape  *ShapeFlags
}

// loadConfig builds the effective configuration: defaults, then the TOML file,
// then any flag the user actually set on this invocation.
func (c command) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(c.global.ConfigPath)
	if err != nil {
		return cfg, err
	}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.Root().PersistentFlags().Lookup(name)
		}
		return f != nil && f.Changed
	}
	if changed("pid-dir") {
		cfg.PIDDir = c.global.PIDDir
	}
	if changed("log-dir") {
		cfg.Log.Dir = c.global.LogDir
	}
	if changed("image-gpu") {
		cfg.Image.GPU = c.image.GPU
	}
	if changed("image-host") {
		cfg.Image.Host = c.image.Host
	}
	if changed("image-port") {
		cfg.Image.Port = c.image.Port
	}
	if changed("image-model-path") {
		cfg.Image.ModelPath = c.image.ModelPath
	}
	if changed("image-model-name") {
		cfg.Image.ModelName = c.image.ModelName
	}
	if changed("shape-gpu") {
		cfg.Shape.GPU = c.shape.GPU
	}
	if changed("shape-host") {
		cfg.Shape.Host = c.shape.Host
	}
	if changed("shape-port") {
		cfg.Shape.Port = c.shape.Port
	}
	if changed("shape-model-path") {
		cfg.Shape.ModelPath = c.shape.ModelPath
	}
	if changed("shape-output-dir") {
		cfg.Shape.OutputDir = c.shape.OutputDir
	}
	return cfg, cfg.Validate()
}

// newSupervisor assembles a supervisor with the console logger and, when the
// config lists history DSNs, a lifecycle event recorder. The returned cleanup
// closes the recorder's sinks.
func (c command) newSupervisor(cmd *cobra.Command) (*supervisor.Supervisor, config.Config, func(), error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, cfg, nil, err
	}
	log := logger.NewConsole(slog.LevelInfo)
	opts := []supervisor.Option{supervisor.WithLogger(log)}
	cleanup := func() {}
	if len(cfg.History.DSNs) > 0 {
		sinks, err := factory.NewSinks(cfg.History.DSNs)
		if err != nil {
			return nil, cfg, nil, fmt.Errorf("open history sinks: %w", err)
		}
		rec := history.NewRecorder(log, sinks...)
		opts = append(opts, supervisor.WithRecorder(rec))
		cleanup = rec.Close
	}
	return supervisor.New(cfg, opts...), cfg, cleanup, nil
}

// resolveTargets maps the positional selector to service names. No argument
// and "all" both mean every service.
func resolveTargets(args []string) ([]service.Name, error) {
	if len(args) == 0 || args[0] == "all" {
		return service.All(), nil
	}
	name, err := service.Parse(args[0])
	if err != nil {
		return nil, err
	}
	return []service.Name{name}, nil
}

// lifecycle runs op against the selected services. Failures are logged but do
// not change the exit code: a start that fails its settle window or a stop of
// an idle service still leaves the system in a reportable state, and operators
// read the log, not $?. Only an unusable selector or config is a hard error.
func (c command) lifecycle(cmd *cobra.Command, args []string,
	op func(context.Context, *supervisor.Supervisor, service.Name) error) error {
	targets, err := resolveTargets(args)
	if err != nil {
		return err
	}
	sup, _, cleanup, err := c.newSupervisor(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()
	for _, name := range targets {
		if err := op(ctx, sup, name); err != nil &&
			!errors.Is(err, supervisor.ErrAlreadyRunning) && !errors.Is(err, supervisor.ErrNotRunning) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
		}
	}
	return nil
}

func createStartCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [miroimage|miroshape|all]",
		Short: "Start model services",
		Long: `Start one or both model services in the background.

Each service is launched with its environment contract (CUDA_VISIBLE_DEVICES,
host, port, model path) and observed for a settle window; a child that exits
during the window is reported as a failed start and its pid file is removed.

Examples:
  miroctl start                # start both services
  miroctl start miroimage      # start only the image-editing server
  miroctl start miroshape --shape-gpu=2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.lifecycle(cmd, args, func(ctx context.Context, s *supervisor.Supervisor, n service.Name) error {
				return s.Start(ctx, n)
			})
		},
	}
	addImageFlags(cmd, c.image)
	addShapeFlags(cmd, c.shape)
	return cmd
}

func createStopCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [miroimage|miroshape|all]",
		Short: "Stop model services",
		Long: `Stop one or both model services: SIGTERM to the process group, a bounded
wait, then SIGKILL if the process lingers. Stopping an idle service is not an
error.

Examples:
  miroctl stop
  miroctl stop miroimage`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.lifecycle(cmd, args, func(ctx context.Context, s *supervisor.Supervisor, n service.Name) error {
				return s.Stop(ctx, n)
			})
		},
	}
}

func createRestartCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart [miroimage|miroshape|all]",
		Short: "Restart model services",
		Long: `Stop then start one or both model services, waiting out the restart delay
in between so ports and GPU memory are released.

Examples:
  miroctl restart
  miroctl restart miroshape`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.lifecycle(cmd, args, func(ctx context.Context, s *supervisor.Supervisor, n service.Name) error {
				return s.Restart(ctx, n)
			})
		},
	}
	addImageFlags(cmd, c.image)
	addShapeFlags(cmd, c.shape)
	return cmd
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Long: `Show the status of both model services. Status is strictly read-only: it
never removes stale pid files or signals processes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _, cleanup, err := c.newSupervisor(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			printStatuses(cmd, sup.Statuses())
			return nil
		},
	}
}

func printStatuses(cmd *cobra.Command, statuses []supervisor.Status) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tPID\tLOG")
	for _, st := range statuses {
		state, pid := "stopped", "-"
		if st.Running {
			state = "running"
			pid = fmt.Sprintf("%d", st.PID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Service, state, pid, st.LogFile)
	}
	_ = w.Flush()
}

func createLogsCommand(c command, flags *LogsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <miroimage|miroshape|all> [lines]",
		Short: "Show the tail of a service log",
		Long: `Print the last N lines of a service's combined stdout/stderr log.
With "all", each service's tail is printed under a header and services without
a log yet are skipped.

Examples:
  miroctl logs miroimage
  miroctl logs miroshape 200
  miroctl logs all --lines=200`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := flags.Lines
			if len(args) > 1 {
				if _, err := fmt.Sscanf(args[1], "%d", &lines); err != nil || lines < 0 {
					return fmt.Errorf("invalid line count %q", args[1])
				}
			}
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if args[0] == "all" {
				for _, name := range service.All() {
					fmt.Fprintf(cmd.OutOrStdout(), "=== %s ===\n", name)
					out, err := supervisor.Tail(cfg.LogFile(name), lines)
					if err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "(no log: %v)\n", err)
						continue
					}
					for _, line := range out {
						fmt.Fprintln(cmd.OutOrStdout(), line)
					}
				}
				return nil
			}
			name, err := service.Parse(args[0])
			if err != nil {
				return err
			}
			out, err := supervisor.Tail(cfg.LogFile(name), lines)
			if err != nil {
				// a service that never started has no log yet
				if errors.Is(err, fs.ErrNotExist) {
					fmt.Fprintf(cmd.OutOrStdout(), "(no log for %s yet: %s)\n", name, cfg.LogFile(name))
					return nil
				}
				return fmt.Errorf("read log for %s: %w", name, err)
			}
			for _, line := range out {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flags.Lines, "lines", 50, "number of lines to show")
	return cmd
}

func createMonitorCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Continuously display service status and log tails",
		Long: `Redraw service status and the last log lines of each running service on an
interval until interrupted with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _, cleanup, err := c.newSupervisor(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := sup.Monitor(ctx, cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func createServeCommand(c command, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only status HTTP API",
		Long: `Serve the supervisor's status view over HTTP, with Prometheus metrics on
/metrics. The API is read-only; lifecycle changes stay on the CLI.

Examples:
  miroctl serve
  miroctl serve --listen=0.0.0.0:9090 --base-path=/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, cfg, cleanup, err := c.newSupervisor(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if cmd.Flags().Changed("listen") {
				cfg.Server.Listen = flags.Listen
			}
			if cmd.Flags().Changed("base-path") {
				cfg.Server.BasePath = flags.BasePath
			}
			if err := metrics.RegisterDefault(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: metrics registration failed: %v\n", err)
			}
			srv := server.NewServer(cfg.Server.Listen, cfg.Server.BasePath, sup)
			fmt.Fprintf(cmd.OutOrStdout(), "serving status API on %s%s\n", cfg.Server.Listen, cfg.Server.BasePath)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shCtx)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "127.0.0.1:9090", "listen address")
	cmd.Flags().StringVar(&flags.BasePath, "base-path", "/api", "base path for API routes")
	return cmd
}

func createHealthCommand(c command, flags *HealthFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the model servers over HTTP",
		Long: `Check whether each model server answers on its root endpoint. This goes
beyond the process-table check of status: a process can be alive while the
model is still loading and the port not yet bound.

Examples:
  miroctl health
  miroctl health --timeout=10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			hc := client.New(client.Config{Timeout: flags.Timeout})
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tURL\tREACHABLE\tDETAIL")
			for _, name := range service.All() {
				spec, err := cfg.Spec(name)
				if err != nil {
					return err
				}
				h, err := hc.Probe(cmd.Context(), client.BaseURL(spec.Host, spec.Port))
				if err != nil {
					return err
				}
				detail := h.Err
				if h.Reachable {
					detail = fmt.Sprintf("%s in %s", versionOf(h), h.Latency.Round(time.Millisecond))
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", name, h.URL, h.Reachable, detail)
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 5*time.Second, "per-probe timeout")
	return cmd
}

func versionOf(h client.Health) string {
	if h.Info == nil || h.Info.Version == "" {
		return "ok"
	}
	return "v" + h.Info.Version
}

func createHistoryCommand(c command, flags *HistoryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lifecycle events",
		Long: `List the most recent start/stop events recorded in the history sinks.
Requires at least one queryable (sqlite) DSN under [history] in the config.

Examples:
  miroctl history
  miroctl history --limit=100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			events, err := recentEvents(cmd.Context(), cfg.History.DSNs, flags.Limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSERVICE\tEVENT\tPID\tDETAIL")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					e.OccurredAt.Format(time.RFC3339), e.Service, e.Type, e.PID, e.Detail)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&flags.Limit, "limit", 50, "maximum number of events to show")
	return cmd
}

// recentEvents queries the first DSN whose sink can read events back.
func recentEvents(ctx context.Context, dsns []string, limit int) ([]history.Event, error) {
	if len(dsns) == 0 {
		return nil, errors.New("no history sinks configured; set [history] dsns in the config file")
	}
	for _, dsn := range dsns {
		sink, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			return nil, err
		}
		q, ok := sink.(history.Querier)
		if !ok {
			_ = sink.Close()
			continue
		}
		defer func() { _ = sink.Close() }()
		return q.Recent(ctx, limit)
	}
	return nil, errors.New("no queryable history sink configured (sqlite required)")
}

func addImageFlags(cmd *cobra.Command, f *ImageFlags) {
	cmd.Flags().StringVar(&f.GPU, "image-gpu", "0", "CUDA device for the image-editing server")
	cmd.Flags().StringVar(&f.Host, "image-host", "0.0.0.0", "bind host for the image-editing server")
	cmd.Flags().IntVar(&f.Port, "image-port", 8081, "bind port for the image-editing server")
	cmd.Flags().StringVar(&f.ModelPath, "image-model-path", "", "model path for the image-editing server")
	cmd.Flags().StringVar(&f.ModelName, "image-model-name", "", "served model name for the image-editing server")
}

func addShapeFlags(cmd *cobra.Command, f *ShapeFlags) {
	cmd.Flags().StringVar(&f.GPU, "shape-gpu", "1", "CUDA device for the shape-generation server")
	cmd.Flags().StringVar(&f.Host, "shape-host", "0.0.0.0", "bind host for the shape-generation server")
	cmd.Flags().IntVar(&f.Port, "shape-port", 8080, "bind port for the shape-generation server")
	cmd.Flags().StringVar(&f.ModelPath, "shape-model-path", "", "model path for the shape-generation server")
	cmd.Flags().StringVar(&f.OutputDir, "shape-output-dir", "", "generated asset directory for the shape server")
}
