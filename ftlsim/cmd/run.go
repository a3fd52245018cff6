package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/monitoring"
	"github.com/sarchlab/ftlsim/ssd"
	"github.com/sarchlab/ftlsim/tracing"
	"github.com/sarchlab/ftlsim/workload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRunCmd() *cobra.Command {
	run := &cobra.Command{
		Use:   "run [trace]",
		Short: "Replay a trace against a simulated device.",
		Long: "Replay a trace against a simulated device and report the " +
			"device counters. The trace is read from stdin when omitted " +
			"or given as -.",
		Args: cobra.MaximumNArgs(1),
		RunE: runTrace,
	}

	run.Flags().String("policy", "",
		"Reclamation policy overriding the configuration: "+
			"fifo, lru, greedy, or cost-benefit.")
	run.Flags().String("record", "",
		"Record tasks, merges, and block wear into this SQLite database "+
			"(without the .sqlite3 suffix).")
	run.Flags().Bool("monitor", false, "Serve a monitoring web page.")
	run.Flags().Int("monitor-port", 0,
		"Port of the monitoring server. A random port is used when 0.")
	run.Flags().Bool("open-browser", false,
		"Open the monitoring page in a browser.")

	return run
}

type runSession struct {
	dev      *ssd.Device
	steps    *tracing.StepCountTracer
	times    map[ssd.HostOp]*tracing.TotalTimeTracer
	monitor  *monitoring.Monitor
	backend  datarecording.DataRecorder
	recorder *ssd.Recorder
}

func runTrace(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reqs, err := readTrace(cmd, args)
	if err != nil {
		return err
	}

	s, err := newRunSession(cmd, logger)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, err := s.replay(ctx, reqs, logger)
	if err != nil {
		return err
	}

	s.print(cmd.OutOrStdout(), report)

	if report.Mismatches > 0 {
		return fmt.Errorf("%d reads returned unexpected data",
			report.Mismatches)
	}

	return nil
}

func readTrace(cmd *cobra.Command, args []string) ([]workload.Request, error) {
	var in io.Reader = cmd.InOrStdin()

	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()

		in = f
	}

	return workload.Parse(in)
}

func newRunSession(cmd *cobra.Command, logger *zap.Logger) (*runSession, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if name, _ := cmd.Flags().GetString("policy"); name != "" {
		cfg.Policy, err = ftl.ParsePolicyKind(name)
		if err != nil {
			return nil, err
		}
	}

	s := &runSession{
		dev:   cfg.Builder().WithLogger(logger).Build("SSD"),
		steps: tracing.NewStepCountTracer(tracing.KindIs("host")),
		times: make(map[ssd.HostOp]*tracing.TotalTimeTracer),
	}
	tracing.CollectTrace(s.dev, s.steps)

	for _, op := range hostOps {
		s.times[op] = tracing.NewTotalTimeTracer(s.dev, hostOpIs(op))
		tracing.CollectTrace(s.dev, s.times[op])
	}

	if logger.Core().Enabled(zapcore.DebugLevel) {
		opLogger := ssd.NewOpLogger(logger)
		s.dev.AcceptHook(opLogger)
		s.dev.Controller().AcceptHook(opLogger)
		s.dev.FTL().AcceptHook(opLogger)
	}

	if path, _ := cmd.Flags().GetString("record"); path != "" {
		s.backend = datarecording.New(path)
		tracing.CollectTrace(s.dev, tracing.NewDBTracer(s.dev, s.backend))
		s.recorder = ssd.NewRecorder(s.dev, s.backend)
	}

	if on, _ := cmd.Flags().GetBool("monitor"); on {
		port, _ := cmd.Flags().GetInt("monitor-port")
		s.monitor = monitoring.NewMonitor().WithPortNumber(port)
		s.monitor.RegisterDevice(s.dev)
		url := s.monitor.StartServer()

		if open, _ := cmd.Flags().GetBool("open-browser"); open {
			if err := browser.OpenURL(url); err != nil {
				logger.Warn("cannot open browser", zap.Error(err))
			}
		}
	}

	return s, nil
}

var hostOps = []ssd.HostOp{ssd.HostWrite, ssd.HostRead, ssd.HostTrim}

func hostOpIs(op ssd.HostOp) tracing.TaskFilter {
	return func(t tracing.Task) bool {
		return t.Kind == "host" && t.What == string(op)
	}
}

func (s *runSession) replay(
	ctx context.Context,
	reqs []workload.Request,
	logger *zap.Logger,
) (workload.Report, error) {
	replayer := workload.NewReplayer(s.dev).WithLogger(logger)

	if s.monitor != nil {
		bar := s.monitor.CreateProgressBar("Replay", uint64(len(reqs)))
		defer s.monitor.CompleteProgressBar(bar)

		replayer.WithLocker(s.monitor.Locker()).
			OnResult(func(workload.Result) { bar.IncrementFinished(1) })
	}

	return replayer.Replay(ctx, reqs)
}

func (s *runSession) close() {
	if s.backend == nil {
		return
	}

	s.recorder.Finish()

	if err := s.backend.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing recording: %v\n", err)
	}
}

func (s *runSession) print(w io.Writer, report workload.Report) {
	f := s.dev.FTL()
	stats := f.Stats()

	pairs := [][2]string{
		{"policy", f.Policy().Name()},
		{"requests", fmt.Sprint(report.Requests)},
		{"failures", fmt.Sprint(report.Failures)},
		{"mismatches", fmt.Sprint(report.Mismatches)},
	}

	for _, p := range s.dev.Stats().Pairs() {
		pairs = append(pairs, [2]string{p.Name, formatFloat(p.Value)})
	}

	pairs = append(pairs,
		[2]string{"merges", formatUint(stats.Merges)},
		[2]string{"optimized_merges", formatUint(stats.OptimizedMerges)},
		[2]string{"full_merges", formatUint(stats.FullMerges)},
		[2]string{"relocations", formatUint(stats.Relocations)},
		[2]string{"forced_merges", formatUint(stats.ForcedMerges)},
		[2]string{"pages_copied", formatUint(stats.PagesCopied)},
		[2]string{"pages_dropped", formatUint(stats.PagesDropped)},
		[2]string{"exhaustions", formatUint(stats.Exhaustions)},
		[2]string{"requests_cleaning",
			formatUint(s.steps.GetTaskCount(ssd.StepCleaning))},
	)

	// Request time is in device ticks, one per host write.
	for _, op := range hostOps {
		t := s.times[op]
		pairs = append(pairs,
			[2]string{string(op) + "_requests", formatUint(t.TaskCount())},
			[2]string{string(op) + "_time", formatFloat(t.TotalTime())})
	}

	printPairs(w, pairs)
}
