package solve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/bnb/internal/archive"
	"github.com/operator-framework/bnb/internal/metrics"
	"github.com/operator-framework/bnb/pkg/bnb"
	"github.com/operator-framework/bnb/pkg/bnb/solver"
)

// Flags are the options shared by the commands that run a solve.
type Flags struct {
	Config      string
	TimeLimit   time.Duration
	NodeLimit   int64
	GapLimit    float64
	Maximize    bool
	Verbose     bool
	Trace       bool
	MetricsAddr string
	Archive     string
}

func (f *Flags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Config, "config", "", "YAML file with solver settings")
	cmd.Flags().DurationVar(&f.TimeLimit, "time-limit", 0, "stop after this long (0 for no limit)")
	cmd.Flags().Int64Var(&f.NodeLimit, "node-limit", -1, "stop after this many nodes (-1 for no limit)")
	cmd.Flags().Float64Var(&f.GapLimit, "gap-limit", 0, "stop once the relative gap drops to this value")
	cmd.Flags().BoolVar(&f.Maximize, "maximize", false, "maximize the objective")
	cmd.Flags().BoolVarP(&f.Verbose, "verbose", "v", false, "log search progress")
	cmd.Flags().BoolVar(&f.Trace, "trace", false, "print search events to stderr")
	cmd.Flags().StringVar(&f.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address during the solve")
	cmd.Flags().StringVar(&f.Archive, "archive", "", "record the run in this sqlite database")
}

func NewSolveCommand() *cobra.Command {
	f := &Flags{}
	cmd := &cobra.Command{
		Use:   "solve <path>",
		Short: "Solves a mixed integer program",
		Long:  `Solves a mixed integer program given in mip format. For instance:
c
c this is a comment
c header: p mip <number of variables> <number of rows>
p mip 3 1
c variables: v <name> <bin|int|cont> <lower bound> <upper bound> <objective>
v a bin 0 1 -5
v b bin 0 1 -4
v c int 0 3 -3
c rows: r <name> <lhs> <rhs> <variable>:<coefficient> ...
r size -inf 5 a:2 b:3 c:1
c bounds and sides may be inf or -inf, the objective is minimized
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := load(args[0])
			if err != nil {
				return err
			}
			return Run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), p, f)
		},
	}
	f.Register(cmd)
	return cmd
}

func load(path string) (*bnb.Problem, error) {
	mipFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening mip file (%s): %w", path, err)
	}
	defer mipFile.Close()

	p, err := ParseMIP(mipFile)
	if err != nil {
		return nil, fmt.Errorf("error parsing mip file (%s): %w", path, err)
	}
	p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p, nil
}

func (f *Flags) options(log *logrus.Entry) ([]solver.Option, error) {
	settings := solver.DefaultSettings()
	if f.Config != "" {
		var err error
		if settings, err = solver.LoadSettings(f.Config); err != nil {
			return nil, err
		}
	}
	options := []solver.Option{solver.WithSettings(settings), solver.WithLogger(log)}
	if f.TimeLimit > 0 {
		options = append(options, solver.WithTimeLimit(f.TimeLimit))
	}
	if f.NodeLimit >= 0 {
		options = append(options, solver.WithNodeLimit(f.NodeLimit))
	}
	if f.GapLimit > 0 {
		options = append(options, solver.WithGapLimit(f.GapLimit))
	}
	if f.Maximize {
		options = append(options, solver.Maximize())
	}
	return options, nil
}

// Run solves p and prints the outcome to out.
func Run(ctx context.Context, out, errOut io.Writer, p *bnb.Problem, f *Flags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger := logrus.New()
	logger.SetOutput(errOut)
	logger.SetLevel(logrus.WarnLevel)
	if f.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logrus.NewEntry(logger).WithField("problem", p.Name)

	options, err := f.options(log)
	if err != nil {
		return err
	}

	var (
		tracers bnb.MultiTracer
		reg     *prometheus.Registry
	)
	if f.Trace {
		tracers = append(tracers, bnb.LoggingTracer{Writer: errOut})
	}
	if f.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		tracers = append(tracers, metrics.NewRecorder(reg))
	}
	if len(tracers) > 0 {
		options = append(options, solver.WithTracer(tracers))
	}

	so, err := solver.New(p, options...)
	if err != nil {
		return err
	}

	if reg != nil {
		reg.MustRegister(metrics.NewStatsCollector(so.Stats))
		srv := &http.Server{
			Addr:              f.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	started := time.Now()
	solution, err := so.Solve(ctx)
	if err != nil {
		return err
	}
	Print(out, solution)

	if f.Archive != "" {
		return record(ctx, f.Archive, p.Name, started, solution)
	}
	return nil
}

func record(ctx context.Context, path, problem string, started time.Time, solution *solver.Solution) error {
	a, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()
	st := solution.Stats()
	return a.Record(context.WithoutCancel(ctx), archive.Run{
		ID:         solution.RunID(),
		Problem:    problem,
		Status:     solution.Status().String(),
		Objective:  solution.Objective(),
		LowerBound: solution.LowerBound(),
		Solution:   solution.Values(),
		Nodes:      st.Nodes,
		LPs:        st.LPs,
		Started:    started,
		Duration:   solution.Duration(),
	})
}

// Print writes the status, the counters and the nonzero values of the
// solution.
func Print(out io.Writer, solution *solver.Solution) {
	st := solution.Stats()
	fmt.Fprintf(out, "status:    %s\n", solution.Status())
	if err := solution.Error(); err != nil {
		fmt.Fprintf(out, "no solution found: %s\n", err)
	} else {
		fmt.Fprintf(out, "objective: %g\n", solution.Objective())
	}
	fmt.Fprintf(out, "bound:     %g\n", solution.LowerBound())
	if gap := solution.Gap(); !math.IsInf(gap, 1) {
		fmt.Fprintf(out, "gap:       %.4g%%\n", 100*gap)
	}
	fmt.Fprintf(out, "nodes:     %d\n", st.Nodes)
	fmt.Fprintf(out, "lps:       %d\n", st.LPs)
	fmt.Fprintf(out, "cuts:      %d\n", st.CutsApplied)
	fmt.Fprintf(out, "time:      %s\n", solution.Duration().Round(time.Millisecond))
	if solution.Error() != nil {
		return
	}

	assignment := solution.Assignment()
	names := make([]string, 0, len(assignment))
	for name := range assignment {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s = %g\n", name, assignment[name])
	}
}
