// Package metrics exports search progress to Prometheus.
package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/operator-framework/bnb/internal/solver"
	"github.com/operator-framework/bnb/pkg/bnb"
)

const namespace = "bnb"

// Recorder is a tracer that counts search events.
type Recorder struct {
	events     *prometheus.CounterVec
	depth      prometheus.Histogram
	lpObj      prometheus.Gauge
	incumbent  prometheus.Gauge
	nodeBounds prometheus.Histogram
}

var _ bnb.Tracer = &Recorder{}

// NewRecorder registers the event metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Search events by type.",
		}, []string{"event"}),
		depth: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "focus_depth",
			Help:      "Depth of the focused nodes.",
			Buckets:   prometheus.LinearBuckets(0, 4, 10),
		}),
		lpObj: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lp_objective",
			Help:      "Objective value of the last solved relaxation.",
		}),
		incumbent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "incumbent_objective",
			Help:      "Objective value of the best known solution.",
		}),
		nodeBounds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_bound_gain",
			Help:      "Increase of the node lower bound by its relaxation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 10, 7),
		}),
	}
}

func (r *Recorder) Trace(e bnb.Event) {
	r.events.WithLabelValues(e.Type.String()).Inc()
	switch e.Type {
	case bnb.NodeFocused:
		r.depth.Observe(float64(e.Depth))
	case bnb.FirstLPSolved, bnb.LPSolved:
		r.lpObj.Set(e.Objective)
		if gain := e.Objective - e.LowerBound; !math.IsInf(gain, 0) && !math.IsNaN(gain) && gain >= 0 {
			r.nodeBounds.Observe(gain)
		}
	case bnb.BestSolutionFound:
		r.incumbent.Set(e.Objective)
	}
}

// StatsCollector reads the solver counters on every scrape.
type StatsCollector struct {
	stats func() solver.Stats

	nodes       *prometheus.Desc
	lps         *prometheus.Desc
	lpErrors    *prometheus.Desc
	sepaRounds  *prometheus.Desc
	propRounds  *prometheus.Desc
	cutsApplied *prometheus.Desc
	varsPriced  *prometheus.Desc
	branchings  *prometheus.Desc
	cutoffs     *prometheus.Desc
	solutions   *prometheus.Desc
	restarts    *prometheus.Desc
	maxDepth    *prometheus.Desc
	lowerBound  *prometheus.Desc
	upperBound  *prometheus.Desc
}

var _ prometheus.Collector = &StatsCollector{}

func NewStatsCollector(stats func() solver.Stats) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &StatsCollector{
		stats:       stats,
		nodes:       desc("nodes_total", "Focused nodes over all runs."),
		lps:         desc("lps_total", "Relaxation solves."),
		lpErrors:    desc("lp_errors_total", "Relaxation solves that failed numerically."),
		sepaRounds:  desc("separation_rounds_total", "Separation rounds."),
		propRounds:  desc("propagation_rounds_total", "Propagation rounds."),
		cutsApplied: desc("cuts_applied_total", "Cuts moved into the relaxation."),
		varsPriced:  desc("vars_priced_total", "Variables created by pricing."),
		branchings:  desc("branchings_total", "Nodes that were branched on."),
		cutoffs:     desc("cutoffs_total", "Nodes found infeasible."),
		solutions:   desc("solutions_found_total", "Feasible solutions found."),
		restarts:    desc("restarts_total", "Restarts of the search."),
		maxDepth:    desc("max_depth", "Maximal depth of a focused node."),
		lowerBound:  desc("lower_bound", "Global lower bound."),
		upperBound:  desc("upper_bound", "Global upper bound."),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.stats()
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter(c.nodes, float64(st.Nodes))
	counter(c.lps, float64(st.LPs))
	counter(c.lpErrors, float64(st.LPErrors))
	counter(c.sepaRounds, float64(st.SepaRounds))
	counter(c.propRounds, float64(st.PropRounds))
	counter(c.cutsApplied, float64(st.CutsApplied))
	counter(c.varsPriced, float64(st.VarsPriced))
	counter(c.branchings, float64(st.Branchings))
	counter(c.cutoffs, float64(st.Cutoffs))
	counter(c.solutions, float64(st.SolsFound))
	counter(c.restarts, float64(st.Restarts))
	gauge(c.maxDepth, float64(st.MaxDepth))
	gauge(c.lowerBound, st.LowerBound)
	gauge(c.upperBound, st.UpperBound)
}
