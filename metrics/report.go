package metrics

import (
	"strconv"
	"time"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"
)

// RunReport summarises one CLI run for export.
type RunReport struct {
	Command     string
	TrainRows   int
	TestRows    int
	FoldRMSE    []float64
	Elapsed     time.Duration
	TrialValues []float64
	BestValue   float64
	BestParams  map[string]float64
}

// MeanRMSE returns the mean fold RMSE, or 0 without folds.
func (r RunReport) MeanRMSE() float64 {
	if len(r.FoldRMSE) == 0 {
		return 0
	}
	return stat.Mean(r.FoldRMSE, nil)
}

// Registry builds a fresh registry holding the gauges of r.
func (r RunReport) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"command": r.Command}

	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   "bikecount",
		Name:        "rows",
		Help:        "Number of rows per dataset.",
		ConstLabels: labels,
	}, []string{"set"})
	rows.WithLabelValues("train").Set(float64(r.TrainRows))
	rows.WithLabelValues("test").Set(float64(r.TestRows))

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "bikecount",
		Name:        "run_duration_seconds",
		Help:        "Wall-clock duration of the run.",
		ConstLabels: labels,
	})
	duration.Set(r.Elapsed.Seconds())
	reg.MustRegister(rows, duration)

	if len(r.FoldRMSE) > 0 {
		fold := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "bikecount",
			Subsystem:   "cv",
			Name:        "fold_rmse",
			Help:        "Validation RMSE of each time-ordered fold.",
			ConstLabels: labels,
		}, []string{"fold"})
		for i, v := range r.FoldRMSE {
			fold.WithLabelValues(strconv.Itoa(i)).Set(v)
		}
		mean := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "bikecount",
			Subsystem:   "cv",
			Name:        "rmse_mean",
			Help:        "Mean validation RMSE over folds.",
			ConstLabels: labels,
		})
		mean.Set(r.MeanRMSE())
		reg.MustRegister(fold, mean)
	}

	if len(r.TrialValues) > 0 {
		trials := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bikecount",
			Subsystem:   "tuning",
			Name:        "trials_total",
			Help:        "Completed tuning trials.",
			ConstLabels: labels,
		})
		trials.Add(float64(len(r.TrialValues)))
		best := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "bikecount",
			Subsystem:   "tuning",
			Name:        "best_value",
			Help:        "Best objective value found.",
			ConstLabels: labels,
		})
		best.Set(r.BestValue)
		params := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "bikecount",
			Subsystem:   "tuning",
			Name:        "best_param",
			Help:        "Hyperparameters of the best trial.",
			ConstLabels: labels,
		}, []string{"name"})
		for name, v := range r.BestParams {
			params.WithLabelValues(name).Set(v)
		}
		reg.MustRegister(trials, best, params)
	}
	return reg
}

// WriteTextfile writes r in the Prometheus text exposition format, for the
// node exporter textfile collector.
func WriteTextfile(path string, r RunReport) error {
	if err := prometheus.WriteToTextfile(path, r.Registry()); err != nil {
		return errors.Wrapf(err, "write metrics textfile %s", path)
	}
	return nil
}
