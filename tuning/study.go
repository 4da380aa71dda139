// Package tuning searches regressor hyperparameters with goptuna's TPE
// sampler. The study keeps every trial so the best one and the whole
// history can be reported.
package tuning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
)
// TrialState is the outcome of a trial.
type TrialState int

const (
	// TrialComplete は目的関数が有限値を返した試行
	TrialComplete TrialState = iota
	// TrialFailed は目的関数が NaN を返した試行
	TrialFailed
)

func (s TrialState) String() string {
	if s == TrialComplete {
		return "complete"
	}
	return "failed"
}

// Objective evaluates one hyperparameter draw; lower is better.
type Objective func(ctx context.Context, t *Trial) (float64, error)

// FrozenTrial is the record of a finished trial.
type FrozenTrial struct {
	Number   int
	Params   map[string]float64
	Value    float64
	State    TrialState
	Duration time.Duration
}

// errNaNValue marks a trial whose objective returned NaN so the sampler
// records it as failed.
var errNaNValue = errors.New("objective returned NaN")

// Study minimises an objective with a seeded TPE sampler.
type Study struct {
	study  *goptuna.Study
	trials []FrozenTrial
}

// NewStudy creates an in-memory study whose draws depend only on seed.
func NewStudy(seed uint64) (*Study, error) {
	study, err := goptuna.CreateStudy(
		"bikecount",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
		goptuna.StudyOptionSampler(tpe.NewSampler(tpe.SamplerOptionSeed(int64(seed)))),
		goptuna.StudyOptionLogger(log.GetLoggerWithName("tuning.goptuna")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create study")
	}
	return &Study{study: study}, nil
}

// Optimize runs nTrials trials in sequence. An objective error aborts the
// study; a NaN value marks the trial failed and the study continues.
// Cancellation is checked between trials.
func (s *Study) Optimize(ctx context.Context, objective Objective, nTrials int) error {
	if nTrials < 1 {
		return errors.NewValidationError("n_trials", "must be >= 1", nTrials)
	}
	logger := log.GetLoggerWithName("tuning.study")

	for k := 0; k < nTrials; k++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "study stopped before trial %d", len(s.trials))
		}

		trial := &Trial{Number: len(s.trials), params: map[string]float64{}}
		var (
			value  float64
			objErr error
		)
		start := time.Now()
		runErr := s.study.Optimize(func(gt goptuna.Trial) (float64, error) {
			trial.gt = &gt
			value, objErr = objective(ctx, trial)
			if objErr != nil {
				return 0, objErr
			}
			if math.IsNaN(value) {
				return 0, errNaNValue
			}
			return value, nil
		}, 1)
		if objErr != nil {
			return errors.Wrapf(objErr, "trial %d", trial.Number)
		}
		if runErr != nil && !errors.Is(runErr, errNaNValue) {
			return errors.Wrapf(runErr, "trial %d", trial.Number)
		}

		frozen := FrozenTrial{
			Number:   trial.Number,
			Params:   trial.params,
			Value:    value,
			State:    TrialComplete,
			Duration: time.Since(start),
		}
		if math.IsNaN(value) {
			frozen.State = TrialFailed
			logger.Warn("Trial returned NaN", log.TrialKey, frozen.Number, log.HyperParamsKey, frozen.Params)
		}
		s.trials = append(s.trials, frozen)

		logger.Info("Trial finished",
			log.TrialKey, frozen.Number,
			"value", value,
			"state", frozen.State.String(),
			log.HyperParamsKey, frozen.Params,
			log.DurationSecondsKey, frozen.Duration.Seconds(),
		)
	}

	if best, err := s.BestTrial(); err == nil {
		logger.Info("Study finished",
			log.TrialKey, best.Number,
			"best_value", best.Value,
			log.HyperParamsKey, best.Params,
		)
	}
	return nil
}

// Trials returns every finished trial in run order.
func (s *Study) Trials() []FrozenTrial {
	return append([]FrozenTrial(nil), s.trials...)
}

// BestTrial returns the completed trial with the lowest value; ties go to
// the earlier trial.
func (s *Study) BestTrial() (FrozenTrial, error) {
	best := -1
	for i, t := range s.trials {
		if t.State != TrialComplete {
			continue
		}
		if best < 0 || t.Value < s.trials[best].Value {
			best = i
		}
	}
	if best < 0 {
		return FrozenTrial{}, errors.NewValueError("Study.BestTrial", "no completed trials")
	}
	return s.trials[best], nil
}

// BestValue returns the value of the best trial.
func (s *Study) BestValue() (float64, error) {
	t, err := s.BestTrial()
	return t.Value, err
}

// BestParams returns the parameters of the best trial.
func (s *Study) BestParams() (map[string]float64, error) {
	t, err := s.BestTrial()
	return t.Params, err
}

// Trial hands out parameter suggestions for one objective evaluation.
// Asking twice for the same name returns the first draw.
type Trial struct {
	Number int
	params map[string]float64
	gt     *goptuna.Trial
}

// Params returns a copy of the values drawn so far.
func (t *Trial) Params() map[string]float64 {
	out := make(map[string]float64, len(t.params))
	for k, v := range t.params {
		out[k] = v
	}
	return out
}

// SuggestInt draws an integer from [low, high].
func (t *Trial) SuggestInt(name string, low, high int) (int, error) {
	if v, ok := t.params[name]; ok {
		return int(v), nil
	}
	if low > high {
		return 0, errors.NewValidationError(name, fmt.Sprintf("low %d exceeds high %d", low, high), low)
	}
	if err := t.active(name); err != nil {
		return 0, err
	}
	v, err := t.gt.SuggestInt(name, low, high)
	if err != nil {
		return 0, errors.Wrapf(err, "suggest %s", name)
	}
	t.params[name] = float64(v)
	return v, nil
}

// SuggestFloat draws a float from [low, high).
func (t *Trial) SuggestFloat(name string, low, high float64) (float64, error) {
	if v, ok := t.params[name]; ok {
		return v, nil
	}
	if !(low <= high) {
		return 0, errors.NewValidationError(name, fmt.Sprintf("low %g exceeds high %g", low, high), low)
	}
	if err := t.active(name); err != nil {
		return 0, err
	}
	v, err := t.gt.SuggestFloat(name, low, high)
	if err != nil {
		return 0, errors.Wrapf(err, "suggest %s", name)
	}
	t.params[name] = v
	return v, nil
}

// SuggestLogUniform draws a float from [low, high) on a log scale.
func (t *Trial) SuggestLogUniform(name string, low, high float64) (float64, error) {
	if v, ok := t.params[name]; ok {
		return v, nil
	}
	if !(low > 0) || !(low <= high) {
		return 0, errors.NewValidationError(name, fmt.Sprintf("need 0 < low <= high, got [%g, %g]", low, high), low)
	}
	if err := t.active(name); err != nil {
		return 0, err
	}
	v, err := t.gt.SuggestLogFloat(name, low, high)
	if err != nil {
		return 0, errors.Wrapf(err, "suggest %s", name)
	}
	t.params[name] = v
	return v, nil
}

// active reports an error when the trial is not driven by a study.
func (t *Trial) active(name string) error {
	if t.gt == nil {
		return errors.NewModelError("Trial.Suggest", "trial is not running", errors.Newf("parameter %s", name))
	}
	return nil
}

// FormatParams renders params as "k=v" pairs in name order.
func FormatParams(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%g", k, params[k])
	}
	return b.String()
}
