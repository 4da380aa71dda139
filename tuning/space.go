package tuning

// BoostingParams are the gradient boosting hyperparameters searched by the
// tune command.
type BoostingParams struct {
	MaxIter      int
	MaxDepth     int
	LearningRate float64
}

// Space bounds the boosting search. Bounds are inclusive for the integer
// parameters.
type Space struct {
	MaxIter      [2]int
	MaxDepth     [2]int
	LearningRate [2]float64 // sampled log-uniformly
}

// DefaultSpace is the search space the shipped defaults were tuned on.
func DefaultSpace() Space {
	return Space{
		MaxIter:      [2]int{1100, 1900},
		MaxDepth:     [2]int{10, 17},
		LearningRate: [2]float64{0.02, 0.12},
	}
}

// Suggest draws one point of the space.
func (s Space) Suggest(t *Trial) (BoostingParams, error) {
	var p BoostingParams
	var err error
	if p.MaxIter, err = t.SuggestInt("max_iter", s.MaxIter[0], s.MaxIter[1]); err != nil {
		return p, err
	}
	if p.MaxDepth, err = t.SuggestInt("max_depth", s.MaxDepth[0], s.MaxDepth[1]); err != nil {
		return p, err
	}
	if p.LearningRate, err = t.SuggestLogUniform("learning_rate", s.LearningRate[0], s.LearningRate[1]); err != nil {
		return p, err
	}
	return p, nil
}
