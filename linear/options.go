package linear

// Option configures a Ridge regressor
type Option func(*Ridge)

// WithAlpha sets the L2 penalty strength
func WithAlpha(alpha float64) Option {
	return func(r *Ridge) {
		r.Alpha = alpha
	}
}

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(r *Ridge) {
		r.FitIntercept = fit
	}
}

// WithWorkers sets the number of goroutines used to prepare the design matrix
func WithWorkers(n int) Option {
	return func(r *Ridge) {
		r.Workers = n
	}
}
