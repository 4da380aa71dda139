package model

import (
	"testing"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

func TestBaseEstimator_Lifecycle(t *testing.T) {
	var e BaseEstimator
	if e.IsFitted() {
		t.Fatal("zero value should not be fitted")
	}
	err := e.CheckFitted("Ridge", "Predict")
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
	if nf.ModelName != "Ridge" || nf.Method != "Predict" {
		t.Errorf("unexpected error fields: %+v", nf)
	}

	e.SetFitted()
	if err := e.CheckFitted("Ridge", "Predict"); err != nil {
		t.Fatalf("fitted estimator returned %v", err)
	}

	e.Reset()
	if e.IsFitted() {
		t.Fatal("Reset should clear fitted state")
	}
}
