package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelize_CoversEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{"single worker", 10, 1},
		{"more workers than items", 3, 8},
		{"uneven chunks", 101, 4},
		{"cpu default", 1000, 0},
		{"empty", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.items)
			Parallelize(tt.items, tt.workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(50, 100, 8, func(start, end int) {
		calls++
		if start != 0 || end != 50 {
			t.Errorf("got range [%d,%d), want [0,50)", start, end)
		}
	})
	if calls != 1 {
		t.Fatalf("expected one sequential call, got %d", calls)
	}
}

func TestWorkers(t *testing.T) {
	if Workers(3) != 3 {
		t.Fatal("explicit worker count should be kept")
	}
	if Workers(0) < 1 || Workers(-2) < 1 {
		t.Fatal("default worker count should be positive")
	}
}
