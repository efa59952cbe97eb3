package utils

import "testing"

func TestMinMax(t *testing.T) {
	if Min(2, 5) != 2 {
		t.Fatalf("Min failed")
	}
	if Min(5.5, 1.5) != 1.5 {
		t.Fatalf("Min float failed")
	}
	if Max(2.5, 1.5) != 2.5 {
		t.Fatalf("Max failed")
	}
	if Max(2, 5) != 5 {
		t.Fatalf("Max int failed")
	}
}

func TestMean(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := Mean(values); got != 5.0 {
		t.Fatalf("expected mean 5.0, got %f", got)
	}
	if Mean(nil) != 0 {
		t.Fatalf("empty slice should yield 0")
	}
}
