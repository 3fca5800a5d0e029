package routing

import (
	"testing"
	"time"
)

func TestComputeETAsAccumulatesLegsAndDwell(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	etas := ComputeETAs(start, []float64{10, 15, 20}, 5)

	want := []time.Time{
		start.Add(10 * time.Minute),
		start.Add(30 * time.Minute),
		start.Add(55 * time.Minute),
	}

	if len(etas) != len(want) {
		t.Fatalf("expected %d etas, got %d", len(want), len(etas))
	}
	for i := range want {
		if !etas[i].Equal(want[i]) {
			t.Errorf("eta %d: expected %v, got %v", i, want[i], etas[i])
		}
	}
}

func TestComputeETAsSingleLegSkipsDwell(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	etas := ComputeETAs(start, []float64{12}, 5)
	if len(etas) != 1 {
		t.Fatalf("expected 1 eta, got %d", len(etas))
	}
	if !etas[0].Equal(start.Add(12 * time.Minute)) {
		t.Fatalf("expected no dwell on first leg, got %v", etas[0])
	}
}

func TestComputeETAsEmptyLegs(t *testing.T) {
	if etas := ComputeETAs(time.Now(), nil, 5); len(etas) != 0 {
		t.Fatalf("expected no etas, got %d", len(etas))
	}
}

func TestComputeETAsFractionalMinutes(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	etas := ComputeETAs(start, []float64{1.5}, 5)
	if !etas[0].Equal(start.Add(90 * time.Second)) {
		t.Fatalf("expected 90s offset, got %v", etas[0].Sub(start))
	}
}
