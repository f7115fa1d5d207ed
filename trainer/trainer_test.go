package trainer

import (
	"math"
	"testing"

	"github.com/kosssst/fleetms/pipeline"
)

func TestGroupSplitIsDisjointAndReproducible(t *testing.T) {
	trips := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "t10"}

	train1, val1 := groupSplit(trips, splitSeed)
	train2, val2 := groupSplit(trips, splitSeed)

	if len(train1) != len(train2) || len(val1) != len(val2) {
		t.Fatalf("expected identical split sizes across runs with the same seed")
	}
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatalf("expected identical train split order across runs with the same seed")
		}
	}

	seen := make(map[string]bool)
	for _, id := range append(append([]string(nil), train1...), val1...) {
		if seen[id] {
			t.Fatalf("trip %s appears in both halves", id)
		}
		seen[id] = true
	}
	if len(seen) != len(trips) {
		t.Fatalf("expected every trip accounted for, got %d of %d", len(seen), len(trips))
	}
}

func TestSplitRowsPreservesOrderWithinHalf(t *testing.T) {
	tripIDs := []string{"a", "b", "a", "c", "b"}
	trainTrips := []string{"a", "c"}
	valTrips := []string{"b"}

	trainIdx, valIdx := splitRows(tripIDs, trainTrips, valTrips)

	if len(trainIdx) != 3 || len(valIdx) != 2 {
		t.Fatalf("expected 3 train rows and 2 val rows, got %d/%d", len(trainIdx), len(valIdx))
	}
	if trainIdx[0] != 0 || trainIdx[1] != 2 || trainIdx[2] != 3 {
		t.Fatalf("expected train rows in original order, got %v", trainIdx)
	}
	if valIdx[0] != 1 || valIdx[1] != 4 {
		t.Fatalf("expected val rows in original order, got %v", valIdx)
	}
}

func TestSubsetLogTransformsOnlyWhenAsked(t *testing.T) {
	frame := pipeline.Frame{
		TripID:   []string{"a", "a"},
		Features: [][]float64{{1, 2}, {3, 4}},
		Y:        []float64{math.E - 1, 0},
	}

	_, yLog := subset(frame, []int{0, 1}, true)
	if math.Abs(yLog[0]-1) > 1e-6 {
		t.Fatalf("expected log1p(e-1) ~ 1, got %v", yLog[0])
	}

	_, yNat := subset(frame, []int{0, 1}, false)
	if math.Abs(yNat[0]-(math.E-1)) > 1e-9 {
		t.Fatalf("expected natural-units target unchanged, got %v", yNat[0])
	}
}
