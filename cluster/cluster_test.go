package cluster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gonum/matrix/mat64"
)

func TestKMeansTwoBlobs(tst *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 100
	data := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		data = append(data, 0.1+0.05*rng.Float64())
	}
	for i := 0; i < n; i++ {
		data = append(data, 0.9+0.05*rng.Float64())
	}
	x := mat64.NewDense(2*n, 1, data)

	assign, err := KMeans(x, 2, rng)
	if err != nil {
		tst.Fatal(err)
	}
	// all the points of a blob end up in the same cluster
	for i := 1; i < n; i++ {
		if assign[i] != assign[0] {
			tst.Fatalf("First blob split between clusters")
		}
	}
	for i := n + 1; i < 2*n; i++ {
		if assign[i] != assign[n] {
			tst.Fatalf("Second blob split between clusters")
		}
	}
	if assign[0] == assign[n] {
		tst.Error("Blobs assigned to the same cluster")
	}
}

func TestKMeansErrors(tst *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := mat64.NewDense(2, 1, []float64{0, 1})
	if _, err := KMeans(x, 0, rng); err == nil {
		tst.Error("Expected error for zero clusters")
	}
	if _, err := KMeans(x, 3, rng); err == nil {
		tst.Error("Expected error for fewer frames than clusters")
	}
}

func TestGroups(tst *testing.T) {
	assign := []int{0, 2, 0, 2, 2}
	g, err := Groups(assign, 3)
	if err != nil {
		tst.Fatal(err)
	}
	// cluster 1 is empty and dropped
	if g.NGroups() != 2 {
		tst.Fatalf("Expected 2 groups, got %d", g.NGroups())
	}
	if g.NFrames() != len(assign) {
		tst.Errorf("Expected %d frames in groups, got %d", len(assign), g.NFrames())
	}

	// groups are disjoint
	seen := make(map[int]bool)
	for _, frames := range g.Frames {
		for _, f := range frames {
			if seen[f] {
				tst.Errorf("Frame %d in more than one group", f)
			}
			seen[f] = true
		}
	}

	// weights sum to one
	total := 0.0
	for _, w := range g.Weights {
		if w <= 0 {
			tst.Errorf("Non-positive weight %v", w)
		}
		total += w
	}
	if math.Abs(total-1) > 1e-12 {
		tst.Errorf("Weights sum to %v", total)
	}
}

func TestFeatureMatrix(tst *testing.T) {
	x := FeatureMatrix([]float64{0.5, 0.7})
	r, c := x.Dims()
	if r != 2 || c != 1 {
		tst.Errorf("Incorrect dimensions: %dx%d", r, c)
	}
	if x.At(1, 0) != 0.7 {
		tst.Errorf("Incorrect value: %v", x.At(1, 0))
	}
}
