// Package cluster partitions trajectory frames into metastable groups
// with k-means on per-frame feature vectors.
package cluster

import (
	"errors"
	"math"
	"math/rand"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"
)

// log is the logging variable for the package.
var log = logging.MustGetLogger("cluster")

// maxIter caps the number of k-means iterations.
const maxIter = 500

// EquilibriumGroups is a partition of frame indices into disjoint
// metastable groups, each with a stationary weight.
type EquilibriumGroups struct {
	// Frames holds frame indices per group.
	Frames [][]int
	// Weights are the stationary weights, summing to one.
	Weights []float64
}

// NGroups returns the number of groups.
func (g *EquilibriumGroups) NGroups() int {
	return len(g.Frames)
}

// NFrames returns the total number of frames in all the groups.
func (g *EquilibriumGroups) NFrames() (n int) {
	for _, frames := range g.Frames {
		n += len(frames)
	}
	return
}

// KMeans clusters the rows of x into k groups. It returns per-row
// assignments. Empty clusters are reseeded from the most distant
// point.
func KMeans(x *mat64.Dense, k int, rng *rand.Rand) ([]int, error) {
	n, d := x.Dims()
	if k <= 0 {
		return nil, errors.New("number of clusters must be positive")
	}
	if n < k {
		return nil, errors.New("fewer frames than clusters")
	}

	// start from k distinct random rows
	centroids := mat64.NewDense(k, d, nil)
	for i, ri := range rng.Perm(n)[:k] {
		centroids.SetRow(i, x.RawRowView(ri))
	}

	assign := make([]int, n)
	counts := make([]int, k)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best, bestDist := -1, math.Inf(+1)
			for c := 0; c < k; c++ {
				dist := floats.Distance(x.RawRowView(i), centroids.RawRowView(c), 2)
				if dist < bestDist {
					best, bestDist = c, dist
				}
			}
			if assign[i] != best {
				changed = true
			}
			assign[i] = best
		}
		if !changed && iter > 0 {
			log.Debugf("k-means converged after %d iterations", iter)
			break
		}

		for c := range counts {
			counts[c] = 0
		}
		centroids.Scale(0, centroids)
		for i := 0; i < n; i++ {
			c := assign[i]
			counts[c]++
			row := centroids.RawRowView(c)
			floats.Add(row, x.RawRowView(i))
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// reseed an empty cluster
				centroids.SetRow(c, x.RawRowView(rng.Intn(n)))
				continue
			}
			floats.Scale(1/float64(counts[c]), centroids.RawRowView(c))
		}
	}
	return assign, nil
}

// Groups builds equilibrium groups from cluster assignments. Empty
// clusters are dropped; weights are group population fractions.
func Groups(assign []int, k int) (*EquilibriumGroups, error) {
	if len(assign) == 0 {
		return nil, errors.New("no assignments")
	}
	frames := make([][]int, k)
	for i, c := range assign {
		if c < 0 || c >= k {
			return nil, errors.New("assignment outside of cluster range")
		}
		frames[c] = append(frames[c], i)
	}
	g := &EquilibriumGroups{}
	total := float64(len(assign))
	for _, f := range frames {
		if len(f) == 0 {
			continue
		}
		g.Frames = append(g.Frames, f)
		g.Weights = append(g.Weights, float64(len(f))/total)
	}
	log.Infof("Partitioned %d frames into %d equilibrium groups", len(assign), g.NGroups())
	return g, nil
}

// FeatureMatrix packs a per-frame scalar feature into a one-column
// matrix for clustering.
func FeatureMatrix(values []float64) *mat64.Dense {
	return mat64.NewDense(len(values), 1, append([]float64(nil), values...))
}
