// Package observables holds experimental histogram observables and
// computes the log-likelihood of simulated values against them.
package observables

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gonum/floats"
	"github.com/gonum/mathext"
	"github.com/op/go-logging"
)

// log is the logging variable for the package.
var log = logging.MustGetLogger("observables")

// Histogram is a single histogrammed observable with experimental
// means and standard deviations per bin. The error distribution is
// Gaussian.
type Histogram struct {
	// Name identifies the observable.
	Name string
	// Edges are the bin edges, len(Edges) = NBins()+1.
	Edges []float64
	// Mean are the experimental bin values.
	Mean []float64
	// Std are the experimental standard deviations.
	Std []float64
	// Scale is applied to simulated values before binning.
	Scale float64
}

// NewHistogram creates a histogram observable with uniform bins
// between low and high.
func NewHistogram(name string, low, high float64, mean, std []float64) (*Histogram, error) {
	if len(mean) != len(std) {
		return nil, errors.New("mean and std lengths differ")
	}
	if len(mean) == 0 {
		return nil, errors.New("empty histogram")
	}
	if high <= low {
		return nil, errors.New("high must be greater than low")
	}
	for i, s := range std {
		if s <= 0 {
			return nil, fmt.Errorf("bin %d: standard deviation must be positive", i)
		}
	}
	n := len(mean)
	edges := make([]float64, n+1)
	d := (high - low) / float64(n)
	for i := range edges {
		edges[i] = low + float64(i)*d
	}
	return &Histogram{
		Name:  name,
		Edges: edges,
		Mean:  mean,
		Std:   std,
		Scale: 1,
	}, nil
}

// ReadHistogram reads a whitespace-delimited two-column file
// (value, standard deviation), one bin per line.
func ReadHistogram(filename, name string, low, high float64) (*Histogram, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var mean, std []float64
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected 2 columns, got %d", filename, lineNo, len(fields))
		}
		m, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		s, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		mean = append(mean, m)
		std = append(std, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Infof("Read observable %s: %d bins", name, len(mean))
	return NewHistogram(name, low, high, mean, std)
}

// NBins returns the number of bins.
func (h *Histogram) NBins() int {
	return len(h.Mean)
}

// Bin returns the bin index for a value, -1 if outside of the edges.
func (h *Histogram) Bin(x float64) int {
	x *= h.Scale
	if x < h.Edges[0] || x >= h.Edges[len(h.Edges)-1] {
		return -1
	}
	d := (h.Edges[len(h.Edges)-1] - h.Edges[0]) / float64(h.NBins())
	i := int((x - h.Edges[0]) / d)
	if i >= h.NBins() {
		i = h.NBins() - 1
	}
	return i
}

// Compute builds a normalized weighted histogram of simulated
// per-frame values. Weights must sum to a positive value; nil weights
// mean uniform.
func (h *Histogram) Compute(values, weights []float64) ([]float64, error) {
	if weights != nil && len(weights) != len(values) {
		return nil, errors.New("values and weights lengths differ")
	}
	hist := make([]float64, h.NBins())
	total := 0.0
	for f, v := range values {
		w := 1.0
		if weights != nil {
			w = weights[f]
		}
		total += w
		if i := h.Bin(v); i >= 0 {
			hist[i] += w
		}
	}
	if total <= 0 {
		return nil, errors.New("total weight is not positive")
	}
	floats.Scale(1/total, hist)
	return hist, nil
}

// LogQ returns the Gaussian log-likelihood of simulated bin values
// against the experimental means. The number of values must equal the
// number of bins.
func (h *Histogram) LogQ(values []float64) (float64, error) {
	if len(values) != h.NBins() {
		return 0, fmt.Errorf("observable %s: %d values for %d bins", h.Name, len(values), h.NBins())
	}
	logQ := 0.0
	for i, v := range values {
		d := (v - h.Mean[i]) / h.Std[i]
		logQ += -0.5*d*d - math.Log(h.Std[i]*math.Sqrt(2*math.Pi))
	}
	return logQ, nil
}

// Chi2 returns the chi-square statistic of simulated bin values and
// its survival probability (via the regularized incomplete gamma
// function).
func (h *Histogram) Chi2(values []float64) (chi2, p float64, err error) {
	if len(values) != h.NBins() {
		return 0, 0, fmt.Errorf("observable %s: %d values for %d bins", h.Name, len(values), h.NBins())
	}
	for i, v := range values {
		d := (v - h.Mean[i]) / h.Std[i]
		chi2 += d * d
	}
	df := float64(h.NBins())
	p = mathext.GammaIncComp(df/2, chi2/2)
	return chi2, p, nil
}

// Set is a collection of observables compared together.
type Set struct {
	Obs []*Histogram
}

// Add adds an observable.
func (s *Set) Add(h *Histogram) {
	s.Obs = append(s.Obs, h)
}

// NumFunctions returns the total number of comparison functions (bins
// over all observables).
func (s *Set) NumFunctions() (n int) {
	for _, h := range s.Obs {
		n += h.NBins()
	}
	return
}

// LogQ computes the total log-likelihood for concatenated per-bin
// values in observable order. The number of values must equal
// NumFunctions.
func (s *Set) LogQ(values []float64) (float64, error) {
	if len(values) != s.NumFunctions() {
		return 0, fmt.Errorf("number of values (%d) not equal to number of functions (%d)",
			len(values), s.NumFunctions())
	}
	logQ := 0.0
	off := 0
	for _, h := range s.Obs {
		q, err := h.LogQ(values[off : off+h.NBins()])
		if err != nil {
			return 0, err
		}
		logQ += q
		off += h.NBins()
	}
	return logQ, nil
}
