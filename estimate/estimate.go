// Package estimate builds the Q log-likelihood of a pairwise-linear
// Hamiltonian against experimental observables and exposes it for
// optimization.
package estimate

import (
	"errors"
	"fmt"
	"math"

	"github.com/op/go-logging"

	"github.com/cgfold/epsfit/cluster"
	"github.com/cgfold/epsfit/model"
	"github.com/cgfold/epsfit/observables"
	"github.com/cgfold/epsfit/optimize"
)

// log is the logging variable for the package.
var log = logging.MustGetLogger("estimate")

// QFit computes the Q log-likelihood as a function of the epsilons.
// Frames are reweighted by exp(-beta dH) within every equilibrium
// group, simulated observables are recomputed from the reweighted
// frames and compared to the experimental histograms.
type QFit struct {
	obs       *observables.Set
	groups    *cluster.EquilibriumGroups
	obsValues [][]float64
	heps      func([]float64) []float64
	hOld      []float64
	boundsLo  []float64
	boundsHi  []float64

	eps        []float64
	parameters optimize.FloatParameters
}

// NewQFit creates a Q function for a model. dists holds per-frame
// distances of the fitted pairs, obsValues per-frame scalar values of
// every observable in the set, step the maximum epsilon move and
// lo/hi the global epsilon limits.
func NewQFit(m *model.Model, obs *observables.Set, groups *cluster.EquilibriumGroups,
	dists, obsValues [][]float64, step, lo, hi float64) (*QFit, error) {
	if len(obsValues) != len(obs.Obs) {
		return nil, errors.New("observable value series count does not match observable count")
	}
	heps, _, err := m.PotentialsEpsilon(dists)
	if err != nil {
		return nil, err
	}

	eps := m.Epsilons()
	q := &QFit{
		obs:       obs,
		groups:    groups,
		obsValues: obsValues,
		heps:      heps,
		eps:       eps,
		boundsLo:  make([]float64, len(eps)),
		boundsHi:  make([]float64, len(eps)),
	}
	q.hOld = heps(eps)
	for _, values := range obsValues {
		if len(values) != len(q.hOld) {
			return nil, errors.New("observable value series length does not match frame count")
		}
	}
	for i, e := range eps {
		q.boundsLo[i], q.boundsHi[i] = model.EpsilonBounds(e, step, lo, hi)
	}
	q.setupParameters()

	log.Infof("Q function over %d epsilons, %d frames, %d comparison functions",
		len(eps), len(q.hOld), obs.NumFunctions())
	return q, nil
}

// setupParameters creates float parameters backed by the epsilon
// slice.
func (q *QFit) setupParameters() {
	q.parameters = nil
	for i := range q.eps {
		par := optimize.NewBasicFloatParameter(&q.eps[i], fmt.Sprintf("eps%03d", i))
		par.SetMin(q.boundsLo[i])
		par.SetMax(q.boundsHi[i])
		par.SetPriorFunc(optimize.UniformPrior(q.boundsLo[i], q.boundsHi[i], true, true))
		par.SetProposalFunc(optimize.NormalProposal(0.02))
		q.parameters.Append(par)
	}
}

// GetFloatParameters returns the epsilon parameters.
func (q *QFit) GetFloatParameters() optimize.FloatParameters {
	return q.parameters
}

// Copy returns an independent copy sharing the precomputed frame
// data.
func (q *QFit) Copy() optimize.Optimizable {
	cp := &QFit{
		obs:       q.obs,
		groups:    q.groups,
		obsValues: q.obsValues,
		heps:      q.heps,
		hOld:      q.hOld,
		boundsLo:  q.boundsLo,
		boundsHi:  q.boundsHi,
		eps:       append([]float64(nil), q.eps...),
	}
	cp.setupParameters()
	return cp
}

// FrameWeights computes per-frame stationary weights for the current
// epsilons: Boltzmann reweighting inside every equilibrium group,
// groups weighted by their populations. Frames outside of any group
// have zero weight.
func (q *QFit) FrameWeights() ([]float64, error) {
	hNew := q.heps(q.eps)
	weights := make([]float64, len(hNew))
	for g, frames := range q.groups.Frames {
		// subtract the group maximum before exponentiation to
		// avoid underflow
		max := math.Inf(-1)
		for _, f := range frames {
			if d := hNew[f] - q.hOld[f]; d > max {
				max = d
			}
		}
		total := 0.0
		for _, f := range frames {
			b := math.Exp(hNew[f] - q.hOld[f] - max)
			weights[f] = b
			total += b
		}
		if total <= 0 || math.IsNaN(total) {
			return nil, fmt.Errorf("group %d: vanishing reweighting normalization", g)
		}
		scale := q.groups.Weights[g] / total
		for _, f := range frames {
			weights[f] *= scale
		}
	}
	return weights, nil
}

// SimulatedHistograms returns the reweighted simulated histogram for
// every observable under the current epsilons.
func (q *QFit) SimulatedHistograms() ([][]float64, error) {
	weights, err := q.FrameWeights()
	if err != nil {
		return nil, err
	}
	hists := make([][]float64, len(q.obs.Obs))
	for o, h := range q.obs.Obs {
		hists[o], err = h.Compute(q.obsValues[o], weights)
		if err != nil {
			return nil, err
		}
	}
	return hists, nil
}

// Likelihood returns the Q log-likelihood for the current epsilons.
// Numerical failures surface as -Inf so optimizers move away from the
// point.
func (q *QFit) Likelihood() float64 {
	hists, err := q.SimulatedHistograms()
	if err != nil {
		log.Debugf("likelihood: %v", err)
		return math.Inf(-1)
	}
	values := make([]float64, 0, q.obs.NumFunctions())
	for _, hist := range hists {
		values = append(values, hist...)
	}
	logQ, err := q.obs.LogQ(values)
	if err != nil {
		log.Debugf("likelihood: %v", err)
		return math.Inf(-1)
	}
	return logQ
}

// Epsilons returns the current epsilon values.
func (q *QFit) Epsilons() []float64 {
	return append([]float64(nil), q.eps...)
}

// Result holds the outcome of a fit.
type Result struct {
	// OldEpsilons are the starting parameter values.
	OldEpsilons []float64 `json:"oldEpsilons"`
	// NewEpsilons are the fitted parameter values.
	NewEpsilons []float64 `json:"newEpsilons"`
	// OldQ is the starting log-likelihood.
	OldQ float64 `json:"oldQ"`
	// NewQ is the fitted log-likelihood.
	NewQ float64 `json:"newQ"`
	// LikelihoodCalls is the number of likelihood evaluations.
	LikelihoodCalls int `json:"likelihoodCalls"`
	// Method is the optimization method used.
	Method string `json:"method"`
}
