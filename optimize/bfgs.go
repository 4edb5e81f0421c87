package optimize

import (
	"errors"
	"math"

	opt "github.com/gonum/optimize"
)

// BFGS is the Broyden-Fletcher-Goldfarb-Shanno optimizer from gonum.
// Bounds are handled by returning +Inf outside of the range.
type BFGS struct {
	BaseOptimizer
	dH float64
}

// NewBFGS creates a new BFGS optimizer.
func NewBFGS() (b *BFGS) {
	b = &BFGS{
		BaseOptimizer: BaseOptimizer{
			method:    "bfgs",
			repPeriod: 10,
		},
		dH: 1e-6,
	}
	return
}

// Init is a part of the gonum Recorder interface.
func (b *BFGS) Init(*opt.FunctionInfo) error {
	return nil
}

// Record reports progress on every major iteration and watches for
// signals.
func (b *BFGS) Record(l *opt.Location, et opt.EvaluationType, it opt.IterationType, s *opt.Stats) error {
	if it == opt.MajorIteration {
		b.i = s.MajorIterations
		b.parameters.SetValues(l.X)
		b.PrintLine(b.parameters, -l.F)
		b.SaveCheckpoint(false)
	}
	select {
	case s := <-b.sig:
		log.Warningf("Received signal %v, exiting.", s)
		return errors.New("exiting by signal")
	default:
	}
	return nil
}

// Func computes the negated log-likelihood for a point.
func (b *BFGS) Func(x []float64) float64 {
	if !b.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}

	b.parameters.SetValues(x)

	l := b.Likelihood()
	b.calls++
	if l > b.maxL {
		b.maxL = l
		b.maxLPar = b.parameters.Values(b.maxLPar)
	}
	return -l
}

// Grad computes the gradient of the negated log-likelihood using the
// forward difference.
func (b *BFGS) Grad(x, grad []float64) {
	if !b.parameters.ValuesInRange(x) {
		for i, par := range b.parameters {
			switch {
			case par.ValueInRange(x[i]):
				grad[i] = 0
			case x[i] < par.GetMin():
				grad[i] = math.Inf(-1)
			default:
				grad[i] = math.Inf(+1)
			}
		}
		return
	}
	no1 := b.Optimizable.Copy()
	par1 := no1.GetFloatParameters()
	par1.SetValues(x)
	l1 := -no1.Likelihood()
	b.calls++
	for i := range x {
		no2 := no1.Copy()
		par2 := no2.GetFloatParameters()
		v := x[i] + b.dH
		switch {
		case par2[i].ValueInRange(v):
			par2[i].Set(v)
			l2 := -no2.Likelihood()
			b.calls++
			grad[i] = (l2 - l1) / b.dH
		case v < par2[i].GetMin():
			grad[i] = math.Inf(-1)
		default:
			grad[i] = math.Inf(+1)
		}
	}
}

// Run starts the optimization.
func (b *BFGS) Run(iterations int) {
	b.saveStart()
	b.maxL = math.Inf(-1)
	b.PrintHeader(b.parameters)
	settings := opt.DefaultSettings()
	settings.MajorIterations = iterations
	settings.GradientThreshold = 1e-3
	settings.Recorder = b

	_, e := opt.Local(b, b.parameters.Values(nil), settings, &opt.BFGS{})

	if e != nil {
		log.Warning("Optimization error: ", e)
	}

	if b.maxLPar != nil {
		b.parameters.SetValues(b.maxLPar)
	}
	b.l = b.maxL
	b.SaveCheckpoint(true)
	b.saveDeltaT()
	log.Info("Finished BFGS")
}
