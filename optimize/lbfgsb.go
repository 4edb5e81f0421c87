package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// LBFGSB is the limited-memory Broyden-Fletcher-Goldfarb-Shanno
// optimizer with bound constraints.
type LBFGSB struct {
	BaseOptimizer
	dH       float64
	grad     []float64
	exitOnly bool
}

// boundShrink keeps evaluations away from the exact bounds.
const boundShrink = 1e-5

// shrinkBounds moves the limits slightly inside the interval; intervals
// narrower than the shrink are left as they are so they never invert.
func shrinkBounds(min, max float64) (float64, float64) {
	if max-min > 2*boundShrink {
		return min + boundShrink, max - boundShrink
	}
	return min, max
}

// NewLBFGSB creates a new LBFGSB optimizer.
func NewLBFGSB() (l *LBFGSB) {
	l = &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			method:    "lbfgsb",
			repPeriod: 10,
		},
		dH: 1e-6,
	}
	return
}

// Logger reports the optimization progress after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	l.parameters.SetValues(info.X)
	l.PrintLine(l.parameters, -info.F)
	l.SaveCheckpoint(false)
	select {
	case s := <-l.sig:
		log.Fatal("Received signal, exiting:", s)
	default:
	}
}

// EvaluateFunction computes the negated log-likelihood for a point.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if !l.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}

	l.parameters.SetValues(x)

	L := l.Likelihood()
	l.calls++
	if L > l.maxL {
		l.maxL = L
		l.maxLPar = l.parameters.Values(l.maxLPar)
	}
	return -L
}

// EvaluateGradient computes the gradient of the negated
// log-likelihood numerically using the central difference.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
	}
	grad = l.grad
	for i := range x {
		no1 := l.Optimizable.Copy()
		par1 := no1.GetFloatParameters()
		par1.SetValues(x)
		par1[i].Set(x[i] - l.dH)
		l1 := -no1.Likelihood()
		l.calls++

		no2 := no1.Copy()
		par2 := no2.GetFloatParameters()
		par2[i].Set(x[i] + l.dH)
		l2 := -no2.Likelihood()
		l.calls++

		grad[i] = (l2 - l1) / 2 / l.dH
	}
	select {
	case s := <-l.sig:
		log.Fatal("Received signal, exiting:", s)
	default:
	}
	return
}

// Run starts the optimization.
func (l *LBFGSB) Run(iterations int) {
	l.saveStart()
	l.maxL = math.Inf(-1)
	l.PrintHeader(l.parameters)
	bounds := make([][2]float64, len(l.parameters))

	for i, par := range l.parameters {
		bounds[i][0], bounds[i][1] = shrinkBounds(par.GetMin(), par.GetMax())
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)

	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, l.parameters.Values(nil))

	log.Info("Exit status: ", exitStatus)

	if l.maxLPar != nil {
		l.parameters.SetValues(l.maxLPar)
	}
	l.l = l.maxL
	l.SaveCheckpoint(true)
	l.saveDeltaT()
	log.Info("Finished LBFGSB")
}
