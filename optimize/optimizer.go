// Package optimize provides bounded likelihood maximization for models
// exposing float parameters.
package optimize

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/op/go-logging"

	"github.com/cgfold/epsfit/checkpoint"
)

// log is the logging variable for the package.
var log = logging.MustGetLogger("optimize")

// Optimizable is something which can be optimized: it exposes float
// parameters and computes a log-likelihood for the current values.
type Optimizable interface {
	// GetFloatParameters returns the model parameters.
	GetFloatParameters() FloatParameters
	// Copy creates an independent copy of the model.
	Copy() Optimizable
	// Likelihood returns the log-likelihood for the current
	// parameter values.
	Likelihood() float64
}

// Optimizer is a maximizer of an Optimizable.
type Optimizer interface {
	// SetOptimizable sets the model to optimize.
	SetOptimizable(Optimizable)
	// SetCheckpointIO enables checkpoint support.
	SetCheckpointIO(*checkpoint.IO)
	// RestoreCheckpoint sets parameter values from the last saved
	// checkpoint, if there is one.
	RestoreCheckpoint() error
	// WatchSignals makes the optimizer stop cleanly on the signals.
	WatchSignals(...os.Signal)
	// SetTrajectoryOutput sets a writer for the optimization
	// trajectory (iteration, likelihood and parameter values).
	SetTrajectoryOutput(io.Writer)
	// SetReportPeriod sets the number of iterations between
	// trajectory lines.
	SetReportPeriod(int)
	// Run starts the optimization.
	Run(iterations int)
	// GetMaxL returns the maximum log-likelihood found.
	GetMaxL() float64
	// GetMaxLParameters returns the parameter values for the
	// maximum likelihood.
	GetMaxLParameters() []float64
	// PrintResults prints the optimization results to the log.
	PrintResults()
	// Summary returns a run summary for provenance output.
	Summary() Summary
}

// Summary stores the result of a single optimizer run.
type Summary struct {
	// Method is the optimization method name.
	Method string `json:"method"`
	// MaxLnL is the maximum log-likelihood.
	MaxLnL float64 `json:"maxLnL"`
	// MaxLParameters stores parameter values for the maximum.
	MaxLParameters map[string]float64 `json:"maxLParameters"`
	// Iterations is the number of iterations performed.
	Iterations int `json:"iterations"`
	// LikelihoodCalls is the number of likelihood evaluations.
	LikelihoodCalls int `json:"likelihoodCalls"`
	// Time is the optimization time in seconds.
	Time float64 `json:"time"`
}

// BaseOptimizer contains basic data and methods for all optimizers.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	method     string
	i          int
	calls      int
	l          float64
	maxL       float64
	maxLPar    []float64
	repPeriod  int
	trajF      io.Writer
	sig        chan os.Signal
	cp         *checkpoint.IO
	startTime  time.Time
	deltaT     time.Duration
	// Quiet suppresses trajectory output.
	Quiet bool
}

// SetOptimizable sets a model to optimize.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
}

// SetCheckpointIO sets checkpoint input/output.
func (o *BaseOptimizer) SetCheckpointIO(cp *checkpoint.IO) {
	o.cp = cp
}

// WatchSignals installs a handler so a signal interrupts the run
// instead of killing the process in the middle of a likelihood call.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// SetTrajectoryOutput sets an output writer for the trajectory.
func (o *BaseOptimizer) SetTrajectoryOutput(f io.Writer) {
	o.trajF = f
}

// SetReportPeriod sets the number of iterations between reports.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

// PrintHeader prints the trajectory header.
func (o *BaseOptimizer) PrintHeader(parameters FloatParameters) {
	if o.Quiet || o.trajF == nil {
		return
	}
	fmt.Fprintf(o.trajF, "iteration\tlikelihood\t%s\n", parameters.NamesString())
}

// PrintLine prints a trajectory line.
func (o *BaseOptimizer) PrintLine(parameters FloatParameters, l float64) {
	if o.Quiet || o.trajF == nil {
		return
	}
	fmt.Fprintf(o.trajF, "%d\t%f\t%s\n", o.i, l, parameters.ValuesString())
}

// PrintResults prints the optimization results to the log.
func (o *BaseOptimizer) PrintResults() {
	log.Noticef("Maximum likelihood: %v", o.maxL)
	log.Infof("Likelihood function calls: %v", o.calls)
	log.Infof("Parameter  names: %v", o.parameters.NamesString())
	log.Infof("Parameter values: %v", o.maxLPar)
	for i, par := range o.parameters {
		if o.maxLPar != nil {
			log.Noticef("%s=%v", par.Name(), o.maxLPar[i])
		}
	}
}

// GetMaxL returns the maximum likelihood value found.
func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

// GetMaxLParameters returns parameter values for the maximum
// likelihood.
func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}

// Summary returns the run summary.
func (o *BaseOptimizer) Summary() Summary {
	s := Summary{
		Method:          o.method,
		MaxLnL:          o.maxL,
		MaxLParameters:  make(map[string]float64, len(o.parameters)),
		Iterations:      o.i,
		LikelihoodCalls: o.calls,
		Time:            o.deltaT.Seconds(),
	}
	if o.maxLPar != nil {
		for i, par := range o.parameters {
			s.MaxLParameters[par.Name()] = o.maxLPar[i]
		}
	}
	return s
}

// saveStart remembers the optimization start time.
func (o *BaseOptimizer) saveStart() {
	o.startTime = time.Now()
}

// saveDeltaT stores the total optimization time.
func (o *BaseOptimizer) saveDeltaT() {
	o.deltaT = time.Since(o.startTime)
}

// SaveCheckpoint saves a checkpoint if checkpoints are enabled and the
// last save is old enough (or final is true).
func (o *BaseOptimizer) SaveCheckpoint(final bool) {
	if o.cp == nil {
		return
	}
	if !final && !o.cp.Old() {
		return
	}
	data := &checkpoint.Data{
		Parameters: make(map[string]float64, len(o.parameters)),
		Likelihood: o.l,
		Iter:       o.i,
		Final:      final,
	}
	for _, par := range o.parameters {
		data.Parameters[par.Name()] = par.Get()
	}
	err := o.cp.Save(data)
	if err != nil {
		log.Error("Error saving checkpoint:", err)
	}
}

// RestoreCheckpoint sets parameter values from the last checkpoint, if
// there is one.
func (o *BaseOptimizer) RestoreCheckpoint() error {
	if o.cp == nil {
		return nil
	}
	data, err := o.cp.GetParameters()
	if err != nil || data == nil {
		return err
	}
	return o.parameters.SetFromMap(data.Parameters)
}
