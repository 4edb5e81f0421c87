package optimize

import (
	"math"
	"math/rand"
)

// MH is a Metropolis-Hastings sampler.
type MH struct {
	BaseOptimizer
	// AccPeriod is the number of iterations between acceptance
	// rate reports.
	AccPeriod int
	// SD is the proposal standard deviation.
	SD            float64
	annealing     bool
	annealingSkip int
}

// NewMH creates a new MH sampler. With annealing enabled it becomes a
// simulated annealing optimizer.
func NewMH(annealing bool, annealingSkip int) (mcmc *MH) {
	mcmc = &MH{
		BaseOptimizer: BaseOptimizer{
			method:    "mh",
			repPeriod: 10,
		},
		AccPeriod:     10,
		SD:            1e-2,
		annealing:     annealing,
		annealingSkip: annealingSkip,
	}
	if annealing {
		mcmc.method = "annealing"
	}
	return
}

// Run starts sampling.
func (m *MH) Run(iterations int) {
	m.saveStart()
	m.maxL = math.Inf(-1)
	m.PrintHeader(m.parameters)
	accepted := 0
	l := m.Likelihood()
	m.calls++
	m.l = l
	m.maxL = l
	m.maxLPar = m.parameters.Values(m.maxLPar)
Iter:
	for m.i = 0; m.i < iterations; m.i++ {
		var T float64
		if m.annealing && m.i >= m.annealingSkip {
			T = math.Pow(0.9, float64(m.i-m.annealingSkip)/float64(iterations-m.annealingSkip)*100)
		} else {
			T = 1
		}
		if m.i > 0 && m.i%m.AccPeriod == 0 {
			log.Infof("Acceptance rate %.2f%%", 100*float64(accepted)/float64(m.AccPeriod))
			accepted = 0
		}

		if m.i%m.repPeriod == 0 {
			if m.annealing {
				log.Debugf("%d: L=%f, T=%f", m.i, l, T)
			} else {
				log.Debugf("%d: L=%f", m.i, l)
			}
			m.PrintLine(m.parameters, l)
			m.SaveCheckpoint(false)
		}
		p := rand.Intn(len(m.parameters))
		par := m.parameters[p]
		par.Propose()
		newL := m.Likelihood()
		m.calls++

		var a float64
		if m.annealing {
			a = math.Exp((newL - l) / T)
		} else {
			a = math.Exp(par.Prior() - par.OldPrior() + newL - l)
		}

		if a > 1 || rand.Float64() < a {
			l = newL
			m.l = l
			par.Accept(m.i)
			accepted++
			if l > m.maxL {
				m.maxL = l
				m.maxLPar = m.parameters.Values(m.maxLPar)
			}
		} else {
			par.Reject()
		}

		select {
		case s := <-m.sig:
			log.Warningf("Received signal %v, exiting.", s)
			break Iter
		default:
		}
	}

	m.PrintLine(m.parameters, l)
	m.SaveCheckpoint(true)
	m.saveDeltaT()
	log.Info("Finished Metropolis-Hastings")
}
