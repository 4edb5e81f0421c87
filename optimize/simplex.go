package optimize

import (
	"math"
)

const (
	tiny         = 1e-10
	convergedEps = 1e-6
)

// DS is the downhill simplex (Nelder-Mead) optimizer.
type DS struct {
	BaseOptimizer
	delta      float64
	ftol       float64
	repeat     bool
	oldL       float64
	points     []Optimizable
	psum       []float64
	pointPars  []FloatParameters
	pointL     []float64
	newOpt     Optimizable
	newPar     FloatParameters
}

// NewDS creates a new downhill simplex optimizer.
func NewDS() (ds *DS) {
	ds = &DS{
		delta: 1,
		ftol:  tiny,
	}
	ds.method = "simplex"
	ds.repPeriod = 10
	return
}

// createSimplex creates the initial simplex around a starting point.
// Every vertex is an independent copy so the model parameters stay
// untouched until the optimization finishes.
func (ds *DS) createSimplex(opt Optimizable, delta float64) {
	parameters := opt.GetFloatParameters()
	ds.points = make([]Optimizable, len(parameters)+1)
	ds.pointPars = make([]FloatParameters, len(ds.points))
	ds.pointL = make([]float64, len(ds.points))
	for i := 0; i < len(ds.points); i++ {
		point := opt.Copy()
		ds.points[i] = point
		ds.pointPars[i] = point.GetFloatParameters()
	}
	for i := 0; i < len(parameters); i++ {
		parameter := ds.pointPars[i+1][i]
		parameter.Set(parameter.Get() + delta)
	}
	for i := range ds.points {
		if ds.pointPars[i].InRange() {
			ds.pointL[i] = ds.points[i].Likelihood()
			ds.calls++
		} else {
			ds.pointL[i] = math.Inf(-1)
		}
	}
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the low point, tries it, and replaces the low point if
// the new point is better.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	if ds.newOpt == nil {
		ds.newOpt = ds.points[0].Copy()
		ds.newPar = ds.newOpt.GetFloatParameters()
	}
	ds.calcPsum()
	ndim := len(ds.newPar)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newPar[j].Set(ds.psum[j]*fac1 - ds.pointPars[ilo][j].Get()*fac2)
	}
	var l float64
	if ds.newPar.InRange() {
		l = ds.newOpt.Likelihood()
		ds.calls++
	} else {
		l = math.Inf(-1)
	}
	if l > ds.pointL[ilo] {
		ds.points[ilo], ds.newOpt = ds.newOpt, ds.points[ilo]
		ds.pointPars[ilo], ds.newPar = ds.newPar, ds.pointPars[ilo]
		ds.pointL[ilo] = l
	}
	return l
}

func (ds *DS) calcPsum() {
	ds.psum = make([]float64, len(ds.pointPars[0]))
	for i := range ds.psum {
		for _, parameters := range ds.pointPars {
			ds.psum[i] += parameters[i].Get()
		}
	}
}

// Run starts the optimization.
func (ds *DS) Run(iterations int) {
	ds.saveStart()
	// the simplex is built here so restored checkpoint values are
	// picked up
	ds.createSimplex(ds.Optimizable, ds.delta)
	// Lowest (worst), next-lowest and highest points
	var ilo, inlo, ihi int
	var llo, lnlo, lhi float64
	ds.PrintHeader(ds.pointPars[0])
	ds.maxL = math.Inf(-1)
Iter:
	for ds.i = 1; ds.i <= iterations; ds.i++ {
		if ds.pointL[0] < ds.pointL[1] {
			ilo, inlo, ihi = 0, 1, 1
		} else {
			ilo, inlo, ihi = 1, 0, 0
		}
		llo = ds.pointL[ilo]
		lnlo = ds.pointL[inlo]
		lhi = ds.pointL[ihi]
		for i := 2; i < len(ds.points); i++ {
			if ds.pointL[i] >= lhi {
				lhi = ds.pointL[i]
				ihi = i
			}
			if ds.pointL[i] < llo {
				lnlo = llo
				inlo = ilo
				llo = ds.pointL[i]
				ilo = i
			} else if ds.pointL[i] < lnlo {
				lnlo = ds.pointL[i]
				inlo = i
			}
		}
		if lhi > ds.maxL {
			ds.maxL = lhi
			ds.maxLPar = ds.pointPars[ihi].Values(ds.maxLPar)
		}
		ds.l = lhi
		if ds.i%ds.repPeriod == 0 {
			log.Debugf("%d: L=%f (%f)", ds.i, lhi, lhi-llo)
			ds.PrintLine(ds.pointPars[ihi], lhi)
			// checkpoint the best point, not the starting one
			ds.parameters.Update(&ds.pointPars[ihi])
			ds.SaveCheckpoint(false)
		}
		rtol := 2 * math.Abs(ds.pointL[ihi]-ds.pointL[ilo]) / (math.Abs(ds.pointL[ilo]) + math.Abs(ds.pointL[ihi]) + tiny)
		if rtol < ds.ftol {
			if ds.repeat && math.Abs(ds.oldL-lhi) < convergedEps {
				break Iter
			}
			ds.repeat = true
			ds.oldL = lhi
			log.Infof("converged. retrying")
			ds.createSimplex(ds.points[ihi], ds.delta)
			continue
		}
		l := ds.amotry(ilo, -1)
		switch {
		case l >= lhi:
			ds.amotry(ilo, 2)
		case l <= lnlo:
			lsave := llo
			l := ds.amotry(ilo, 0.5)
			if l <= lsave {
				for i, point := range ds.points {
					if i != ihi {
						for j := range ds.pointPars[i] {
							ds.pointPars[i][j].Set(0.5 * (ds.pointPars[i][j].Get() + ds.pointPars[ihi][j].Get()))
						}
						if ds.pointPars[i].InRange() {
							ds.pointL[i] = point.Likelihood()
							ds.calls++
						} else {
							ds.pointL[i] = math.Inf(-1)
						}
					}
				}
			}
		}
		select {
		case s := <-ds.sig:
			log.Warningf("Received signal %v, exiting.", s)
			break Iter
		default:
		}
	}
	if ds.i >= iterations {
		log.Warningf("Iterations exceeded (%d)", iterations)
	}

	ds.parameters.Update(&ds.pointPars[ihi])
	ds.SaveCheckpoint(true)
	ds.saveDeltaT()
	log.Info("Finished downhill simplex")
}
