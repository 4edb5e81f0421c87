package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"syscall"

	bolt "go.etcd.io/bbolt"

	"github.com/cgfold/epsfit/checkpoint"
	"github.com/cgfold/epsfit/cluster"
	"github.com/cgfold/epsfit/estimate"
	"github.com/cgfold/epsfit/model"
	"github.com/cgfold/epsfit/observables"
	"github.com/cgfold/epsfit/optimize"
	"github.com/cgfold/epsfit/traj"
)

// newObservables loads the experimental histograms for the fret pairs
// of a model. Data files are two columns (value, standard deviation),
// one per pair, named pair_<i>_<j>.dat in the data directory.
func newObservables(m *model.Model) (*observables.Set, error) {
	if len(m.FretPairs) == 0 {
		return nil, fmt.Errorf("no fret pairs in the configuration")
	}
	set := &observables.Set{}
	for _, pair := range m.FretPairs {
		name := fmt.Sprintf("pair_%d_%d", pair[0], pair[1])
		h, err := observables.ReadHistogram(
			filepath.Join(m.DataDir, name+".dat"), name, m.BinLow, m.BinHigh)
		if err != nil {
			return nil, err
		}
		h.Scale = m.Scale
		set.Add(h)
	}
	return set, nil
}

// loadFrames reads the whole trajectory of a model, checking the bead
// count against the topology.
func loadFrames(m *model.Model) ([]traj.Frame, error) {
	trajFile := m.Trajectory
	if *trajFileName != "" {
		trajFile = *trajFileName
	}
	r, err := traj.Open(trajFile)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	top, err := traj.Open(m.Topology)
	if err != nil {
		return nil, err
	}
	n := top.Len()
	top.Close()
	if n != r.Len() {
		return nil, fmt.Errorf("topology has %d beads, trajectory %d", n, r.Len())
	}

	return traj.ReadAll(r)
}

// getOptimizer returns an optimizer from the method name.
func getOptimizer() (optimize.Optimizer, error) {
	switch *method {
	case "lbfgsb":
		return optimize.NewLBFGSB(), nil
	case "bfgs":
		return optimize.NewBFGS(), nil
	case "simplex":
		return optimize.NewDS(), nil
	case "mh":
		chain := optimize.NewMH(false, 0)
		chain.AccPeriod = *accept
		return chain, nil
	case "annealing":
		chain := optimize.NewMH(true, *iterations/5)
		chain.AccPeriod = *accept
		return chain, nil
	case "none":
		return optimize.NewNone(), nil
	}
	return nil, fmt.Errorf("unknown optimization method: %s", *method)
}

// runFit runs the whole fitting pipeline: load the model and the
// experimental data, compute observables from the trajectory,
// partition frames into equilibrium groups, maximize Q and persist
// the new parameters.
func runFit() (summary *RunSummary) {
	summary = &RunSummary{}

	m, err := model.Load(*configFileName)
	if err != nil {
		log.Fatal(err)
	}

	obs, err := newObservables(m)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Loaded %d observables, %d comparison functions", len(obs.Obs), obs.NumFunctions())

	frames, err := loadFrames(m)
	if err != nil {
		log.Fatal(err)
	}
	summary.Frames = len(frames)

	fitDists, err := traj.PairDistances(frames, m.FitPairs())
	if err != nil {
		log.Fatal(err)
	}
	obsDists, err := traj.PairDistances(frames, m.FretPairs)
	if err != nil {
		log.Fatal(err)
	}
	// per-observable series over frames
	obsValues := make([][]float64, len(m.FretPairs))
	for o := range obsValues {
		values := make([]float64, len(frames))
		for f := range frames {
			values[f] = obsDists[f][o]
		}
		obsValues[o] = values
	}

	// folding-progress coordinate for the metastable partition
	qCoord, err := traj.NativeFraction(fitDists, m.NativeDistances(), *qTol)
	if err != nil {
		log.Fatal(err)
	}
	rng := rand.New(rand.NewSource(*seed))
	assign, err := cluster.KMeans(cluster.FeatureMatrix(qCoord), *nGroup, rng)
	if err != nil {
		log.Fatal(err)
	}
	groups, err := cluster.Groups(assign, *nGroup)
	if err != nil {
		log.Fatal(err)
	}
	summary.Groups = groups.NGroups()

	qf, err := estimate.NewQFit(m, obs, groups, fitDists, obsValues, *step, *epsMin, *epsMax)
	if err != nil {
		log.Fatal(err)
	}

	oldEps := qf.Epsilons()
	oldQ := qf.Likelihood()
	log.Noticef("Starting Q: %v", oldQ)

	if *randomize {
		log.Info("Using uniform (in the boundaries) random starting point")
		qf.GetFloatParameters().Randomize()
	}

	opt, err := getOptimizer()
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Using %s optimization.", *method)

	if *cpF != "" {
		db, err := bolt.Open(*cpF, 0666, nil)
		if err != nil {
			log.Fatal("Error opening checkpoint database:", err)
		}
		defer db.Close()
		opt.SetCheckpointIO(checkpoint.NewIO(db, []byte(*configFileName), *cpTime))
	}

	f := os.Stdout
	if *outF != "" {
		f, err = os.Create(*outF)
		if err != nil {
			log.Fatal("Error creating trajectory file:", err)
		}
		defer f.Close()
	}
	opt.SetTrajectoryOutput(f)
	opt.SetOptimizable(qf)
	opt.SetReportPeriod(*report)
	opt.WatchSignals(os.Interrupt, syscall.SIGUSR2)

	if *cpF != "" {
		if err := opt.RestoreCheckpoint(); err != nil {
			log.Error("Error restoring from checkpoint:", err)
		}
	}

	opt.Run(*iterations)
	opt.PrintResults()
	summary.Optimizer = opt.Summary()

	// leave the model at the best point found, not the last visited one
	if maxLPar := opt.GetMaxLParameters(); maxLPar != nil {
		par := qf.GetFloatParameters()
		if err := par.SetValues(maxLPar); err != nil {
			log.Fatal(err)
		}
	}

	newEps := qf.Epsilons()
	newQ := qf.Likelihood()

	summary.Fit = estimate.Result{
		OldEpsilons:     oldEps,
		NewEpsilons:     newEps,
		OldQ:            oldQ,
		NewQ:            newQ,
		LikelihoodCalls: summary.Optimizer.LikelihoodCalls,
		Method:          *method,
	}
	log.Noticef("Q: %v -> %v", oldQ, newQ)

	// goodness of fit per observable
	hists, err := qf.SimulatedHistograms()
	if err != nil {
		log.Error("Error computing fitted histograms:", err)
	} else {
		summary.Chi2 = make(map[string]float64, len(obs.Obs))
		for o, h := range obs.Obs {
			chi2, p, err := h.Chi2(hists[o])
			if err != nil {
				log.Error(err)
				continue
			}
			log.Noticef("%s: chi2=%.4f, p=%.4g", h.Name, chi2, p)
			summary.Chi2[h.Name] = chi2
		}
	}

	if err := m.SetEpsilons(newEps); err != nil {
		log.Fatal(err)
	}

	dir := *outDir
	if dir == "" {
		dir = fmt.Sprintf("newton_%d", m.Iteration+1)
	}
	if err := m.SaveNext(dir); err != nil {
		log.Fatal("Error saving new parameters:", err)
	}
	log.Noticef("Wrote new parameters to %s", dir)
	summary.OutDir = dir

	if err := writeProvenance(dir, summary); err != nil {
		log.Error("Error writing provenance file:", err)
	}

	return summary
}
