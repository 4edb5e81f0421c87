package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cgfold/epsfit/estimate"
	"github.com/cgfold/epsfit/optimize"
)

// RunSummary stores run summary information for the JSON output.
type RunSummary struct {
	// Version stores the epsfit version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// TotalTime is the computations time in seconds.
	TotalTime float64 `json:"time"`
	// Frames is the number of trajectory frames read.
	Frames int `json:"frames"`
	// Groups is the number of equilibrium frame groups.
	Groups int `json:"groups"`
	// Fit is the fitting result.
	Fit estimate.Result `json:"fit"`
	// Optimizer is the optimizer run summary.
	Optimizer optimize.Summary `json:"optimizer"`
	// Chi2 stores the goodness of fit per observable.
	Chi2 map[string]float64 `json:"chi2,omitempty"`
	// OutDir is the output directory with the new parameters.
	OutDir string `json:"outDir"`
}

// writeProvenance writes a small human-readable provenance record
// next to the new parameter files.
func writeProvenance(dir string, s *RunSummary) error {
	f, err := os.Create(filepath.Join(dir, "provenance.txt"))
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "epsfit %s\n", s.Version)
	fmt.Fprintf(f, "date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(f, "command: %s\n", strings.Join(s.CommandLine, " "))
	fmt.Fprintf(f, "seed: %d\n", s.Seed)
	fmt.Fprintf(f, "frames: %d\n", s.Frames)
	fmt.Fprintf(f, "equilibrium groups: %d\n", s.Groups)
	fmt.Fprintf(f, "method: %s\n", s.Fit.Method)
	fmt.Fprintf(f, "iterations: %d\n", s.Optimizer.Iterations)
	fmt.Fprintf(f, "likelihood calls: %d\n", s.Fit.LikelihoodCalls)
	fmt.Fprintf(f, "old Q: %g\n", s.Fit.OldQ)
	fmt.Fprintf(f, "new Q: %g\n", s.Fit.NewQ)
	for name, chi2 := range s.Chi2 {
		fmt.Fprintf(f, "chi2[%s]: %g\n", name, chi2)
	}
	return nil
}
