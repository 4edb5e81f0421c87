package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const configText = `# test model
[model]
topology = prot.gro
pairs = pairs.dat
params = params.dat
disulfides = 0 3

[fitting]
trajectory = traj.gro
data = data
temperature = 170
iteration = 2
fret_pairs = 0 2
bin_low = 0
bin_high = 2
scale = 10
`

const pairsText = `0 1 gaussian 0.5 0.05
1 2 lj12gaussian 0.8 0.05
0 3 lj1210 0.6 0.05
`

const paramsText = `1.0
2.0
0.5
`

func writeTestModel(tst *testing.T) string {
	dir := tst.TempDir()
	files := map[string]string{
		"config.ini": configText,
		"pairs.dat":  pairsText,
		"params.dat": paramsText,
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0666); err != nil {
			tst.Fatal(err)
		}
	}
	return filepath.Join(dir, "config.ini")
}

func TestLoad(tst *testing.T) {
	m, err := Load(writeTestModel(tst))
	if err != nil {
		tst.Fatal(err)
	}
	if len(m.Pairs) != 3 {
		tst.Errorf("Expected 3 pairs, got %d", len(m.Pairs))
	}
	// the disulfide pair is excluded from fitting
	if len(m.Epsilons()) != 2 {
		tst.Errorf("Expected 2 fitted epsilons, got %d", len(m.Epsilons()))
	}
	if m.Iteration != 2 {
		tst.Errorf("Incorrect iteration: %d", m.Iteration)
	}
	if len(m.FretPairs) != 1 || m.FretPairs[0] != [2]int{0, 2} {
		tst.Errorf("Incorrect fret pairs: %v", m.FretPairs)
	}
	beta := 1 / (GasConstantKJMol * 170)
	if math.Abs(m.Beta-beta) > 1e-12 {
		tst.Errorf("Incorrect beta: %v", m.Beta)
	}
	if m.Scale != 10 {
		tst.Errorf("Incorrect scale: %v", m.Scale)
	}
}

func TestEpsilonBounds(tst *testing.T) {
	cases := []struct {
		eps, step, lo, hi float64
	}{
		{1, 1, 0.01, 10},
		{0.01, 1, 0.01, 10},
		{10, 1, 0.01, 10},
		{5, 100, 0.01, 10},
		{-5, 1, 0.01, 10},
		{50, 1, 0.01, 10},
		{0.5, 0, 0.01, 10},
	}
	for _, c := range cases {
		min, max := EpsilonBounds(c.eps, c.step, c.lo, c.hi)
		if max < min {
			tst.Errorf("EpsilonBounds(%v, %v, %v, %v): negative width [%v, %v]",
				c.eps, c.step, c.lo, c.hi, min, max)
		}
		if min < c.lo || max > c.hi {
			tst.Errorf("EpsilonBounds(%v, %v, %v, %v): outside of global limits [%v, %v]",
				c.eps, c.step, c.lo, c.hi, min, max)
		}
		eps := c.eps
		if eps < c.lo {
			eps = c.lo
		}
		if eps > c.hi {
			eps = c.hi
		}
		if eps < min || eps > max {
			tst.Errorf("EpsilonBounds(%v, %v, %v, %v): clamped value %v outside of [%v, %v]",
				c.eps, c.step, c.lo, c.hi, eps, min, max)
		}
	}
}

func TestDVDEps(tst *testing.T) {
	g := Pair{Kind: Gaussian, R0: 0.5, Width: 0.05}
	if math.Abs(g.DVDEps(0.5)+1) > 1e-12 {
		tst.Errorf("Gaussian prefactor at the minimum should be -1, got %v", g.DVDEps(0.5))
	}
	if math.Abs(g.DVDEps(5)) > 1e-12 {
		tst.Errorf("Gaussian prefactor far away should vanish, got %v", g.DVDEps(5))
	}

	lj := Pair{Kind: LJ1210, R0: 0.5, Width: 0.05}
	if math.Abs(lj.DVDEps(0.5)+1) > 1e-12 {
		tst.Errorf("12-10 prefactor at the minimum should be -1, got %v", lj.DVDEps(0.5))
	}
}

func TestPotentialsEpsilonLinear(tst *testing.T) {
	m, err := Load(writeTestModel(tst))
	if err != nil {
		tst.Fatal(err)
	}
	dists := [][]float64{
		{0.5, 0.8},
		{0.6, 0.9},
		{1.5, 1.9},
	}
	heps, dheps, err := m.PotentialsEpsilon(dists)
	if err != nil {
		tst.Fatal(err)
	}
	eps := []float64{1, 2}
	h := heps(eps)
	if len(h) != len(dists) {
		tst.Fatalf("Expected %d frame energies, got %d", len(dists), len(h))
	}
	grad := dheps()
	for f := range h {
		expected := eps[0]*grad[0][f] + eps[1]*grad[1][f]
		if math.Abs(h[f]-expected) > 1e-12 {
			tst.Errorf("Frame %d: energy not linear in epsilons: %v != %v", f, h[f], expected)
		}
	}

	// doubling the epsilons doubles the energy
	h2 := heps([]float64{2, 4})
	for f := range h {
		if math.Abs(h2[f]-2*h[f]) > 1e-12 {
			tst.Errorf("Frame %d: energy not linear under scaling", f)
		}
	}
}

func TestSaveNext(tst *testing.T) {
	m, err := Load(writeTestModel(tst))
	if err != nil {
		tst.Fatal(err)
	}
	if err := m.SetEpsilons([]float64{1.5, 2.5}); err != nil {
		tst.Fatal(err)
	}
	dir := filepath.Join(tst.TempDir(), "newton_3")
	if err := m.SaveNext(dir); err != nil {
		tst.Fatal(err)
	}
	params, err := ReadParams(filepath.Join(dir, "params"))
	if err != nil {
		tst.Fatal(err)
	}
	if len(params) != 3 {
		tst.Fatalf("Expected 3 epsilons, got %d", len(params))
	}
	// the disulfide epsilon is unchanged
	if params[2] != 0.5 {
		tst.Errorf("Fixed epsilon changed: %v", params[2])
	}
	if params[0] != 1.5 || params[1] != 2.5 {
		tst.Errorf("Incorrect saved epsilons: %v", params)
	}

	cfg, err := ParseConfig(filepath.Join(dir, "config.ini"))
	if err != nil {
		tst.Fatal(err)
	}
	if v, _ := cfg.Get("fitting", "iteration"); v != "3" {
		tst.Errorf("Incorrect iteration in the new config: %q", v)
	}
}
