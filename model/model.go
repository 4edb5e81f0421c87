// Package model loads a parameterized coarse-grained protein model:
// topology and trajectory references, the pairwise interaction list
// with per-pair epsilon values, and fitting options.
package model

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/op/go-logging"
)

// log is the logging variable for the package.
var log = logging.MustGetLogger("model")

// GasConstantKJMol is the gas constant in kJ/(mol*K).
const GasConstantKJMol = 0.0083144621

// Model is a coarse-grained protein model with a pairwise-linear
// Hamiltonian.
type Model struct {
	// Topology is the structure file path.
	Topology string
	// Trajectory is the trajectory file path.
	Trajectory string
	// DataDir is the experimental data directory.
	DataDir string
	// Iteration is the fitting iteration number.
	Iteration int
	// Temperature is the simulation temperature in K.
	Temperature float64
	// Beta is 1/(R*T).
	Beta float64
	// Pairs is the pairwise interaction list.
	Pairs []Pair
	// FretPairs are bead pairs whose distances are the fitted
	// observables.
	FretPairs [][2]int
	// BinLow and BinHigh are histogram edges for the observables.
	BinLow, BinHigh float64
	// Scale converts simulated observable values to the experimental
	// units before binning.
	Scale float64
	// useParams are indices into Pairs of the fitted epsilons;
	// disulfide pairs are excluded.
	useParams []int

	cfg *Config
}

// Load reads a model from an ini-style configuration file.
func Load(filename string) (*Model, error) {
	cfg, err := ParseConfig(filename)
	if err != nil {
		return nil, err
	}

	m := &Model{cfg: cfg}

	if m.Topology, err = cfg.GetPath("model", "topology"); err != nil {
		return nil, err
	}
	pairsFile, err := cfg.GetPath("model", "pairs")
	if err != nil {
		return nil, err
	}
	paramsFile, err := cfg.GetPath("model", "params")
	if err != nil {
		return nil, err
	}
	if m.Trajectory, err = cfg.GetPath("fitting", "trajectory"); err != nil {
		return nil, err
	}
	if m.DataDir, err = cfg.GetPath("fitting", "data"); err != nil {
		return nil, err
	}
	if m.Temperature, err = cfg.GetFloat("fitting", "temperature", 120); err != nil {
		return nil, err
	}
	if m.Temperature <= 0 {
		return nil, errors.New("temperature must be positive")
	}
	m.Beta = 1 / (GasConstantKJMol * m.Temperature)
	if m.Iteration, err = cfg.GetInt("fitting", "iteration", 0); err != nil {
		return nil, err
	}
	if m.FretPairs, err = cfg.GetIntPairs("fitting", "fret_pairs"); err != nil {
		return nil, err
	}
	if m.BinLow, err = cfg.GetFloat("fitting", "bin_low", 0); err != nil {
		return nil, err
	}
	if m.BinHigh, err = cfg.GetFloat("fitting", "bin_high", 10); err != nil {
		return nil, err
	}
	if m.BinHigh <= m.BinLow {
		return nil, errors.New("bin_high must be greater than bin_low")
	}
	if m.Scale, err = cfg.GetFloat("fitting", "scale", 1); err != nil {
		return nil, err
	}
	if m.Scale <= 0 {
		return nil, errors.New("scale must be positive")
	}

	if m.Pairs, err = readPairs(pairsFile); err != nil {
		return nil, err
	}
	eps, err := ReadParams(paramsFile)
	if err != nil {
		return nil, err
	}
	if len(eps) != len(m.Pairs) {
		return nil, fmt.Errorf("%d epsilons for %d pairs", len(eps), len(m.Pairs))
	}
	for i := range m.Pairs {
		m.Pairs[i].Epsilon = eps[i]
	}

	disulfides, err := cfg.GetIntPairs("model", "disulfides")
	if err != nil {
		return nil, err
	}
	m.selectParams(disulfides)

	log.Infof("Read model: %d pairs, %d fitted epsilons, %d fret pairs",
		len(m.Pairs), len(m.useParams), len(m.FretPairs))
	log.Infof("Temperature %v K, beta=%v", m.Temperature, m.Beta)

	return m, nil
}

// selectParams marks all pairs except disulfides as fitted.
func (m *Model) selectParams(disulfides [][2]int) {
	isDisulfide := func(p *Pair) bool {
		for _, d := range disulfides {
			if (p.I == d[0] && p.J == d[1]) || (p.I == d[1] && p.J == d[0]) {
				return true
			}
		}
		return false
	}
	m.useParams = m.useParams[:0]
	for i := range m.Pairs {
		if !isDisulfide(&m.Pairs[i]) {
			m.useParams = append(m.useParams, i)
		}
	}
}

// readPairs parses a pairs file: bead indices, kind, native distance
// and width per line.
func readPairs(filename string) ([]Pair, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pairs []Pair
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("%s:%d: expected 5 columns, got %d", filename, lineNo, len(fields))
		}
		var p Pair
		if p.I, err = strconv.Atoi(fields[0]); err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		if p.J, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		if p.Kind, err = PairKindFromString(fields[2]); err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		if p.R0, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		if p.Width, err = strconv.ParseFloat(fields[4], 64); err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		if p.I == p.J {
			return nil, fmt.Errorf("%s:%d: self pair", filename, lineNo)
		}
		pairs = append(pairs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, errors.New("empty pairs file")
	}
	return pairs, nil
}

// ReadParams reads a parameter file, one value per line.
func ReadParams(filename string) ([]float64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var params []float64
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		x, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineNo, err)
		}
		params = append(params, x)
	}
	return params, scanner.Err()
}

// WriteParams writes a parameter file, one value per line.
func WriteParams(filename string, params []float64) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, x := range params {
		fmt.Fprintf(w, "%.8e\n", x)
	}
	return w.Flush()
}

// FitPairs returns the bead index pairs for the fitted epsilons, in
// parameter order.
func (m *Model) FitPairs() [][2]int {
	pairs := make([][2]int, len(m.useParams))
	for i, pi := range m.useParams {
		pairs[i] = [2]int{m.Pairs[pi].I, m.Pairs[pi].J}
	}
	return pairs
}

// NativeDistances returns the native distances of the fitted pairs,
// in parameter order.
func (m *Model) NativeDistances() []float64 {
	r0 := make([]float64, len(m.useParams))
	for i, pi := range m.useParams {
		r0[i] = m.Pairs[pi].R0
	}
	return r0
}

// Epsilons returns the fitted epsilon values in parameter order.
func (m *Model) Epsilons() []float64 {
	eps := make([]float64, len(m.useParams))
	for i, pi := range m.useParams {
		eps[i] = m.Pairs[pi].Epsilon
	}
	return eps
}

// SetEpsilons sets the fitted epsilon values from parameter order.
func (m *Model) SetEpsilons(eps []float64) error {
	if len(eps) != len(m.useParams) {
		return errors.New("incorrect number of epsilons")
	}
	for i, pi := range m.useParams {
		m.Pairs[pi].Epsilon = eps[i]
	}
	return nil
}

// AllEpsilons returns epsilons for all pairs including the fixed ones.
func (m *Model) AllEpsilons() []float64 {
	eps := make([]float64, len(m.Pairs))
	for i := range m.Pairs {
		eps[i] = m.Pairs[i].Epsilon
	}
	return eps
}

// PotentialsEpsilon returns the potential energy as a function of the
// epsilons. dists is frame-major with one column per fitted pair. The
// Hamiltonian is linear in the epsilons, so heps returns per-frame
// -beta*H(eps) and the gradient prefactors are constant.
func (m *Model) PotentialsEpsilon(dists [][]float64) (heps func([]float64) []float64, dheps func() [][]float64, err error) {
	if len(dists) == 0 {
		return nil, nil, errors.New("no frames")
	}
	if len(dists[0]) != len(m.useParams) {
		return nil, nil, fmt.Errorf("dimensions of data incompatible with number of parameters: %d columns, %d parameters",
			len(dists[0]), len(m.useParams))
	}

	nframes := len(dists)
	// constants[i][f] is the prefactor of epsilon i at frame f
	constants := make([][]float64, len(m.useParams))
	for i, pi := range m.useParams {
		pair := &m.Pairs[pi]
		col := make([]float64, nframes)
		for f := 0; f < nframes; f++ {
			col[f] = -m.Beta * pair.DVDEps(dists[f][i])
		}
		constants[i] = col
	}

	heps = func(eps []float64) []float64 {
		total := make([]float64, nframes)
		for i := range eps {
			ci := constants[i]
			for f := 0; f < nframes; f++ {
				total[f] += eps[i] * ci[f]
			}
		}
		return total
	}
	dheps = func() [][]float64 {
		return constants
	}
	return heps, dheps, nil
}

// EpsilonBounds computes the bound interval for an epsilon: the value
// may move at most step away from its current value and never outside
// of the global [lo, hi] limits. The returned interval contains the
// (clamped) value and has non-negative width.
func EpsilonBounds(eps, step, lo, hi float64) (min, max float64) {
	if eps < lo {
		eps = lo
	}
	if eps > hi {
		eps = hi
	}
	min = math.Max(lo, eps-step)
	max = math.Min(hi, eps+step)
	return min, max
}

// SaveNext writes the fitted epsilons and an updated configuration for
// the next iteration into dir. The params file is one value per line.
func (m *Model) SaveNext(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	paramsFile := filepath.Join(dir, "params")
	if err := WriteParams(paramsFile, m.AllEpsilons()); err != nil {
		return err
	}
	m.cfg.Set("model", "params", paramsFile)
	m.cfg.Set("fitting", "iteration", strconv.Itoa(m.Iteration+1))
	return m.cfg.Write(filepath.Join(dir, "config.ini"))
}
