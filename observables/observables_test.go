package observables

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testHistogram(tst *testing.T) *Histogram {
	h, err := NewHistogram("test", 0, 1, []float64{0.2, 0.5, 0.3}, []float64{0.05, 0.05, 0.05})
	if err != nil {
		tst.Fatal(err)
	}
	return h
}

func TestReadHistogram(tst *testing.T) {
	dir := tst.TempDir()
	fn := filepath.Join(dir, "pair_0_2.dat")
	text := "# experimental distances\n0.1 0.02\n0.6 0.03\n0.3 0.02\n"
	if err := os.WriteFile(fn, []byte(text), 0666); err != nil {
		tst.Fatal(err)
	}
	h, err := ReadHistogram(fn, "pair_0_2", 0, 3)
	if err != nil {
		tst.Fatal(err)
	}
	if h.NBins() != 3 {
		tst.Errorf("Expected 3 bins, got %d", h.NBins())
	}
	if h.Mean[1] != 0.6 || h.Std[1] != 0.03 {
		tst.Errorf("Incorrect bin 1: mean=%v std=%v", h.Mean[1], h.Std[1])
	}
	if len(h.Edges) != 4 || h.Edges[0] != 0 || h.Edges[3] != 3 {
		tst.Errorf("Incorrect edges: %v", h.Edges)
	}
}

func TestReadHistogramBadStd(tst *testing.T) {
	dir := tst.TempDir()
	fn := filepath.Join(dir, "bad.dat")
	if err := os.WriteFile(fn, []byte("0.1 0\n"), 0666); err != nil {
		tst.Fatal(err)
	}
	if _, err := ReadHistogram(fn, "bad", 0, 1); err == nil {
		tst.Error("Expected error for zero standard deviation")
	}
}

func TestBin(tst *testing.T) {
	h := testHistogram(tst)
	cases := []struct {
		x   float64
		bin int
	}{
		{0, 0},
		{0.34, 1},
		{0.99, 2},
		{-0.1, -1},
		{1, -1},
	}
	for _, c := range cases {
		if b := h.Bin(c.x); b != c.bin {
			tst.Errorf("Bin(%v) = %d, expected %d", c.x, b, c.bin)
		}
	}

	// the scale factor converts values before binning
	h.Scale = 0.5
	if b := h.Bin(1.2); b != 1 {
		tst.Errorf("Bin(1.2) with scale 0.5 = %d, expected 1", b)
	}
	if b := h.Bin(2); b != -1 {
		tst.Errorf("Bin(2) with scale 0.5 = %d, expected -1", b)
	}
}

func TestCompute(tst *testing.T) {
	h := testHistogram(tst)
	values := []float64{0.1, 0.1, 0.5, 0.9}
	hist, err := h.Compute(values, nil)
	if err != nil {
		tst.Fatal(err)
	}
	expected := []float64{0.5, 0.25, 0.25}
	for i := range expected {
		if math.Abs(hist[i]-expected[i]) > 1e-12 {
			tst.Errorf("Bin %d: %v, expected %v", i, hist[i], expected[i])
		}
	}

	// weighting moves mass between bins
	hist, err = h.Compute(values, []float64{0, 0, 1, 1})
	if err != nil {
		tst.Fatal(err)
	}
	expected = []float64{0, 0.5, 0.5}
	for i := range expected {
		if math.Abs(hist[i]-expected[i]) > 1e-12 {
			tst.Errorf("Weighted bin %d: %v, expected %v", i, hist[i], expected[i])
		}
	}
}

func TestLogQMaximum(tst *testing.T) {
	h := testHistogram(tst)
	atMax, err := h.LogQ([]float64{0.2, 0.5, 0.3})
	if err != nil {
		tst.Fatal(err)
	}
	off, err := h.LogQ([]float64{0.3, 0.4, 0.3})
	if err != nil {
		tst.Fatal(err)
	}
	if atMax <= off {
		tst.Errorf("LogQ at the experimental values (%v) should exceed a shifted one (%v)", atMax, off)
	}
}

func TestChi2(tst *testing.T) {
	h := testHistogram(tst)
	chi2, p, err := h.Chi2([]float64{0.2, 0.5, 0.3})
	if err != nil {
		tst.Fatal(err)
	}
	if chi2 != 0 {
		tst.Errorf("Expected chi2=0 for a perfect fit, got %v", chi2)
	}
	if math.Abs(p-1) > 1e-12 {
		tst.Errorf("Expected p=1 for a perfect fit, got %v", p)
	}

	// a worse fit has a larger statistic and a smaller survival
	// probability
	chi2, pOff, err := h.Chi2([]float64{0.3, 0.4, 0.3})
	if err != nil {
		tst.Fatal(err)
	}
	if chi2 <= 0 {
		tst.Errorf("Expected positive chi2, got %v", chi2)
	}
	if pOff <= 0 || pOff >= 1 {
		tst.Errorf("Survival probability outside of (0, 1): %v", pOff)
	}
}

func TestSetLogQ(tst *testing.T) {
	h := testHistogram(tst)
	s := &Set{}
	s.Add(h)
	s.Add(h)
	if s.NumFunctions() != 6 {
		tst.Errorf("Expected 6 functions, got %d", s.NumFunctions())
	}

	values := []float64{0.2, 0.5, 0.3, 0.2, 0.5, 0.3}
	logQ, err := s.LogQ(values)
	if err != nil {
		tst.Fatal(err)
	}
	single, err := h.LogQ(values[:3])
	if err != nil {
		tst.Fatal(err)
	}
	if math.Abs(logQ-2*single) > 1e-12 {
		tst.Errorf("Set LogQ (%v) should be the sum over observables (%v)", logQ, 2*single)
	}

	if _, err := s.LogQ(values[:4]); err == nil {
		tst.Error("Expected error for incorrect number of values")
	}
}
