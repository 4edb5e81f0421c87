package optimize

import (
	"math"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/cgfold/epsfit/checkpoint"
)

// quadModel is a concave test likelihood with a known maximum.
type quadModel struct {
	x, y       float64
	parameters FloatParameters
}

func newQuadModel(x, y float64) *quadModel {
	m := &quadModel{x: x, y: y}
	m.setupParameters()
	return m
}

func (m *quadModel) setupParameters() {
	m.parameters = nil
	px := NewBasicFloatParameter(&m.x, "x")
	px.SetMin(-100)
	px.SetMax(100)
	px.SetPriorFunc(UniformPrior(-100, 100, true, true))
	px.SetProposalFunc(NormalProposal(0.5))
	py := NewBasicFloatParameter(&m.y, "y")
	py.SetMin(-100)
	py.SetMax(100)
	py.SetPriorFunc(UniformPrior(-100, 100, true, true))
	py.SetProposalFunc(NormalProposal(0.5))
	m.parameters.Append(px)
	m.parameters.Append(py)
}

func (m *quadModel) GetFloatParameters() FloatParameters {
	return m.parameters
}

func (m *quadModel) Copy() Optimizable {
	cp := &quadModel{x: m.x, y: m.y}
	cp.setupParameters()
	return cp
}

func (m *quadModel) Likelihood() float64 {
	return -(m.x-3)*(m.x-3) - 2*(m.y+1)*(m.y+1)
}

func TestNone(tst *testing.T) {
	m := newQuadModel(3, -1)
	opt := NewNone()
	opt.Quiet = true
	opt.SetOptimizable(m)
	opt.Run(1)
	if opt.GetMaxL() != 0 {
		tst.Errorf("Expected L=0 at the maximum, got %v", opt.GetMaxL())
	}
}

func TestDS(tst *testing.T) {
	m := newQuadModel(0, 0)
	opt := NewDS()
	opt.Quiet = true
	opt.SetOptimizable(m)
	opt.Run(1000)
	if math.Abs(opt.GetMaxL()) > 1e-3 {
		tst.Errorf("Simplex did not converge, L=%v", opt.GetMaxL())
	}
	par := opt.GetMaxLParameters()
	if math.Abs(par[0]-3) > 0.1 || math.Abs(par[1]+1) > 0.1 {
		tst.Errorf("Incorrect maximum position: %v", par)
	}
}

func TestMH(tst *testing.T) {
	m := newQuadModel(0, 0)
	opt := NewMH(false, 0)
	opt.Quiet = true
	opt.SetOptimizable(m)
	opt.Run(2000)
	start := -(0.0-3)*(0.0-3) - 2*(0.0+1)*(0.0+1)
	if opt.GetMaxL() <= start {
		tst.Errorf("Sampler found no improvement over %v, L=%v", start, opt.GetMaxL())
	}
}

func TestDSRestoredValues(tst *testing.T) {
	m := newQuadModel(0, 0)
	opt := NewDS()
	opt.Quiet = true
	opt.SetOptimizable(m)
	// values change after the optimizer is set up, as with a
	// checkpoint restore
	par := m.GetFloatParameters()
	if err := par.SetValues([]float64{3, -1}); err != nil {
		tst.Fatal(err)
	}
	opt.Run(10)
	if math.Abs(opt.GetMaxL()) > 1e-6 {
		tst.Errorf("Simplex ignored the restored values, L=%v", opt.GetMaxL())
	}
}

func TestCheckpointRoundTrip(tst *testing.T) {
	fn := filepath.Join(tst.TempDir(), "checkpoint.db")
	db, err := bolt.Open(fn, 0666, nil)
	if err != nil {
		tst.Fatal(err)
	}
	defer db.Close()

	m := newQuadModel(1, 2)
	opt := NewNone()
	opt.Quiet = true
	opt.SetOptimizable(m)
	opt.SetCheckpointIO(checkpoint.NewIO(db, []byte("fit"), 0))
	opt.SaveCheckpoint(true)

	par := m.GetFloatParameters()
	if err := par.SetValues([]float64{0, 0}); err != nil {
		tst.Fatal(err)
	}
	if err := opt.RestoreCheckpoint(); err != nil {
		tst.Fatal(err)
	}
	if m.x != 1 || m.y != 2 {
		tst.Errorf("Incorrect values after restore: x=%v, y=%v", m.x, m.y)
	}
}

func TestShrinkBounds(tst *testing.T) {
	min, max := shrinkBounds(0, 1)
	if min <= 0 || max >= 1 || min >= max {
		tst.Errorf("Incorrect shrunk bounds: [%v, %v]", min, max)
	}

	// narrow and degenerate intervals must not invert
	min, max = shrinkBounds(0.5, 0.5)
	if min != 0.5 || max != 0.5 {
		tst.Errorf("Degenerate interval changed: [%v, %v]", min, max)
	}
	min, max = shrinkBounds(0.5, 0.5+1e-6)
	if min > max {
		tst.Errorf("Narrow interval inverted: [%v, %v]", min, max)
	}
}

func TestSummary(tst *testing.T) {
	m := newQuadModel(1, 1)
	opt := NewNone()
	opt.Quiet = true
	opt.SetOptimizable(m)
	opt.Run(1)
	s := opt.Summary()
	if s.Method != "none" {
		tst.Errorf("Incorrect method in summary: %v", s.Method)
	}
	if s.LikelihoodCalls != 1 {
		tst.Errorf("Incorrect number of likelihood calls: %v", s.LikelihoodCalls)
	}
	if _, ok := s.MaxLParameters["x"]; !ok {
		tst.Error("Missing parameter x in summary")
	}
}
