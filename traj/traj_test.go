package traj

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeGRO(tst *testing.T, frames [][]Vec3) string {
	var buf bytes.Buffer
	for f, xyz := range frames {
		fmt.Fprintf(&buf, "test frame t= %d\n", f)
		fmt.Fprintf(&buf, "%5d\n", len(xyz))
		for i, v := range xyz {
			fmt.Fprintf(&buf, "%5d%-5s%5s%5d%8.3f%8.3f%8.3f\n",
				i+1, "ALA", "CA", i+1, v[0], v[1], v[2])
		}
		fmt.Fprintln(&buf, "   5.00000   5.00000   5.00000")
	}
	fn := filepath.Join(tst.TempDir(), "test.gro")
	if err := os.WriteFile(fn, buf.Bytes(), 0666); err != nil {
		tst.Fatal(err)
	}
	return fn
}

func writeDCD(tst *testing.T, frames [][]Vec3) string {
	var buf bytes.Buffer
	le := binary.LittleEndian
	record := func(payload []byte) {
		binary.Write(&buf, le, int32(len(payload)))
		buf.Write(payload)
		binary.Write(&buf, le, int32(len(payload)))
	}

	var header bytes.Buffer
	header.WriteString("CORD")
	var icntrl [20]int32
	icntrl[0] = int32(len(frames))
	binary.Write(&header, le, icntrl)
	record(header.Bytes())

	var title bytes.Buffer
	binary.Write(&title, le, int32(1))
	title.Write(make([]byte, 80))
	record(title.Bytes())

	var natoms bytes.Buffer
	binary.Write(&natoms, le, int32(len(frames[0])))
	record(natoms.Bytes())

	for _, xyz := range frames {
		for k := 0; k < 3; k++ {
			var coords bytes.Buffer
			for _, v := range xyz {
				// stored in angstroms
				binary.Write(&coords, le, float32(v[k]*10))
			}
			record(coords.Bytes())
		}
	}

	fn := filepath.Join(tst.TempDir(), "test.dcd")
	if err := os.WriteFile(fn, buf.Bytes(), 0666); err != nil {
		tst.Fatal(err)
	}
	return fn
}

func testFrames() [][]Vec3 {
	return [][]Vec3{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		{{0, 0, 0}, {0.5, 0, 0}, {0.5, 0.5, 0.5}},
	}
}

func checkFrames(tst *testing.T, fn string, want [][]Vec3, tol float64) {
	r, err := Open(fn)
	if err != nil {
		tst.Fatal(err)
	}
	defer r.Close()
	if r.Len() != len(want[0]) {
		tst.Fatalf("Expected %d beads, got %d", len(want[0]), r.Len())
	}
	frames, err := ReadAll(r)
	if err != nil {
		tst.Fatal(err)
	}
	if len(frames) != len(want) {
		tst.Fatalf("Expected %d frames, got %d", len(want), len(frames))
	}
	for f := range want {
		for i := range want[f] {
			for k := 0; k < 3; k++ {
				if math.Abs(frames[f].XYZ[i][k]-want[f][i][k]) > tol {
					tst.Errorf("Frame %d bead %d coordinate %d: %v != %v",
						f, i, k, frames[f].XYZ[i][k], want[f][i][k])
				}
			}
		}
	}
}

func TestGRO(tst *testing.T) {
	checkFrames(tst, writeGRO(tst, testFrames()), testFrames(), 1e-3)
}

func TestDCD(tst *testing.T) {
	checkFrames(tst, writeDCD(tst, testFrames()), testFrames(), 1e-5)
}

func TestPairDistances(tst *testing.T) {
	frames := []Frame{
		{XYZ: []Vec3{{0, 0, 0}, {3, 4, 0}, {0, 0, 1}}},
	}
	dists, err := PairDistances(frames, [][2]int{{0, 1}, {0, 2}})
	if err != nil {
		tst.Fatal(err)
	}
	if math.Abs(dists[0][0]-5) > 1e-12 {
		tst.Errorf("Incorrect distance: %v", dists[0][0])
	}
	if math.Abs(dists[0][1]-1) > 1e-12 {
		tst.Errorf("Incorrect distance: %v", dists[0][1])
	}

	if _, err := PairDistances(frames, [][2]int{{0, 5}}); err == nil {
		tst.Error("Expected error for a pair outside of the beads")
	}
}

func TestNativeFraction(tst *testing.T) {
	dists := [][]float64{
		{0.5, 0.8},
		{0.5, 2.0},
		{2.0, 2.0},
	}
	q, err := NativeFraction(dists, []float64{0.5, 0.8}, 0.2)
	if err != nil {
		tst.Fatal(err)
	}
	expected := []float64{1, 0.5, 0}
	for f := range expected {
		if math.Abs(q[f]-expected[f]) > 1e-12 {
			tst.Errorf("Frame %d: q=%v, expected %v", f, q[f], expected[f])
		}
	}
}
