// Package traj reads molecular-dynamics trajectories and computes
// per-frame pair distances.
package traj

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/op/go-logging"
)

// log is the logging variable for the package.
var log = logging.MustGetLogger("traj")

// Vec3 is a single bead position in nm.
type Vec3 [3]float64

// Frame is a single trajectory frame.
type Frame struct {
	// XYZ are the bead positions.
	XYZ []Vec3
}

// LastFrameError marks the normal end of a trajectory.
type LastFrameError struct{}

func (LastFrameError) Error() string {
	return "no more frames"
}

// Reader iterates over trajectory frames.
type Reader interface {
	// Len returns the number of beads per frame.
	Len() int
	// Next reads the next frame into f. It returns LastFrameError
	// after the last frame.
	Next(f *Frame) error
	// Close closes the underlying file.
	Close() error
}

// Open opens a trajectory file choosing the format by extension
// (.dcd or .gro).
func Open(filename string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".dcd":
		return OpenDCD(filename)
	case ".gro":
		return OpenGRO(filename)
	}
	return nil, fmt.Errorf("unknown trajectory format: %s", filename)
}

// ReadAll reads all the frames of a trajectory.
func ReadAll(r Reader) ([]Frame, error) {
	var frames []Frame
	for {
		f := Frame{XYZ: make([]Vec3, r.Len())}
		err := r.Next(&f)
		if err != nil {
			if _, ok := err.(LastFrameError); ok {
				break
			}
			return nil, err
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		return nil, errors.New("empty trajectory")
	}
	log.Infof("Read %d frames of %d beads", len(frames), r.Len())
	return frames, nil
}

// PairDistances computes distances for the bead pairs in every frame.
// The result is frame-major: dists[f][p] is the distance of pair p in
// frame f. No periodic correction is applied.
func PairDistances(frames []Frame, pairs [][2]int) ([][]float64, error) {
	dists := make([][]float64, len(frames))
	for f := range frames {
		xyz := frames[f].XYZ
		row := make([]float64, len(pairs))
		for p, pair := range pairs {
			i, j := pair[0], pair[1]
			if i < 0 || i >= len(xyz) || j < 0 || j >= len(xyz) {
				return nil, fmt.Errorf("pair (%d, %d) outside of %d beads", i, j, len(xyz))
			}
			dx := xyz[i][0] - xyz[j][0]
			dy := xyz[i][1] - xyz[j][1]
			dz := xyz[i][2] - xyz[j][2]
			row[p] = math.Sqrt(dx*dx + dy*dy + dz*dz)
		}
		dists[f] = row
	}
	return dists, nil
}

// NativeFraction computes the folding-progress coordinate for every
// frame: the fraction of pairs closer than native*(1+tol).
func NativeFraction(dists [][]float64, native []float64, tol float64) ([]float64, error) {
	q := make([]float64, len(dists))
	for f, row := range dists {
		if len(row) != len(native) {
			return nil, errors.New("native distance count does not match pair count")
		}
		formed := 0
		for p, d := range row {
			if d <= native[p]*(1+tol) {
				formed++
			}
		}
		q[f] = float64(formed) / float64(len(native))
	}
	return q, nil
}
