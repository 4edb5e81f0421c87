package traj

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// GRO reads multi-frame GROMACS gro files.
type GRO struct {
	f       *os.File
	scanner *bufio.Scanner
	natoms  int
	frame   int
}

// OpenGRO opens a gro trajectory and reads the number of atoms from
// the first frame header.
func OpenGRO(filename string) (*GRO, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	g := &GRO{f: f, scanner: bufio.NewScanner(f)}

	// peek at the first frame header for the atom count, then
	// rewind
	if !g.scanner.Scan() {
		f.Close()
		return nil, fmt.Errorf("%s: empty file", filename)
	}
	if !g.scanner.Scan() {
		f.Close()
		return nil, fmt.Errorf("%s: missing atom count", filename)
	}
	g.natoms, err = strconv.Atoi(strings.TrimSpace(g.scanner.Text()))
	if err != nil || g.natoms <= 0 {
		f.Close()
		return nil, fmt.Errorf("%s: bad atom count: %q", filename, g.scanner.Text())
	}
	if _, err = f.Seek(0, 0); err != nil {
		f.Close()
		return nil, err
	}
	g.scanner = bufio.NewScanner(f)
	return g, nil
}

// Len returns the number of atoms per frame.
func (g *GRO) Len() int {
	return g.natoms
}

// Close closes the file.
func (g *GRO) Close() error {
	return g.f.Close()
}

// Next reads the next frame. Coordinates are in nm, columns 21-44 of
// the fixed-format atom lines.
func (g *GRO) Next(frame *Frame) error {
	if !g.scanner.Scan() { // title
		if err := g.scanner.Err(); err != nil {
			return err
		}
		return LastFrameError{}
	}
	if !g.scanner.Scan() {
		return fmt.Errorf("frame %d: missing atom count", g.frame)
	}
	n, err := strconv.Atoi(strings.TrimSpace(g.scanner.Text()))
	if err != nil {
		return fmt.Errorf("frame %d: bad atom count: %v", g.frame, err)
	}
	if n != g.natoms {
		return fmt.Errorf("frame %d: atom count changed from %d to %d", g.frame, g.natoms, n)
	}
	if len(frame.XYZ) != g.natoms {
		frame.XYZ = make([]Vec3, g.natoms)
	}
	for i := 0; i < g.natoms; i++ {
		if !g.scanner.Scan() {
			return fmt.Errorf("frame %d: truncated at atom %d", g.frame, i)
		}
		line := g.scanner.Text()
		if len(line) < 44 {
			return fmt.Errorf("frame %d: short atom line %d", g.frame, i)
		}
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[20+8*k:28+8*k]), 64)
			if err != nil {
				return fmt.Errorf("frame %d atom %d: %v", g.frame, i, err)
			}
			frame.XYZ[i][k] = v
		}
	}
	if !g.scanner.Scan() { // box
		return fmt.Errorf("frame %d: missing box line", g.frame)
	}
	g.frame++
	return nil
}
