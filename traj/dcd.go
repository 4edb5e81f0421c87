package traj

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// DCD reads CHARMM/NAMD dcd binary trajectories (little-endian).
type DCD struct {
	f       *os.File
	r       *bufio.Reader
	natoms  int
	crystal bool
	frame   int
	buf     []float32
}

// OpenDCD opens a dcd trajectory and parses the header.
func OpenDCD(filename string) (*DCD, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	d := &DCD{f: f, r: bufio.NewReader(f)}
	if err := d.readHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %v", filename, err)
	}
	return d, nil
}

func (d *DCD) readHeader() error {
	// header record: "CORD" plus 20 control integers
	n, err := d.recordStart()
	if err != nil {
		return err
	}
	if n != 84 {
		return fmt.Errorf("unexpected header record length %d", n)
	}
	var magic [4]byte
	if _, err := io.ReadFull(d.r, magic[:]); err != nil {
		return err
	}
	if string(magic[:]) != "CORD" {
		return fmt.Errorf("bad magic %q", magic)
	}
	var icntrl [20]int32
	if err := binary.Read(d.r, binary.LittleEndian, &icntrl); err != nil {
		return err
	}
	if err := d.recordEnd(84); err != nil {
		return err
	}
	if icntrl[8] != 0 {
		return fmt.Errorf("%d fixed atoms not supported", icntrl[8])
	}
	// charmm format flag enables the unit cell record
	d.crystal = icntrl[19] != 0 && icntrl[10] != 0

	// title record
	n, err = d.recordStart()
	if err != nil {
		return err
	}
	title := make([]byte, n)
	if _, err := io.ReadFull(d.r, title); err != nil {
		return err
	}
	if err := d.recordEnd(n); err != nil {
		return err
	}

	// atom count record
	n, err = d.recordStart()
	if err != nil {
		return err
	}
	if n != 4 {
		return fmt.Errorf("unexpected natom record length %d", n)
	}
	var natoms int32
	if err := binary.Read(d.r, binary.LittleEndian, &natoms); err != nil {
		return err
	}
	if err := d.recordEnd(4); err != nil {
		return err
	}
	if natoms <= 0 {
		return fmt.Errorf("bad atom count %d", natoms)
	}
	d.natoms = int(natoms)
	d.buf = make([]float32, d.natoms)
	log.Debugf("dcd header: %d atoms, %d frames declared, crystal=%v", d.natoms, icntrl[0], d.crystal)
	return nil
}

// recordStart reads a Fortran record length marker.
func (d *DCD) recordStart() (int, error) {
	var n int32
	if err := binary.Read(d.r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative record length %d", n)
	}
	return int(n), nil
}

// recordEnd reads and validates a closing record length marker.
func (d *DCD) recordEnd(expected int) error {
	var n int32
	if err := binary.Read(d.r, binary.LittleEndian, &n); err != nil {
		return err
	}
	if int(n) != expected {
		return fmt.Errorf("record length mismatch: %d != %d", n, expected)
	}
	return nil
}

// Len returns the number of atoms per frame.
func (d *DCD) Len() int {
	return d.natoms
}

// Close closes the file.
func (d *DCD) Close() error {
	return d.f.Close()
}

// Next reads the next frame.
func (d *DCD) Next(frame *Frame) error {
	if d.crystal {
		n, err := d.recordStart()
		if err == io.EOF {
			return LastFrameError{}
		}
		if err != nil {
			return err
		}
		if n != 48 {
			return fmt.Errorf("frame %d: unexpected cell record length %d", d.frame, n)
		}
		var cell [6]float64
		if err := binary.Read(d.r, binary.LittleEndian, &cell); err != nil {
			return err
		}
		if err := d.recordEnd(48); err != nil {
			return err
		}
	}
	if len(frame.XYZ) != d.natoms {
		frame.XYZ = make([]Vec3, d.natoms)
	}
	for k := 0; k < 3; k++ {
		n, err := d.recordStart()
		if err == io.EOF {
			if k == 0 && !d.crystal {
				return LastFrameError{}
			}
			return fmt.Errorf("frame %d: truncated", d.frame)
		}
		if err != nil {
			return err
		}
		if n != 4*d.natoms {
			return fmt.Errorf("frame %d: unexpected coordinate record length %d", d.frame, n)
		}
		if err := binary.Read(d.r, binary.LittleEndian, d.buf); err != nil {
			return err
		}
		if err := d.recordEnd(n); err != nil {
			return err
		}
		// dcd stores angstroms, convert to nm
		for i, v := range d.buf {
			frame.XYZ[i][k] = float64(v) * 0.1
		}
	}
	d.frame++
	return nil
}
