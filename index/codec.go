package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/poiesic/pinmatch/core"
)

const (
	formatVersion uint16 = 1

	// maxElements bounds count*dim of a decoded index (8 GiB of float32).
	maxElements = 1 << 31

	// maxDim bounds the vector length of a decoded index.
	maxDim = 1 << 16

	// initialElements caps the up-front allocation while decoding; the matrix
	// grows as rows are actually read, so a lying header cannot force a huge
	// allocation before the payload runs out.
	initialElements = 1 << 16
)

var magic = [4]byte{'P', 'M', 'F', 'X'}

type header struct {
	Magic   [4]byte
	Version uint16
	Dim     uint32
	Count   uint32
}

// countingWriter tracks bytes written for io.WriterTo.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// WriteTo encodes the index to w. The encoding is byte-stable: the same
// vectors always produce the same bytes.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(bw, crc)

	h := header{Magic: magic, Version: formatVersion, Dim: uint32(f.dim), Count: uint32(f.count)}
	if err := binary.Write(mw, binary.LittleEndian, &h); err != nil {
		return cw.n, err
	}

	buf := make([]byte, 4*f.dim)
	for i := 0; i < f.count; i++ {
		for j, v := range f.row(i) {
			binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(v))
		}
		if _, err := mw.Write(buf); err != nil {
			return cw.n, err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, crc.Sum32()); err != nil {
		return cw.n, err
	}
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Decode reads an index previously written by WriteTo. All failures are
// wrapped with core.ErrIndex.
func Decode(r io.Reader) (*Flat, error) {
	f, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndex, err)
	}
	return f, nil
}

func decode(r io.Reader) (*Flat, error) {
	crc := crc32.NewIEEE()
	tr := io.TeeReader(bufio.NewReader(r), crc)

	var h header
	if err := binary.Read(tr, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", truncated(err))
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMagic, h.Magic[:])
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Dim == 0 {
		return nil, ErrInvalidDimension
	}
	if h.Dim > maxDim || uint64(h.Dim)*uint64(h.Count) > maxElements {
		return nil, fmt.Errorf("%w: %d x %d", ErrTooLarge, h.Count, h.Dim)
	}

	dim, count := int(h.Dim), int(h.Count)
	data := make([]float32, 0, min(count*dim, initialElements))
	buf := make([]byte, 4*dim)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(tr, buf); err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, truncated(err))
		}
		for j := range dim {
			data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:])))
		}
	}

	want := crc.Sum32()
	var got uint32
	if err := binary.Read(tr, binary.LittleEndian, &got); err != nil {
		return nil, fmt.Errorf("read checksum: %w", truncated(err))
	}
	if got != want {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksumMismatch, got, want)
	}

	return &Flat{dim: dim, count: count, data: data, sealed: true}, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
