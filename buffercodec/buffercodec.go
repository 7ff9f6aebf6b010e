// Package buffercodec implements a typed reader/writer over a flat byte
// buffer partitioned into the five accumulator element vectors.
package buffercodec

import (
	"errors"
	"fmt"

	"github.com/powersoftau/ceremony/groupmath"
)

// ProvingSystem selects which vector-length formula and which elements are
// populated in the accumulator buffer.
type ProvingSystem uint8

const (
	Groth16 ProvingSystem = iota
	Marlin
)

func (p ProvingSystem) String() string {
	if p == Marlin {
		return "Marlin"
	}
	return "Groth16"
}

// ElementType names one of the five accumulator vectors.
type ElementType uint8

const (
	TauG1 ElementType = iota
	TauG2
	AlphaG1
	BetaG1
	BetaG2
)

func (e ElementType) String() string {
	switch e {
	case TauG1:
		return "tau_g1"
	case TauG2:
		return "tau_g2"
	case AlphaG1:
		return "alpha_g1"
	case BetaG1:
		return "beta_g1"
	case BetaG2:
		return "beta_g2"
	default:
		return "unknown"
	}
}

// Group reports whether elem lives in G1 or G2.
func (e ElementType) Group() Group {
	switch e {
	case TauG1, AlphaG1, BetaG1:
		return G1Group
	default:
		return G2Group
	}
}

type Group uint8

const (
	G1Group Group = iota
	G2Group
)

// AllElementTypes is the canonical vector order used for the on-disk byte
// layout: τG1 ‖ τG2 ‖ αG1 ‖ βG1 ‖ βG2.
var AllElementTypes = [5]ElementType{TauG1, TauG2, AlphaG1, BetaG1, BetaG2}

var (
	ErrFileSizeMismatch  = errors.New("buffercodec: file size mismatch")
	ErrIndexOutOfRange   = errors.New("buffercodec: element index out of range")
	ErrWrongGroup        = errors.New("buffercodec: element type belongs to the other group")
	ErrMarlinUnsupported = errors.New("buffercodec: element is not populated under Marlin")
)

// VectorLength returns the number of elements in the named vector for a
// ceremony parameterized by (power, provingSystem). N = 2^power.
//
// Groth16 lengths are fixed by spec: |τG1| = 2N-1, |τG2| = |αG1| = |βG1| =
// N, |βG2| = 1. Marlin's exact lengths are left to the implementer (spec
// only says "smaller lengths", with the sparse α-power pattern indexed at
// {3+3i, 3+3i+1, 3+3i+2} for i in [0, power)); this implementation fixes
// |τG1| = 2N, |τG2| = N, |αG1| = 3*power+3, and leaves βG1/βG2 unpopulated.
func VectorLength(power uint, ps ProvingSystem, elem ElementType) uint64 {
	n := uint64(1) << power
	switch ps {
	case Marlin:
		switch elem {
		case TauG1:
			return 2 * n
		case TauG2:
			return n
		case AlphaG1:
			return 3*uint64(power) + 3
		default:
			return 0
		}
	default: // Groth16
		switch elem {
		case TauG1:
			return 2*n - 1
		case TauG2, AlphaG1, BetaG1:
			return n
		case BetaG2:
			return 1
		}
	}
	return 0
}

// Params fully describes one chunk's worth of accumulator buffer layout.
type Params struct {
	Curve         groupmath.CurveKind
	Power         uint
	ChunkIndex    uint64
	ChunkSize     uint64
	ProvingSystem ProvingSystem
	Compressed    bool
}

// ChunkLength is the number of elements of elem covered by this chunk: the
// configured chunk_size, capped at the vector's total length minus the
// chunk's starting offset (chunks past the end of a vector are empty, which
// is how shorter vectors like βG2 participate only in chunk 0).
func ChunkLength(p Params, elem ElementType) uint64 {
	total := VectorLength(p.Power, p.ProvingSystem, elem)
	offset := p.ChunkIndex * p.ChunkSize
	if offset >= total {
		return 0
	}
	remaining := total - offset
	if remaining > p.ChunkSize {
		return p.ChunkSize
	}
	return remaining
}

type span struct {
	byteOffset int
	elemSize   int
	count      uint64
}

// Codec splits a flat buffer into the five typed sub-slices for one chunk.
type Codec struct {
	params Params
	curve  groupmath.Curve
	buf    []byte
	spans  map[ElementType]span
}

func elementSize(curve groupmath.Curve, group Group, compressed bool) int {
	if group == G1Group {
		return curve.G1Size(compressed)
	}
	return curve.G2Size(compressed)
}

// SizeOf returns the exact byte length a buffer must have to back p.
func SizeOf(curve groupmath.Curve, p Params) uint64 {
	var total uint64
	for _, elem := range AllElementTypes {
		n := ChunkLength(p, elem)
		total += n * uint64(elementSize(curve, elem.Group(), p.Compressed))
	}
	return total
}

// New builds a Codec over buf, which must be exactly SizeOf(curve, params)
// bytes long.
func New(curve groupmath.Curve, params Params, buf []byte) (*Codec, error) {
	want := SizeOf(curve, params)
	if uint64(len(buf)) != want {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrFileSizeMismatch, want, len(buf))
	}
	spans := make(map[ElementType]span, 5)
	offset := 0
	for _, elem := range AllElementTypes {
		n := ChunkLength(params, elem)
		sz := elementSize(curve, elem.Group(), params.Compressed)
		spans[elem] = span{byteOffset: offset, elemSize: sz, count: n}
		offset += int(n) * sz
	}
	return &Codec{params: params, curve: curve, buf: buf, spans: spans}, nil
}

func (c *Codec) Len(elem ElementType) uint64 { return c.spans[elem].count }

func (c *Codec) elementBytes(elem ElementType, i uint64) ([]byte, error) {
	sp := c.spans[elem]
	if i >= sp.count {
		return nil, fmt.Errorf("%w: %s[%d], len %d", ErrIndexOutOfRange, elem, i, sp.count)
	}
	start := sp.byteOffset + int(i)*sp.elemSize
	return c.buf[start : start+sp.elemSize], nil
}

// ReadG1 deserializes element i of a G1-valued vector (τG1, αG1, βG1).
func (c *Codec) ReadG1(elem ElementType, i uint64, check groupmath.CheckForCorrectness) (groupmath.G1, error) {
	if elem.Group() != G1Group {
		return groupmath.G1{}, ErrWrongGroup
	}
	b, err := c.elementBytes(elem, i)
	if err != nil {
		return groupmath.G1{}, err
	}
	return c.curve.G1Unmarshal(b, c.params.Compressed, check)
}

// ReadG2 deserializes element i of a G2-valued vector (τG2, βG2).
func (c *Codec) ReadG2(elem ElementType, i uint64, check groupmath.CheckForCorrectness) (groupmath.G2, error) {
	if elem.Group() != G2Group {
		return groupmath.G2{}, ErrWrongGroup
	}
	b, err := c.elementBytes(elem, i)
	if err != nil {
		return groupmath.G2{}, err
	}
	return c.curve.G2Unmarshal(b, c.params.Compressed, check)
}

// ReadBatchG1 reads [start, start+len(out)) of a G1 vector into out.
func (c *Codec) ReadBatchG1(elem ElementType, start uint64, out []groupmath.G1, check groupmath.CheckForCorrectness) error {
	for i := range out {
		p, err := c.ReadG1(elem, start+uint64(i), check)
		if err != nil {
			return err
		}
		out[i] = p
	}
	return nil
}

// ReadBatchG2 reads [start, start+len(out)) of a G2 vector into out.
func (c *Codec) ReadBatchG2(elem ElementType, start uint64, out []groupmath.G2, check groupmath.CheckForCorrectness) error {
	for i := range out {
		p, err := c.ReadG2(elem, start+uint64(i), check)
		if err != nil {
			return err
		}
		out[i] = p
	}
	return nil
}

// WriteG1 serializes p into element i of a G1-valued vector.
func (c *Codec) WriteG1(elem ElementType, i uint64, p groupmath.G1) error {
	if elem.Group() != G1Group {
		return ErrWrongGroup
	}
	b, err := c.elementBytes(elem, i)
	if err != nil {
		return err
	}
	copy(b, c.curve.G1Marshal(p, c.params.Compressed))
	return nil
}

// WriteG2 serializes p into element i of a G2-valued vector.
func (c *Codec) WriteG2(elem ElementType, i uint64, p groupmath.G2) error {
	if elem.Group() != G2Group {
		return ErrWrongGroup
	}
	b, err := c.elementBytes(elem, i)
	if err != nil {
		return err
	}
	copy(b, c.curve.G2Marshal(p, c.params.Compressed))
	return nil
}

// InitVector fills every slot of elem with the curve's generator in the
// appropriate group, used by AccumulatorEngine.Initialize.
func (c *Codec) InitVector(elem ElementType) error {
	n := c.spans[elem].count
	switch elem.Group() {
	case G1Group:
		g := c.curve.G1Generator()
		for i := uint64(0); i < n; i++ {
			if err := c.WriteG1(elem, i, g); err != nil {
				return err
			}
		}
	default:
		g := c.curve.G2Generator()
		for i := uint64(0); i < n; i++ {
			if err := c.WriteG2(elem, i, g); err != nil {
				return err
			}
		}
	}
	return nil
}
