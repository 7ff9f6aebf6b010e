// Package accumulator implements the cryptographic accumulator pipeline:
// initialize, contribute, verify, and aggregate, operating on one chunk of
// a ceremony's parameter set at a time.
package accumulator

import (
	"errors"

	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/groupmath"
)

// Mode picks between per-chunk and whole-vector contribution, named
// ContributionMode in spec §6.
type Mode uint8

const (
	Chunked Mode = iota
	Full
)

var (
	ErrVerificationFailed     = errors.New("accumulator: verification failed")
	ErrInvalidGenerator       = errors.New("accumulator: first element of output vector is not the generator")
	ErrProofOfKnowledgeFailed = errors.New("accumulator: proof of knowledge check failed")
	ErrMarlinRequiresFullMode = errors.New("accumulator: marlin proving system requires Full contribution mode")
	ErrBatchSizeZero          = errors.New("accumulator: batch_size must be positive")
)

// Params parameterizes all four primitives identically, per spec §4.C.
type Params struct {
	Curve         groupmath.CurveKind
	Power         uint
	BatchSize     uint64
	ChunkSize     uint64
	ChunkIndex    uint64
	ProvingSystem buffercodec.ProvingSystem
	Mode          Mode
}

func (p Params) bufferParams(compressed bool) buffercodec.Params {
	return buffercodec.Params{
		Curve:         p.Curve,
		Power:         p.Power,
		ChunkIndex:    p.ChunkIndex,
		ChunkSize:     p.ChunkSize,
		ProvingSystem: p.ProvingSystem,
		Compressed:    compressed,
	}
}

// Engine is the AccumulatorEngine: the four primitives bound to one curve
// and one set of ceremony parameters.
type Engine struct {
	curve  groupmath.Curve
	params Params
}

// New resolves params.Curve to a groupmath.Curve implementation and
// rejects the one combination the Design Notes flag as unsupported:
// Marlin in Chunked mode (spec §9's own recommendation).
func New(params Params) (*Engine, error) {
	if params.BatchSize == 0 {
		return nil, ErrBatchSizeZero
	}
	if params.ProvingSystem == buffercodec.Marlin && params.Mode == Chunked {
		return nil, ErrMarlinRequiresFullMode
	}
	curve, err := groupmath.For(params.Curve)
	if err != nil {
		return nil, err
	}
	return &Engine{curve: curve, params: params}, nil
}

// batches splits [0, n) into contiguous ranges of at most batchSize.
func batches(n, batchSize uint64) [][2]uint64 {
	if n == 0 {
		return nil
	}
	var out [][2]uint64
	for start := uint64(0); start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		out = append(out, [2]uint64{start, end})
	}
	return out
}
