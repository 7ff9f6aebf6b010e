package accumulator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/groupmath"
)

// Contribute applies priv's secrets to in, writing the transformed chunk to
// out. Element i of vector v at this chunk's offset is raised to the power
// of priv's secret scalar for v evaluated at the global index offset+i, per
// spec §4.C:
//
//	τG1[g]   = in.τG1[g]   ^ (τ^g)
//	τG2[g]   = in.τG2[g]   ^ (τ^g)
//	αG1[g]   = in.αG1[g]   ^ (α · τ^g)
//	βG1[g]   = in.βG1[g]   ^ (β · τ^g)
//	βG2[0]   = in.βG2[0]   ^ β
//
// where g = chunk_index*chunk_size + i. Every (vector, batch) pair is
// independent and is processed concurrently, per spec §5's element-level
// parallelism requirement; each batch computes its own starting power of τ
// rather than inheriting a running total from a prior batch, so batches
// never serialize on each other.
func (e *Engine) Contribute(ctx context.Context, in, out *buffercodec.Codec, priv PrivateKey, checkIn groupmath.CheckForCorrectness) error {
	offset := e.params.ChunkIndex * e.params.ChunkSize
	g, _ := errgroup.WithContext(ctx)
	for _, elem := range buffercodec.AllElementTypes {
		elem := elem
		n := in.Len(elem)
		if n == 0 {
			continue
		}
		for _, b := range batches(n, e.params.BatchSize) {
			b := b
			g.Go(func() error {
				return e.contributeBatch(in, out, elem, b[0], b[1], offset, priv, checkIn)
			})
		}
	}
	return g.Wait()
}

func (e *Engine) contributeBatch(in, out *buffercodec.Codec, elem buffercodec.ElementType, start, end, offset uint64, priv PrivateKey, checkIn groupmath.CheckForCorrectness) error {
	curve := e.curve
	tauPow := curve.ScalarPow(priv.Tau, offset+start)
	for i := start; i < end; i++ {
		exponent := contributionExponent(curve, elem, tauPow, priv)
		switch elem.Group() {
		case buffercodec.G1Group:
			p, err := in.ReadG1(elem, i, checkIn)
			if err != nil {
				return err
			}
			if err := out.WriteG1(elem, i, curve.G1ScalarMul(p, exponent)); err != nil {
				return err
			}
		default:
			p, err := in.ReadG2(elem, i, checkIn)
			if err != nil {
				return err
			}
			if err := out.WriteG2(elem, i, curve.G2ScalarMul(p, exponent)); err != nil {
				return err
			}
		}
		tauPow = curve.ScalarMul(tauPow, priv.Tau)
	}
	return nil
}

// contributionExponent picks the scalar that element i of vector elem is
// raised by, given tauPow = τ^(offset+i). This formula is shared by both
// proving systems, including Marlin's αG1: buffercodec.VectorLength lays
// out Marlin's αG1 vector as 3*power+3 consecutive slots, so buffer index i
// already equals the global τ exponent spec §4.C's sparse positions
// {3+3i, 3+3i+1, 3+3i+2} (i ∈ [0, power)) describe -- that set, union the
// three base slots 0-2, is exactly the contiguous range [0, 3*power+2].
// Indexing the buffer densely by global position therefore reproduces the
// sparse pattern exactly; there is no separate Marlin branch to write.
func contributionExponent(curve groupmath.Curve, elem buffercodec.ElementType, tauPow groupmath.Scalar, priv PrivateKey) groupmath.Scalar {
	switch elem {
	case buffercodec.TauG1, buffercodec.TauG2:
		return tauPow
	case buffercodec.AlphaG1:
		return curve.ScalarMul(priv.Alpha, tauPow)
	case buffercodec.BetaG1:
		return curve.ScalarMul(priv.Beta, tauPow)
	default: // BetaG2, global index is always 0
		return priv.Beta
	}
}
