package accumulator

import (
	"bytes"
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/groupmath"
)

// Verify checks that out was produced from in by someone who knows the
// secrets behind pub, per spec §4.C's two-phase procedure.
//
// Phase 1, the proof-of-knowledge check, only runs when e.params.Mode is
// Full or this is chunk 0 -- those are the only chunks whose elements sit
// at the global indices (0 and 1) where the per-element exponent in
// Contribute equals the raw secret rather than a higher power of it, so
// only there can pub be tied to the transformation with a single pairing
// equation. tauG2Anchor is the combined τ exponent's G2 representation
// (out's τG2[1] at global index 1); chunk 0 recomputes it locally and the
// parameter is ignored, other chunks require it supplied by the caller
// (the verifier client reads it off chunk 0's verified output).
//
// Phase 2, the ratio test, runs for every chunk: it confirms every pair of
// adjacent elements in a power-chain vector was scaled by the same τ,
// using tauG2Anchor as the fixed pairing partner.
func (e *Engine) Verify(ctx context.Context, in, out *buffercodec.Codec, pub PublicKey, prevDigest Digest, tauG2Anchor groupmath.G2, checkIn, checkOut groupmath.CheckForCorrectness) error {
	curve := e.curve
	chunkZero := e.params.Mode == Full || e.params.ChunkIndex == 0

	if chunkZero {
		g0, err := out.ReadG1(buffercodec.TauG1, 0, checkOut)
		if err != nil {
			return err
		}
		if !bytes.Equal(curve.G1Marshal(g0, false), curve.G1Marshal(curve.G1Generator(), false)) {
			return ErrInvalidGenerator
		}
		tauG2Zero, err := out.ReadG2(buffercodec.TauG2, 0, checkOut)
		if err != nil {
			return err
		}
		if !bytes.Equal(curve.G2Marshal(tauG2Zero, false), curve.G2Marshal(curve.G2Generator(), false)) {
			return ErrInvalidGenerator
		}

		if out.Len(buffercodec.TauG2) > 1 {
			tauG2Anchor, err = out.ReadG2(buffercodec.TauG2, 1, checkOut)
			if err != nil {
				return err
			}
		}

		if err := e.verifyProofOfKnowledge(in, out, pub, prevDigest, checkIn, checkOut); err != nil {
			return err
		}
	}

	return e.verifyRatios(ctx, out, tauG2Anchor, checkOut)
}

func pairEqual(curve groupmath.Curve, a1 groupmath.G1, b1 groupmath.G2, a2 groupmath.G1, b2 groupmath.G2) (bool, error) {
	left, err := curve.Pair(a1, b1)
	if err != nil {
		return false, err
	}
	right, err := curve.Pair(a2, b2)
	if err != nil {
		return false, err
	}
	return curve.GTEqual(left, right), nil
}

// verifyProofOfKnowledge ties pub to the in->out transition for τ, α, and
// β using the bilinearity identity
//
//	e(out[idx], H(prevDigest||tag)) == e(in[idx], pub.XG2)
//
// which holds because out[idx] = in[idx]^x and pub.XG2 =
// H(prevDigest||tag)^x for the same secret x (βG2 is tied in G2 instead,
// via e(pub.BetaG1[0], out.βG2) == e(pub.BetaG1[1], in.βG2)), and
// separately checks pub's own internal
// consistency (the G1 pair and the G2 challenge response were produced by
// the same secret) via
//
//	e(pub.XG1[1], H(prevDigest||tag)) == e(pub.XG1[0], pub.XG2).
func (e *Engine) verifyProofOfKnowledge(in, out *buffercodec.Codec, pub PublicKey, prevDigest Digest, checkIn, checkOut groupmath.CheckForCorrectness) error {
	curve := e.curve

	checkPOK := func(g1 [2]groupmath.G1, g2 groupmath.G2, tag string) error {
		ok, err := pairEqual(curve, g1[1], challengeG2(curve, prevDigest, tag), g1[0], g2)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProofOfKnowledgeFailed
		}
		return nil
	}
	if err := checkPOK(pub.TauG1, pub.TauG2, "tau"); err != nil {
		return err
	}
	if err := checkPOK(pub.AlphaG1, pub.AlphaG2, "alpha"); err != nil {
		return err
	}
	if err := checkPOK(pub.BetaG1, pub.BetaG2, "beta"); err != nil {
		return err
	}

	if in.Len(buffercodec.TauG1) > 1 {
		inTau1, err := in.ReadG1(buffercodec.TauG1, 1, checkIn)
		if err != nil {
			return err
		}
		outTau1, err := out.ReadG1(buffercodec.TauG1, 1, checkOut)
		if err != nil {
			return err
		}
		ok, err := pairEqual(curve, outTau1, challengeG2(curve, prevDigest, "tau"), inTau1, pub.TauG2)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVerificationFailed
		}
	}

	if in.Len(buffercodec.AlphaG1) > 0 {
		inAlpha0, err := in.ReadG1(buffercodec.AlphaG1, 0, checkIn)
		if err != nil {
			return err
		}
		outAlpha0, err := out.ReadG1(buffercodec.AlphaG1, 0, checkOut)
		if err != nil {
			return err
		}
		ok, err := pairEqual(curve, outAlpha0, challengeG2(curve, prevDigest, "alpha"), inAlpha0, pub.AlphaG2)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVerificationFailed
		}
	}

	if in.Len(buffercodec.BetaG2) > 0 {
		inBeta, err := in.ReadG2(buffercodec.BetaG2, 0, checkIn)
		if err != nil {
			return err
		}
		outBeta, err := out.ReadG2(buffercodec.BetaG2, 0, checkOut)
		if err != nil {
			return err
		}
		ok, err := pairEqual(curve, pub.BetaG1[0], outBeta, pub.BetaG1[1], inBeta)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVerificationFailed
		}
	}
	return nil
}

// verifyRatios confirms every power-chain vector in out (τG1, αG1, βG1) is
// a consistent geometric sequence in τ, by pairing adjacent elements
// against the generator and anchor:
//
//	e(v[i+1], g2) == e(v[i], anchor)
//
// run as one goroutine per vector (Contribute, by contrast, fans out one
// goroutine per batch of each vector).
// This check needs no Marlin-specific variant: Marlin's αG1 vector is laid
// out at contiguous global τ exponents (see contributionExponent), so
// consecutive buffer slots differ by exactly one power of τ there too, the
// same invariant this loop already checks for τG1 and βG1.
func (e *Engine) verifyRatios(ctx context.Context, out *buffercodec.Codec, anchor groupmath.G2, check groupmath.CheckForCorrectness) error {
	curve := e.curve
	g2Gen := curve.G2Generator()

	chainVectors := []buffercodec.ElementType{buffercodec.TauG1, buffercodec.AlphaG1, buffercodec.BetaG1}
	g, _ := errgroup.WithContext(ctx)
	for _, elem := range chainVectors {
		elem := elem
		n := out.Len(elem)
		if n < 2 {
			continue
		}
		g.Go(func() error {
			var prev groupmath.G1
			prev, err := out.ReadG1(elem, 0, check)
			if err != nil {
				return err
			}
			for i := uint64(1); i < n; i++ {
				cur, err := out.ReadG1(elem, i, check)
				if err != nil {
					return err
				}
				ok, err := pairEqual(curve, cur, g2Gen, prev, anchor)
				if err != nil {
					return err
				}
				if !ok {
					return ErrVerificationFailed
				}
				prev = cur
			}
			return nil
		})
	}
	return g.Wait()
}
