package accumulator_test

import (
	"context"
	cryptorand "crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/powersoftau/ceremony/accumulator"
	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/groupmath"
)

func newEngine(t *testing.T, power uint, mode accumulator.Mode) *accumulator.Engine {
	t.Helper()
	e, err := accumulator.New(accumulator.Params{
		Curve:         groupmath.Bls12_377,
		Power:         power,
		BatchSize:     4,
		ChunkSize:     1 << power,
		ChunkIndex:    0,
		ProvingSystem: buffercodec.Groth16,
		Mode:          mode,
	})
	require.NoError(t, err)
	return e
}

func codecFor(t *testing.T, curve groupmath.Curve, power uint, mode accumulator.Mode) *buffercodec.Codec {
	t.Helper()
	params := buffercodec.Params{
		Curve:         groupmath.Bls12_377,
		Power:         power,
		ChunkIndex:    0,
		ChunkSize:     1 << power,
		ProvingSystem: buffercodec.Groth16,
		Compressed:    false,
	}
	buf := make([]byte, buffercodec.SizeOf(curve, params))
	c, err := buffercodec.New(curve, params, buf)
	require.NoError(t, err)
	return c
}

func TestFullContributionVerifies(t *testing.T) {
	curve, err := groupmath.For(groupmath.Bls12_377)
	require.NoError(t, err)

	const power = uint(3)
	e := newEngine(t, power, accumulator.Full)

	base := codecFor(t, curve, power, accumulator.Full)
	require.NoError(t, e.Initialize(context.Background(), base))

	priv, err := accumulator.GeneratePrivateKey(curve)
	require.NoError(t, err)
	var prevDigest accumulator.Digest
	pub, err := accumulator.DerivePublicKey(curve, priv, prevDigest)
	require.NoError(t, err)

	out := codecFor(t, curve, power, accumulator.Full)
	require.NoError(t, e.Contribute(context.Background(), base, out, priv, groupmath.Full))

	var anchor groupmath.G2
	require.NoError(t, e.Verify(context.Background(), base, out, pub, prevDigest, anchor, groupmath.Full, groupmath.Full))
}

func TestContributionDetectsMutation(t *testing.T) {
	curve, err := groupmath.For(groupmath.Bls12_377)
	require.NoError(t, err)

	const power = uint(3)
	e := newEngine(t, power, accumulator.Full)

	base := codecFor(t, curve, power, accumulator.Full)
	require.NoError(t, e.Initialize(context.Background(), base))

	priv, err := accumulator.GeneratePrivateKey(curve)
	require.NoError(t, err)
	var prevDigest accumulator.Digest
	pub, err := accumulator.DerivePublicKey(curve, priv, prevDigest)
	require.NoError(t, err)

	out := codecFor(t, curve, power, accumulator.Full)
	require.NoError(t, e.Contribute(context.Background(), base, out, priv, groupmath.Full))

	// Replace one element deep in the τG1 vector with an unrelated point;
	// the ratio test must catch the resulting broken geometric sequence.
	corrupt(t, out)

	var anchor groupmath.G2
	err = e.Verify(context.Background(), base, out, pub, prevDigest, anchor, groupmath.Full, groupmath.Full)
	require.Error(t, err)
}

func TestVerifyRejectsStaleDigest(t *testing.T) {
	curve, err := groupmath.For(groupmath.Bls12_377)
	require.NoError(t, err)

	const power = uint(3)
	e := newEngine(t, power, accumulator.Full)

	base := codecFor(t, curve, power, accumulator.Full)
	require.NoError(t, e.Initialize(context.Background(), base))

	priv, err := accumulator.GeneratePrivateKey(curve)
	require.NoError(t, err)
	var prevDigest accumulator.Digest
	pub, err := accumulator.DerivePublicKey(curve, priv, prevDigest)
	require.NoError(t, err)

	out := codecFor(t, curve, power, accumulator.Full)
	require.NoError(t, e.Contribute(context.Background(), base, out, priv, groupmath.Full))

	staleDigest := accumulator.Digest{0xFF}
	var anchor groupmath.G2
	err = e.Verify(context.Background(), base, out, pub, staleDigest, anchor, groupmath.Full, groupmath.Full)
	require.ErrorIs(t, err, accumulator.ErrProofOfKnowledgeFailed)
}

func newMarlinEngine(t *testing.T, power uint) *accumulator.Engine {
	t.Helper()
	e, err := accumulator.New(accumulator.Params{
		Curve:         groupmath.Bls12_377,
		Power:         power,
		BatchSize:     4,
		ChunkSize:     1 << (power + 1),
		ChunkIndex:    0,
		ProvingSystem: buffercodec.Marlin,
		Mode:          accumulator.Full,
	})
	require.NoError(t, err)
	return e
}

func marlinCodecFor(t *testing.T, curve groupmath.Curve, power uint) *buffercodec.Codec {
	t.Helper()
	params := buffercodec.Params{
		Curve:         groupmath.Bls12_377,
		Power:         power,
		ChunkIndex:    0,
		ChunkSize:     1 << (power + 1),
		ProvingSystem: buffercodec.Marlin,
		Compressed:    false,
	}
	buf := make([]byte, buffercodec.SizeOf(curve, params))
	c, err := buffercodec.New(curve, params, buf)
	require.NoError(t, err)
	return c
}

// TestMarlinContributionVerifies exercises the proving system whose αG1
// vector is laid out at contiguous global τ exponents (3*power+3 slots)
// rather than Groth16's one-exponent-per-element-of-N scheme, and confirms
// contributionExponent's shared dense formula reproduces spec §4.C's
// sparse αG1 pattern without a separate code path.
func TestMarlinContributionVerifies(t *testing.T) {
	curve, err := groupmath.For(groupmath.Bls12_377)
	require.NoError(t, err)

	const power = uint(3)
	e := newMarlinEngine(t, power)

	base := marlinCodecFor(t, curve, power)
	require.NoError(t, e.Initialize(context.Background(), base))

	require.Equal(t, uint64(3*power+3), base.Len(buffercodec.AlphaG1))
	require.Equal(t, uint64(0), base.Len(buffercodec.BetaG1))
	require.Equal(t, uint64(0), base.Len(buffercodec.BetaG2))

	priv, err := accumulator.GeneratePrivateKey(curve)
	require.NoError(t, err)
	var prevDigest accumulator.Digest
	pub, err := accumulator.DerivePublicKey(curve, priv, prevDigest)
	require.NoError(t, err)

	out := marlinCodecFor(t, curve, power)
	require.NoError(t, e.Contribute(context.Background(), base, out, priv, groupmath.Full))

	var anchor groupmath.G2
	require.NoError(t, e.Verify(context.Background(), base, out, pub, prevDigest, anchor, groupmath.Full, groupmath.Full))
}

// corrupt replaces element 2 of the τG1 vector with a scalar multiple of
// itself by an unrelated random scalar, breaking the single-τ geometric
// sequence the ratio test checks for.
func corrupt(t *testing.T, c *buffercodec.Codec) {
	t.Helper()
	curve, err := groupmath.For(groupmath.Bls12_377)
	require.NoError(t, err)
	p, err := c.ReadG1(buffercodec.TauG1, 2, groupmath.Full)
	require.NoError(t, err)
	scalar, err := curve.RandomScalar(cryptorand.Reader)
	require.NoError(t, err)
	require.NoError(t, c.WriteG1(buffercodec.TauG1, 2, curve.G1ScalarMul(p, scalar)))
}
