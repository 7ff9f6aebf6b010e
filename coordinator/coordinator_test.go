package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/powersoftau/ceremony/accumulator"
	"github.com/powersoftau/ceremony/auth"
	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/config"
	"github.com/powersoftau/ceremony/coordinator"
	"github.com/powersoftau/ceremony/groupmath"
	"github.com/powersoftau/ceremony/locator"
	"github.com/powersoftau/ceremony/roundstate"
	"github.com/powersoftau/ceremony/store"
)

func testBufferParams(cfg config.Config, chunkID uint64, compressed bool) buffercodec.Params {
	ap := cfg.AccumulatorParams(chunkID)
	return buffercodec.Params{
		Curve:         ap.Curve,
		Power:         ap.Power,
		ChunkIndex:    ap.ChunkIndex,
		ChunkSize:     ap.ChunkSize,
		ProvingSystem: ap.ProvingSystem,
		Compressed:    compressed,
	}
}

func smallConfig(t *testing.T, contributor, verifier string) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Power = 3
	cfg.BatchSize = 4
	cfg.ChunkSize = 8
	cfg.NumberOfChunks = 1
	cfg.ContributionMode = "Full"
	cfg.ExpectedContributionsPerChunk = 1
	cfg.Contributors = []string{contributor}
	cfg.Verifiers = []string{verifier}
	require.NoError(t, cfg.Validate())
	return cfg
}

// contributeClientSide reads a chunk's current input straight out of st
// (standing in for a participant's download step), derives a PublicKey
// bound to that input's digest, runs the Contribute primitive as the
// participant's own machine would, and returns the resulting buffer plus
// the PublicKey for upload.
func contributeClientSide(t *testing.T, cfg config.Config, st store.Store, round *roundstate.RoundState, chunkID uint64, priv accumulator.PrivateKey) ([]byte, accumulator.PublicKey, accumulator.Digest) {
	t.Helper()
	curveKind, err := cfg.CurveKind()
	require.NoError(t, err)
	curve, err := groupmath.For(curveKind)
	require.NoError(t, err)

	chunk, err := round.GetChunk(chunkID)
	require.NoError(t, err)
	tail := chunk.Contributions[len(chunk.Contributions)-1]

	inLoc := locator.ContributionFile(round.Height, chunkID, tail.ID, true)
	inRW, release, err := st.Reader(inLoc, 0)
	require.NoError(t, err)
	defer release()

	prevDigest := accumulator.ComputeDigest(inRW.Bytes())
	pub, err := accumulator.DerivePublicKey(curve, priv, prevDigest)
	require.NoError(t, err)

	bufParams := testBufferParams(cfg, chunkID, cfg.CompressedInputs)
	inCodec, err := buffercodec.New(curve, bufParams, inRW.Bytes())
	require.NoError(t, err)

	outBufParams := testBufferParams(cfg, chunkID, cfg.CompressedOutputs)
	outSize := buffercodec.SizeOf(curve, outBufParams)
	outBuf := make([]byte, outSize)
	outCodec, err := buffercodec.New(curve, outBufParams, outBuf)
	require.NoError(t, err)

	engine, err := accumulator.New(cfg.AccumulatorParams(chunkID))
	require.NoError(t, err)
	require.NoError(t, engine.Contribute(context.Background(), inCodec, outCodec, priv, groupmath.Full))
	return outBuf, pub, prevDigest
}

func verifyClientSide(t *testing.T, cfg config.Config, st store.Store, round *roundstate.RoundState, chunkID uint64, pub accumulator.PublicKey, prevDigest accumulator.Digest, uploadedBody []byte) {
	t.Helper()
	curveKind, err := cfg.CurveKind()
	require.NoError(t, err)
	curve, err := groupmath.For(curveKind)
	require.NoError(t, err)

	chunk, err := round.GetChunk(chunkID)
	require.NoError(t, err)
	tail := chunk.Contributions[len(chunk.Contributions)-1]

	inLoc := locator.ContributionFile(round.Height, chunkID, tail.ID-1, true)
	inRW, release, err := st.Reader(inLoc, 0)
	require.NoError(t, err)
	defer release()

	inBufParams := testBufferParams(cfg, chunkID, cfg.CompressedInputs)
	inCodec, err := buffercodec.New(curve, inBufParams, inRW.Bytes())
	require.NoError(t, err)

	outBufParams := testBufferParams(cfg, chunkID, cfg.CompressedOutputs)
	outCodec, err := buffercodec.New(curve, outBufParams, uploadedBody)
	require.NoError(t, err)

	engine, err := accumulator.New(cfg.AccumulatorParams(chunkID))
	require.NoError(t, err)

	var zeroAnchor groupmath.G2
	require.NoError(t, engine.Verify(context.Background(), inCodec, outCodec, pub, prevDigest, zeroAnchor, groupmath.Full, groupmath.Full))
}

func TestCoordinatorFullRoundLifecycle(t *testing.T) {
	contribID, err := auth.GenerateIdentity()
	require.NoError(t, err)
	verifierID, err := auth.GenerateIdentity()
	require.NoError(t, err)

	cfg := smallConfig(t, contribID.Address.Hex(), verifierID.Address.Hex())
	st := store.NewMemory()

	c, err := coordinator.New(cfg, st)
	require.NoError(t, err)

	contributor := roundstate.Participant{Kind: roundstate.ContributorKind, Address: contribID.Address.Hex()}
	chunkID, ok, err := c.JoinQueue(contributor)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, chunkID)

	loc, err := c.NextContributionLocator(chunkID)
	require.NoError(t, err)
	require.Contains(t, loc, "contribution_1")

	curveKind, err := cfg.CurveKind()
	require.NoError(t, err)
	curve, err := groupmath.For(curveKind)
	require.NoError(t, err)
	priv, err := accumulator.GeneratePrivateKey(curve)
	require.NoError(t, err)

	body, pub, prevDigest := contributeClientSide(t, cfg, st, c.CurrentRound(), chunkID, priv)
	pubBytes := accumulator.MarshalPublicKey(curve, pub)
	require.NoError(t, c.AddContribution(chunkID, contributor, body, pubBytes))

	verifier := roundstate.Participant{Kind: roundstate.VerifierKind, Address: verifierID.Address.Hex()}
	verifyChunkID, ok, err := c.JoinQueue(verifier)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, chunkID, verifyChunkID)

	verifyClientSide(t, cfg, st, c.CurrentRound(), chunkID, pub, prevDigest, body)
	require.NoError(t, c.VerifyContribution(chunkID, verifier, body))

	round := c.CurrentRound()
	require.True(t, round.IsComplete())

	require.NoError(t, c.NextRound(time.Now(), cfg.Contributors, cfg.Verifiers))
	require.Equal(t, uint64(2), c.CurrentRound().Height)
	require.True(t, st.Exists(locator.RoundFile(1)))
	require.True(t, st.Exists(locator.ContributionFile(2, 0, 0, true)))
}

func TestJoinQueueEnqueuesWhenEveryChunkBusy(t *testing.T) {
	contribID, err := auth.GenerateIdentity()
	require.NoError(t, err)
	otherContribID, err := auth.GenerateIdentity()
	require.NoError(t, err)
	verifierID, err := auth.GenerateIdentity()
	require.NoError(t, err)

	cfg := smallConfig(t, contribID.Address.Hex(), verifierID.Address.Hex())
	cfg.Contributors = append(cfg.Contributors, otherContribID.Address.Hex())
	st := store.NewMemory()

	c, err := coordinator.New(cfg, st)
	require.NoError(t, err)

	first := roundstate.Participant{Kind: roundstate.ContributorKind, Address: contribID.Address.Hex()}
	_, ok, err := c.JoinQueue(first)
	require.NoError(t, err)
	require.True(t, ok)

	second := roundstate.Participant{Kind: roundstate.ContributorKind, Address: otherContribID.Address.Hex()}
	_, ok, err = c.JoinQueue(second)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResetRoundDirectoryClearsArtifacts(t *testing.T) {
	contribID, err := auth.GenerateIdentity()
	require.NoError(t, err)
	verifierID, err := auth.GenerateIdentity()
	require.NoError(t, err)
	cfg := smallConfig(t, contribID.Address.Hex(), verifierID.Address.Hex())
	st := store.NewMemory()

	c, err := coordinator.New(cfg, st)
	require.NoError(t, err)
	require.True(t, st.Exists(locator.ContributionFile(1, 0, 0, true)))

	require.NoError(t, c.ResetRoundDirectory(1))
	require.False(t, st.Exists(locator.ContributionFile(1, 0, 0, true)))
	require.False(t, st.Exists(locator.RoundState(1)))
}

func TestResetRoundDirectoryForbiddenInProduction(t *testing.T) {
	contribID, err := auth.GenerateIdentity()
	require.NoError(t, err)
	verifierID, err := auth.GenerateIdentity()
	require.NoError(t, err)
	cfg := smallConfig(t, contribID.Address.Hex(), verifierID.Address.Hex())
	cfg.Environment = "production"
	st := store.NewMemory()

	c, err := coordinator.New(cfg, st)
	require.NoError(t, err)

	require.ErrorIs(t, c.ResetRoundDirectory(1), coordinator.ErrResetForbidden)
}
