package verifierclient

import (
	"context"
	"net/http/httptest"
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

func smallConfig(t *testing.T, contributor, verifier string) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Environment = "test"
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

// seedContribution plays the contributor side directly against the
// coordinator and its store, standing in for a contributor daemon this
// package doesn't implement, so the verifier client under test has a real
// pending contribution to lock and verify.
func seedContribution(t *testing.T, cfg config.Config, st store.Store, c *coordinator.Coordinator, chunkID uint64, contributor roundstate.Participant) {
	t.Helper()
	curve, err := groupmath.For(mustCurveKind(t, cfg))
	require.NoError(t, err)

	round := c.CurrentRound()
	chunk, err := round.GetChunk(chunkID)
	require.NoError(t, err)
	tail := chunk.Contributions[len(chunk.Contributions)-1]

	inLoc := locator.ContributionFile(round.Height, chunkID, tail.ID, true)
	inRW, release, err := st.Reader(inLoc, 0)
	require.NoError(t, err)
	defer release()

	priv, err := accumulator.GeneratePrivateKey(curve)
	require.NoError(t, err)
	prevDigest := accumulator.ComputeDigest(inRW.Bytes())
	pub, err := accumulator.DerivePublicKey(curve, priv, prevDigest)
	require.NoError(t, err)

	inParams := bufferParamsFor(cfg, chunkID, cfg.CompressedInputs)
	inCodec, err := buffercodec.New(curve, inParams, inRW.Bytes())
	require.NoError(t, err)

	outParams := bufferParamsFor(cfg, chunkID, cfg.CompressedOutputs)
	outBuf := make([]byte, buffercodec.SizeOf(curve, outParams))
	outCodec, err := buffercodec.New(curve, outParams, outBuf)
	require.NoError(t, err)

	engine, err := accumulator.New(cfg.AccumulatorParams(chunkID))
	require.NoError(t, err)
	require.NoError(t, engine.Contribute(context.Background(), inCodec, outCodec, priv, groupmath.Full))

	pubBytes := accumulator.MarshalPublicKey(curve, pub)
	require.NoError(t, c.AddContribution(chunkID, contributor, outBuf, pubBytes))
}

func bufferParamsFor(cfg config.Config, chunkID uint64, compressed bool) buffercodec.Params {
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

func mustCurveKind(t *testing.T, cfg config.Config) groupmath.CurveKind {
	t.Helper()
	k, err := cfg.CurveKind()
	require.NoError(t, err)
	return k
}

func TestClientVerifyChunkEndToEnd(t *testing.T) {
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

	seedContribution(t, cfg, st, c, chunkID, contributor)

	srv := coordinator.NewServer(c)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	cfg.CoordinatorURL = ts.URL

	client, err := NewClient(verifierID, cfg, nil)
	require.NoError(t, err)

	lr, err := client.joinQueue()
	require.NoError(t, err)
	require.True(t, lr.Locked)
	require.Equal(t, chunkID, lr.ChunkID)

	require.NoError(t, client.verifyChunk(context.Background(), lr.ChunkID))

	round := c.CurrentRound()
	require.True(t, round.IsComplete())
}

func TestClientVerifyChunkRejectsTamperedResponse(t *testing.T) {
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

	seedContribution(t, cfg, st, c, chunkID, contributor)

	// Corrupt the stored response so the local accumulator check fails
	// instead of the upload ever reaching the coordinator again.
	round := c.CurrentRound()
	chunk, err := round.GetChunk(chunkID)
	require.NoError(t, err)
	tail := chunk.Contributions[len(chunk.Contributions)-1]
	respLoc := locator.ContributionFile(round.Height, chunkID, tail.ID, false)
	rw, release, err := st.Writer(respLoc, 0)
	require.NoError(t, err)
	b := rw.Bytes()
	b[0] ^= 0xFF
	release()

	srv := coordinator.NewServer(c)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	cfg.CoordinatorURL = ts.URL

	client, err := NewClient(verifierID, cfg, nil)
	require.NoError(t, err)

	lr, err := client.joinQueue()
	require.NoError(t, err)
	require.True(t, lr.Locked)

	err = client.verifyChunk(context.Background(), lr.ChunkID)
	require.ErrorIs(t, err, ErrVerificationFailed)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 50*time.Millisecond)
	first := b.Next()
	require.GreaterOrEqual(t, first, 5*time.Millisecond)
	require.LessOrEqual(t, first, 15*time.Millisecond)

	for i := 0; i < 10; i++ {
		d := b.Next()
		require.LessOrEqual(t, d, 50*time.Millisecond)
	}

	b.Reset()
	reset := b.Next()
	require.LessOrEqual(t, reset, 15*time.Millisecond)
}
