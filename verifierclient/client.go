package verifierclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/powersoftau/ceremony/accumulator"
	"github.com/powersoftau/ceremony/auth"
	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/config"
	"github.com/powersoftau/ceremony/groupmath"
	"github.com/powersoftau/ceremony/log"
	"github.com/powersoftau/ceremony/roundstate"
)

// Client is the long-running verifier daemon: it holds one participant's
// signing identity, polls the coordinator for work, and runs accumulator
// verification locally before reporting the result back.
type Client struct {
	identity auth.Identity
	baseURL  string
	http     *http.Client
	cfg      config.Config
	curve    groupmath.Curve
	log      *log.Logger
	backoff  *Backoff

	// pollInterval is how long Run sleeps between join_queue attempts
	// that found nothing to lock.
	pollInterval time.Duration
}

// NewClient builds a Client for identity against cfg.CoordinatorURL.
func NewClient(identity auth.Identity, cfg config.Config, logger *log.Logger) (*Client, error) {
	curveKind, err := cfg.CurveKind()
	if err != nil {
		return nil, err
	}
	curve, err := groupmath.For(curveKind)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		identity:     identity,
		baseURL:      cfg.CoordinatorURL,
		http:         &http.Client{Timeout: 60 * time.Second},
		cfg:          cfg,
		curve:        curve,
		log:          logger.Module("verifierclient"),
		backoff:      NewBackoff(time.Second, 30*time.Second),
		pollInterval: 5 * time.Second,
	}, nil
}

// Run loops indefinitely: join the verifier queue, and whenever a chunk is
// acquired, verify it end to end. It returns only when ctx is canceled, or
// a non-transient setup error occurs before the loop can start.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lr, err := c.joinQueue()
		if err != nil {
			c.log.Warn("join_queue failed", "error", err)
			if !sleep(ctx, c.backoff.Next()) {
				return ctx.Err()
			}
			continue
		}
		c.backoff.Reset()

		if !lr.Locked {
			if !sleep(ctx, c.pollInterval) {
				return ctx.Err()
			}
			continue
		}

		if err := c.verifyChunk(ctx, lr.ChunkID); err != nil {
			c.log.Error("chunk verification attempt failed", "chunk_id", lr.ChunkID, "error", err)
		}
	}
}

// verifyChunk carries one locked chunk through download, local
// verification, and upload, per spec §4.H's per-chunk verifier loop.
func (c *Client) verifyChunk(ctx context.Context, chunkID uint64) error {
	round, err := c.fetchRound()
	if err != nil {
		return err
	}
	chunk, err := round.GetChunk(chunkID)
	if err != nil {
		return err
	}
	if len(chunk.Contributions) < 2 {
		return fmt.Errorf("verifierclient: chunk %d has no pending contribution to verify", chunkID)
	}
	tail := chunk.Contributions[len(chunk.Contributions)-1]
	prev := chunk.Contributions[len(chunk.Contributions)-2]

	challengeLoc := prev.ContributorLocator
	if prev.VerifierLocator != "" {
		challengeLoc = prev.VerifierLocator
	}
	challengeBytes, err := c.downloadChallenge(challengeLoc)
	if err != nil {
		return err
	}
	responseBytes, err := c.downloadResponse(tail.ContributorLocator)
	if err != nil {
		return err
	}

	pub, err := accumulator.UnmarshalPublicKey(c.curve, tail.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedVerification, err)
	}
	prevDigest := accumulator.ComputeDigest(challengeBytes)

	anchor, err := c.resolveTauG2Anchor(round, chunkID)
	if err != nil {
		return err
	}

	inParams := c.bufferParams(chunkID, c.cfg.CompressedInputs)
	inCodec, err := buffercodec.New(c.curve, inParams, challengeBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	outParams := c.bufferParams(chunkID, c.cfg.CompressedOutputs)
	outCodec, err := buffercodec.New(c.curve, outParams, responseBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	engine, err := accumulator.New(c.cfg.AccumulatorParams(chunkID))
	if err != nil {
		return err
	}
	if err := engine.Verify(ctx, inCodec, outCodec, pub, prevDigest, anchor, groupmath.Full, groupmath.Full); err != nil {
		c.log.Error("local accumulator verification rejected contribution", "chunk_id", chunkID, "error", err)
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	return c.uploadVerified(chunkID, responseBytes)
}

// resolveTauG2Anchor returns the pairing anchor Verify needs for chunks
// other than 0 in Chunked mode: chunk 0's own verified output's τG2[1].
// Full mode and chunk 0 itself ignore the anchor they're passed and
// recompute it locally, so a zero value is returned without a network
// round trip.
func (c *Client) resolveTauG2Anchor(round *roundstate.RoundState, chunkID uint64) (groupmath.G2, error) {
	if c.cfg.ContributionMode != "Chunked" || chunkID == 0 {
		return groupmath.G2{}, nil
	}

	zeroChunk, err := round.GetChunk(0)
	if err != nil {
		return groupmath.G2{}, err
	}
	var zeroLoc string
	for i := len(zeroChunk.Contributions) - 1; i >= 0; i-- {
		if zeroChunk.Contributions[i].Verified {
			zeroLoc = zeroChunk.Contributions[i].VerifierLocator
			if zeroLoc == "" {
				zeroLoc = zeroChunk.Contributions[i].ContributorLocator
			}
			break
		}
	}
	if zeroLoc == "" {
		return groupmath.G2{}, fmt.Errorf("verifierclient: chunk 0 has no verified output to anchor against")
	}
	zeroBytes, err := c.downloadResponse(zeroLoc)
	if err != nil {
		return groupmath.G2{}, err
	}
	zeroParams := c.bufferParams(0, c.cfg.CompressedOutputs)
	zeroCodec, err := buffercodec.New(c.curve, zeroParams, zeroBytes)
	if err != nil {
		return groupmath.G2{}, err
	}
	return zeroCodec.ReadG2(buffercodec.TauG2, 1, groupmath.Full)
}

func (c *Client) bufferParams(chunkID uint64, compressed bool) buffercodec.Params {
	ap := c.cfg.AccumulatorParams(chunkID)
	return buffercodec.Params{
		Curve:         ap.Curve,
		Power:         ap.Power,
		ChunkIndex:    ap.ChunkIndex,
		ChunkSize:     ap.ChunkSize,
		ProvingSystem: ap.ProvingSystem,
		Compressed:    compressed,
	}
}

func (c *Client) fetchRound() (*roundstate.RoundState, error) {
	raw, err := c.currentRoundRaw()
	if err != nil {
		return nil, err
	}
	var round roundstate.RoundState
	if err := json.Unmarshal(raw, &round); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedRequest, err)
	}
	return &round, nil
}

// sleep waits for d or ctx cancellation, reporting whether it returned
// because d elapsed (true) rather than the context ending (false).
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
