// Package coordinator orchestrates one ceremony: the authoritative
// RoundState projection, the durable Store backing it, and the HTTP API
// contributors and verifiers drive through auth-signed requests.
//
// The coordinator itself never touches a participant's secret: Contribute
// and Verify are run by the participant's own client against files it
// downloads and uploads. The coordinator only runs the accumulator engine
// for the two operations that involve no secret -- seeding a fresh round's
// generator vector (Initialize) and concatenating a completed round's
// chunks into one parameter file (Aggregate).
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/powersoftau/ceremony/accumulator"
	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/config"
	"github.com/powersoftau/ceremony/groupmath"
	"github.com/powersoftau/ceremony/locator"
	"github.com/powersoftau/ceremony/log"
	"github.com/powersoftau/ceremony/roundstate"
	"github.com/powersoftau/ceremony/store"
)

var (
	ErrRoundNotComplete = errors.New("coordinator: round is not yet complete")
	ErrNoSuchChunk      = errors.New("coordinator: no such chunk")
	ErrResetForbidden   = errors.New("coordinator: round_directory_reset is forbidden in this environment")
)

// Coordinator holds one ceremony's live state. All state-mutating methods
// take the same RWMutex; only the round-advance path (NextRound) does any
// amount of work while holding the write lock, per spec.md §5.
type Coordinator struct {
	mu    sync.RWMutex
	cfg   config.Config
	store store.Store
	round *roundstate.RoundState
	queue []roundstate.Participant

	log     *log.Logger
	metrics *Metrics
}

// New loads or bootstraps ceremony state from st. If no round has ever
// been started (CurrentRoundHeight returns 0), a fresh round 1 is created
// with cfg's configured participant lists and a generator-filled
// contribution 0 for every chunk.
func New(cfg config.Config, st store.Store) (*Coordinator, error) {
	c := &Coordinator{
		cfg:     cfg,
		store:   st,
		log:     log.Default().Module("coordinator"),
		metrics: NewMetrics(),
	}

	height, err := st.CurrentRoundHeight()
	if err != nil {
		return nil, fmt.Errorf("coordinator: load round height: %w", err)
	}
	if height == 0 {
		if err := c.bootstrapFirstRound(); err != nil {
			return nil, err
		}
		return c, nil
	}

	round, err := c.loadRound(height)
	if err != nil {
		return nil, err
	}
	c.round = round
	return c, nil
}

func (c *Coordinator) loadRound(height uint64) (*roundstate.RoundState, error) {
	rw, release, err := c.store.Reader(locator.RoundState(height), 0)
	if err != nil {
		return nil, fmt.Errorf("coordinator: load round %d: %w", height, err)
	}
	defer release()
	var r roundstate.RoundState
	if err := json.Unmarshal(rw.Bytes(), &r); err != nil {
		return nil, fmt.Errorf("coordinator: decode round %d: %w", height, err)
	}
	return &r, nil
}

// bootstrapFirstRound implements spec.md's "Initialization (height 0 → 1)":
// for every chunk, AccumulatorEngine.Initialize seeds the generator vector
// at height 0, which is then copied forward as height 1's contribution 0
// -- owned by the well-known coordinator_contributor/coordinator_verifier
// participants rather than a real one, since no one has contributed yet.
func (c *Coordinator) bootstrapFirstRound() error {
	const height = 1
	r := roundstate.New(height, time.Now(), c.cfg.Contributors, c.cfg.Verifiers,
		c.cfg.NumberOfChunks, c.cfg.ExpectedContributionsPerChunk, nil)

	curveKind, err := c.cfg.CurveKind()
	if err != nil {
		return err
	}
	engineCurve, err := groupmath.For(curveKind)
	if err != nil {
		return err
	}

	owner := roundstate.Participant{Kind: roundstate.ContributorKind, Address: c.cfg.CoordinatorContributor}
	verifier := roundstate.Participant{Kind: roundstate.VerifierKind, Address: c.cfg.CoordinatorVerifier}

	for chunkID := uint64(0); chunkID < c.cfg.NumberOfChunks; chunkID++ {
		params := c.cfg.AccumulatorParams(chunkID)
		engine, err := accumulator.New(params)
		if err != nil {
			return err
		}
		bufParams := buffercodec.Params{
			Curve: params.Curve, Power: params.Power, ChunkIndex: chunkID,
			ChunkSize: params.ChunkSize, ProvingSystem: params.ProvingSystem,
			Compressed: c.cfg.CompressedInputs,
		}
		size := int64(buffercodec.SizeOf(engineCurve, bufParams))

		genesisLoc := locator.ContributionFile(0, chunkID, 0, true)
		if err := c.store.Initialize(genesisLoc, size); err != nil {
			return err
		}
		rw, release, err := c.store.Writer(genesisLoc, size)
		if err != nil {
			return err
		}
		codec, err := buffercodec.New(engineCurve, bufParams, rw.Bytes())
		if err != nil {
			release()
			return err
		}
		if err := engine.Initialize(context.Background(), codec); err != nil {
			release()
			return err
		}
		release()

		firstLoc := locator.ContributionFile(height, chunkID, 0, true)
		if err := c.store.Copy(genesisLoc, firstLoc); err != nil {
			return err
		}
		r.Chunks[chunkID].Contributions[0].ContributorLocator = locator.RelPath(firstLoc)
		r.Chunks[chunkID].Contributions[0].Contributor = &owner
		r.Chunks[chunkID].Contributions[0].Verifier = &verifier
	}

	if err := c.saveRound(r); err != nil {
		return err
	}
	if err := c.store.SetCurrentRoundHeight(height); err != nil {
		return err
	}
	c.round = r
	return nil
}

func (c *Coordinator) saveRound(r *roundstate.RoundState) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	loc := locator.RoundState(r.Height)
	if c.store.Exists(loc) {
		return c.store.Update(loc, data)
	}
	return c.store.Insert(loc, data)
}

// CurrentRound returns a snapshot of the live round state. Callers must not
// mutate the result.
func (c *Coordinator) CurrentRound() *roundstate.RoundState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.round
}

// ReadArtifact returns the full bytes stored at loc, for the download
// endpoints a participant's client uses to fetch a challenge or response
// file before running Contribute/Verify locally.
func (c *Coordinator) ReadArtifact(loc locator.Locator) ([]byte, error) {
	rw, release, err := c.store.Reader(loc, 0)
	if err != nil {
		return nil, err
	}
	defer release()
	return append([]byte(nil), rw.Bytes()...), nil
}
