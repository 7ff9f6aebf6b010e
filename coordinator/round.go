package coordinator

import (
	"errors"
	"time"

	"github.com/powersoftau/ceremony/accumulator"
	"github.com/powersoftau/ceremony/locator"
	"github.com/powersoftau/ceremony/roundstate"
	"github.com/powersoftau/ceremony/store"
)

// NextRound aggregates every chunk's final verified contribution into one
// parameter file and advances the live round to a fresh RoundState owned
// by contributors and verifiers, started at startedAt. Each chunk's
// contribution-0 file for the new height was already copied forward by
// VerifyContribution as soon as that chunk individually completed; this
// call only has to read this round's tail bytes for aggregation. It fails
// with ErrRoundNotComplete until every chunk has reached the configured
// contribution count.
func (c *Coordinator) NextRound(startedAt time.Time, contributors, verifiers []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.round.IsComplete() {
		return ErrRoundNotComplete
	}
	height := c.round.Height
	newHeight := height + 1
	numChunks := c.round.NumberOfChunks()

	chunkBufs := make([][]byte, numChunks)
	initialLocators := make([]string, numChunks)

	for i := 0; i < numChunks; i++ {
		chunkID := uint64(i)
		chunk, err := c.round.GetChunk(chunkID)
		if err != nil {
			return err
		}
		tail := chunk.Contributions[len(chunk.Contributions)-1]

		prevLoc := locator.ContributionFile(height, chunkID, tail.ID, true)
		rw, release, err := c.store.Reader(prevLoc, 0)
		if err != nil {
			return err
		}
		chunkBufs[i] = append([]byte(nil), rw.Bytes()...)
		release()

		initialLocators[i] = locator.RelPath(locator.ContributionFile(newHeight, chunkID, 0, true))
	}

	total := 0
	for _, b := range chunkBufs {
		total += len(b)
	}
	dst := make([]byte, total)
	if err := accumulator.Aggregate(chunkBufs, dst); err != nil {
		return err
	}
	if err := c.store.Insert(locator.RoundFile(height), dst); err != nil {
		return err
	}

	newRound := roundstate.New(newHeight, startedAt, contributors, verifiers,
		c.cfg.NumberOfChunks, c.cfg.ExpectedContributionsPerChunk, initialLocators)
	if err := c.saveRound(newRound); err != nil {
		return err
	}
	if err := c.store.SetCurrentRoundHeight(newHeight); err != nil {
		return err
	}
	c.round = newRound
	c.metrics.RoundsCompleted.Inc()
	c.metrics.CurrentRoundHeight.Set(int64(newHeight))
	return nil
}

// ResetRoundDirectory removes every artifact a round at height could have
// produced, for operator recovery from a wedged round (SPEC_FULL.md
// supplement #3). It is only permitted outside Config.Environment ==
// "production", per spec.md §6's "controls whether round_directory_reset
// is permitted." Missing locators are not an error: the point is to reach
// a clean slate regardless of how far the round got.
func (c *Coordinator) ResetRoundDirectory(height uint64) error {
	if !c.cfg.AllowsRoundDirectoryReset() {
		return ErrResetForbidden
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	remove := func(l locator.Locator) error {
		err := c.store.Remove(l)
		if err != nil && !errors.Is(err, store.ErrLocatorMissing) {
			return err
		}
		return nil
	}

	for chunkID := uint64(0); chunkID < c.cfg.NumberOfChunks; chunkID++ {
		for cid := uint64(0); cid <= c.cfg.ExpectedContributionsPerChunk+1; cid++ {
			if err := remove(locator.ContributionFile(height, chunkID, cid, true)); err != nil {
				return err
			}
			if err := remove(locator.ContributionFile(height, chunkID, cid, false)); err != nil {
				return err
			}
		}
	}
	if err := remove(locator.RoundFile(height)); err != nil {
		return err
	}
	return remove(locator.RoundState(height))
}
