package coordinator

import (
	"github.com/powersoftau/ceremony/locator"
	"github.com/powersoftau/ceremony/roundstate"
)

// VerifyContribution records that verifier, holding chunkID's verifier
// lock, has confirmed the chunk's latest contribution is correct (the
// verification itself ran on the verifier's own machine, against the file
// at NextContributionLocator's previous response). verifiedBody is the
// file the verifier re-uploads -- identical bytes to the contributor's
// upload in this repo's design, but re-uploaded under the ".verified"
// locator so the unverified copy can be dropped.
func (c *Coordinator) VerifyContribution(chunkID uint64, verifier roundstate.Participant, verifiedBody []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	chunk, err := c.round.GetChunk(chunkID)
	if err != nil {
		return err
	}
	if chunk.Lock == nil || !chunk.Lock.Holder.Equal(verifier) {
		return ErrChunkLockedByOther
	}
	tailID := uint64(len(chunk.Contributions) - 1)

	unverifiedLoc := locator.ContributionFile(c.round.Height, chunkID, tailID, false)
	verifiedLoc := locator.ContributionFile(c.round.Height, chunkID, tailID, true)

	if err := c.store.Insert(verifiedLoc, verifiedBody); err != nil {
		return err
	}
	if err := c.store.Remove(unverifiedLoc); err != nil {
		return err
	}
	if err := c.round.VerifyContribution(chunkID, tailID, verifier, locator.RelPath(verifiedLoc)); err != nil {
		return err
	}

	// A chunk that has just reached its expected contribution count
	// promotes its final contribution as the next height's contribution
	// 0, independently of any other chunk's progress (chunks advance with
	// no ordering imposed across them).
	if tailID == c.cfg.ExpectedContributionsPerChunk {
		nextLoc := locator.ContributionFile(c.round.Height+1, chunkID, 0, true)
		if err := c.store.Copy(verifiedLoc, nextLoc); err != nil {
			return err
		}
	}

	if err := c.saveRound(c.round); err != nil {
		return err
	}
	c.metrics.Verifications.Inc()
	return nil
}
