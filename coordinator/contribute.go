package coordinator

import (
	"errors"

	"github.com/powersoftau/ceremony/locator"
	"github.com/powersoftau/ceremony/roundstate"
)

// ErrChunkLockedByOther is returned when the caller's own lock on chunkID
// could not be confirmed before an upload.
var ErrChunkLockedByOther = errors.New("coordinator: chunk is not locked by the calling participant")

// NextContributionLocator reports where the contributor holding chunkID's
// lock should upload its next contribution. It does not touch storage: the
// path is a pure function of the chunk's current contribution count.
func (c *Coordinator) NextContributionLocator(chunkID uint64) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chunk, err := c.round.GetChunk(chunkID)
	if err != nil {
		return "", err
	}
	nextID := uint64(len(chunk.Contributions))
	return locator.RelPath(locator.ContributionFile(c.round.Height, chunkID, nextID, false)), nil
}

// AddContribution stores body as chunkID's next contribution on behalf of
// contributor, who must currently hold the chunk's contributor lock, and
// advances the round state. publicKey is the contributor's serialized
// proof-of-knowledge key (accumulator.MarshalPublicKey), carried in round
// state so the verifier that later locks this chunk can read it back out
// via CurrentRound instead of it needing a place in the accumulator
// buffer's fixed layout. The accumulator transformation itself already
// happened on the contributor's own machine; the coordinator only
// persists the result and updates the bookkeeping.
func (c *Coordinator) AddContribution(chunkID uint64, contributor roundstate.Participant, body, publicKey []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	chunk, err := c.round.GetChunk(chunkID)
	if err != nil {
		return err
	}
	if chunk.Lock == nil || !chunk.Lock.Holder.Equal(contributor) {
		return ErrChunkLockedByOther
	}
	nextID := uint64(len(chunk.Contributions))
	loc := locator.ContributionFile(c.round.Height, chunkID, nextID, false)
	if err := c.store.Insert(loc, body); err != nil {
		return err
	}
	if err := c.round.AddContribution(chunkID, nextID, contributor, locator.RelPath(loc), publicKey, c.cfg.ExpectedContributionsPerChunk); err != nil {
		return err
	}
	if err := c.saveRound(c.round); err != nil {
		return err
	}
	c.metrics.ContributionsAdded.Inc()
	return nil
}
