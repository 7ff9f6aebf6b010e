package coordinator

import "github.com/powersoftau/ceremony/roundstate"

// JoinQueue registers p as available and tries to hand it the first chunk
// it can legally lock right now. It returns the chunk id it acquired, or
// ok=false if every chunk is currently busy or already at the stage p's
// role doesn't serve -- in that case p stays in the waiting queue and the
// sweeper's next pass (or another participant's lock release) may free a
// chunk for it.
func (c *Coordinator) JoinQueue(p roundstate.Participant) (chunkID uint64, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < c.round.NumberOfChunks(); i++ {
		id := uint64(i)
		if err := c.round.TryLockChunk(id, p); err == nil {
			if err := c.saveRound(c.round); err != nil {
				return 0, false, err
			}
			c.metrics.LocksAcquired.Inc()
			return id, true, nil
		}
	}
	c.enqueue(p)
	return 0, false, nil
}

func (c *Coordinator) enqueue(p roundstate.Participant) {
	for _, q := range c.queue {
		if q.Equal(p) {
			return
		}
	}
	c.queue = append(c.queue, p)
}

func (c *Coordinator) dequeue(p roundstate.Participant) {
	out := c.queue[:0]
	for _, q := range c.queue {
		if !q.Equal(p) {
			out = append(out, q)
		}
	}
	c.queue = out
}

// TryLockChunk is the explicit counterpart to JoinQueue's auto-assignment,
// used when a participant already knows which chunk it wants.
func (c *Coordinator) TryLockChunk(chunkID uint64, p roundstate.Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.round.TryLockChunk(chunkID, p); err != nil {
		return err
	}
	c.dequeue(p)
	c.metrics.LocksAcquired.Inc()
	return c.saveRound(c.round)
}

// TryLockVerify is TryLockChunk called by a verifier; roundstate's
// authorization policy already distinguishes the two roles by
// Participant.Kind, so this is a thin, differently-named alias the HTTP
// layer exposes as its own endpoint per spec.md §6.
func (c *Coordinator) TryLockVerify(chunkID uint64, v roundstate.Participant) error {
	return c.TryLockChunk(chunkID, v)
}
