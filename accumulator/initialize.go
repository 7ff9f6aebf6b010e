package accumulator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/powersoftau/ceremony/buffercodec"
)

// Initialize populates every slot of out's five vectors with the curve's
// generator. The five vectors are independent and are filled concurrently,
// per spec §5 "element-level parallelism."
func (e *Engine) Initialize(ctx context.Context, out *buffercodec.Codec) error {
	g, _ := errgroup.WithContext(ctx)
	for _, elem := range buffercodec.AllElementTypes {
		elem := elem
		if out.Len(elem) == 0 {
			continue
		}
		g.Go(func() error {
			return out.InitVector(elem)
		})
	}
	return g.Wait()
}
