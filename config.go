package ecsgrid

import "github.com/ecsgrid/ecsgrid/internal/chunkpool"

// Config holds process-wide configuration, mirroring the injectable-hook
// pattern the teacher repository uses for table.TableEvents: a host can
// observe chunk lifecycle without this package depending on a metrics or
// logging library.
var Config config = config{}

type config struct {
	chunkEvents ChunkEvents
}

// ChunkEvents lets a host observe allocator activity.
type ChunkEvents interface {
	// OnChunkAllocated fires whenever a tenant (root or state) grows a new
	// chunk, naming the owning composition's type-set key as a string and
	// the new chunk's pool-wide id.
	OnChunkAllocated(compositionKey string, chunkID uint32)
}

// SetChunkEvents configures the chunk lifecycle hook. Pass nil to disable.
func (c *config) SetChunkEvents(e ChunkEvents) {
	c.chunkEvents = e
}

// chunkEventsFor adapts the package-level hook to the chunkpool.ChunkEvents
// interface for one composition's pools.
type chunkEventsFor struct {
	compositionKey string
}

func (c chunkEventsFor) OnChunkAllocated(chunkID uint32) {
	if Config.chunkEvents != nil {
		Config.chunkEvents.OnChunkAllocated(c.compositionKey, chunkID)
	}
}

var _ chunkpool.ChunkEvents = chunkEventsFor{}
