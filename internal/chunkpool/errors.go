package chunkpool

import "fmt"

// PoolFullError is raised when a pool has exhausted every chunk id its
// IdSchema can represent.
type PoolFullError struct {
	MaxChunks uint32
}

func (e PoolFullError) Error() string {
	return fmt.Sprintf("chunkpool: pool full, all %d chunk ids consumed", e.MaxChunks)
}

// StaleEntryError is returned by Tenant.FreeID when the id does not belong
// to a chunk this pool manages, or points past the chunk's live range.
type StaleEntryError struct {
	ID uint32
}

func (e StaleEntryError) Error() string {
	return fmt.Sprintf("chunkpool: id %d does not resolve to a live slot", e.ID)
}
