package idschema

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		chunkBit uint32
		chunkID  uint32
		slot     uint32
	}{
		{"first chunk first slot", 14, 0, 0},
		{"first chunk last slot", 14, 0, 16383},
		{"second chunk", 14, 1, 0},
		{"narrow schema", 2, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.chunkBit)
			id := s.Pack(tt.chunkID, tt.slot)
			gotChunk, gotSlot := s.Unpack(id)
			if gotChunk != tt.chunkID || gotSlot != tt.slot {
				t.Errorf("round trip = (%d, %d), want (%d, %d)", gotChunk, gotSlot, tt.chunkID, tt.slot)
			}
		})
	}
}

func TestChunkCapacity(t *testing.T) {
	s := New(14)
	if got := s.ChunkCapacity(); got != 16384 {
		t.Errorf("ChunkCapacity() = %d, want 16384", got)
	}
}

func TestOverflowIntoNextChunk(t *testing.T) {
	s := New(14)
	// The 16385th id (index 16384, zero-based) should land in chunk 1,
	// slot 0 — spec.md's worked scenario for this exact schema.
	id := s.Pack(0, 16384)
	chunkID, slot := s.Unpack(id)
	if chunkID != 1 || slot != 0 {
		t.Errorf("overflow id unpacked to (chunk=%d, slot=%d), want (1, 0)", chunkID, slot)
	}
}

func TestNewPanicsOnInvalidChunkBit(t *testing.T) {
	tests := []uint32{0, MaxChunkBit + 1}
	for _, bit := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("New(%d) did not panic", bit)
				}
			}()
			New(bit)
		}()
	}
}

func TestMaxChunks(t *testing.T) {
	s := New(14)
	want := uint32(1) << (32 - 14)
	if got := s.MaxChunks(); got != want {
		t.Errorf("MaxChunks() = %d, want %d", got, want)
	}
}
