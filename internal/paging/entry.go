// Package paging implements the page-table-backed virtual memory layer
// between the on-disk world file and the resident chunk store: a
// Morton-ordered page table tracking residency and dirtiness, a
// reference-counted segment cache standing in for the original's memory
// mapping, pluggable upload strategies, and the voxel compression codecs
// used to shrink pages on disk and in flight.
package paging

import "sync/atomic"

// Flags is a bitmask describing a page's current lifecycle state.
type Flags uint32

const (
	FlagEmpty      Flags = 0
	FlagResident   Flags = 1 << 0 // page is loaded in the resident set
	FlagDirty      Flags = 1 << 1 // page has been modified since last write-back
	FlagLocked     Flags = 1 << 2 // page cannot be evicted
	FlagCompressed Flags = 1 << 3 // page is compressed on disk
	FlagStreaming  Flags = 1 << 4 // page is currently being loaded
)

// InvalidOffset marks an entry with no resident physical location.
const InvalidOffset uint64 = ^uint64(0)

// Entry is one page table slot. flags and accessCount are accessed
// atomically so the predictive loader and the propagators can touch
// entries concurrently without a per-entry mutex; physicalOffset,
// diskOffset, compressionType, and compressedSize are plain fields that
// Entry itself does not synchronize.
type Entry struct {
	physicalOffset  uint64
	diskOffset      uint64
	compressionType CompressionType
	compressedSize  uint32

	flags       atomic.Uint32
	accessCount atomic.Uint32
}

// NewEmptyEntry returns an entry in the Empty state.
func NewEmptyEntry() *Entry {
	e := &Entry{physicalOffset: InvalidOffset}
	e.flags.Store(uint32(FlagEmpty))
	return e
}

func (e *Entry) has(flag Flags) bool {
	return Flags(e.flags.Load())&flag != 0
}

// IsResident reports whether the page is currently loaded.
func (e *Entry) IsResident() bool { return e.has(FlagResident) }

// IsDirty reports whether the page has unwritten modifications.
func (e *Entry) IsDirty() bool { return e.has(FlagDirty) }

// IsLocked reports whether the page is pinned against eviction.
func (e *Entry) IsLocked() bool { return e.has(FlagLocked) }

// IsStreaming reports whether a load is already in flight for this page.
func (e *Entry) IsStreaming() bool { return e.has(FlagStreaming) }

// IsCompressed reports whether the on-disk copy is compressed.
func (e *Entry) IsCompressed() bool { return e.has(FlagCompressed) }

func (e *Entry) setFlag(flag Flags) {
	for {
		old := e.flags.Load()
		if Flags(old)&flag != 0 {
			return
		}
		if e.flags.CompareAndSwap(old, old|uint32(flag)) {
			return
		}
	}
}

func (e *Entry) clearFlag(flag Flags) {
	for {
		old := e.flags.Load()
		if Flags(old)&flag == 0 {
			return
		}
		if e.flags.CompareAndSwap(old, old&^uint32(flag)) {
			return
		}
	}
}

// BeginStreaming marks the page as having a load in flight. Returns
// false if a load was already in progress, so callers never double-fault
// the same page.
func (e *Entry) BeginStreaming() bool {
	for {
		old := Flags(e.flags.Load())
		if old&FlagStreaming != 0 {
			return false
		}
		if e.flags.CompareAndSwap(uint32(old), uint32(old|FlagStreaming)) {
			return true
		}
	}
}

// MarkResident transitions a streamed-in page to Resident, recording its
// physical location and clearing the streaming bit.
func (e *Entry) MarkResident(physicalOffset uint64) {
	e.physicalOffset = physicalOffset
	e.clearFlag(FlagStreaming)
	e.setFlag(FlagResident)
}

// MarkDirty flags the page as modified since its last write-back.
func (e *Entry) MarkDirty() { e.setFlag(FlagDirty) }

// MarkClean clears the dirty flag after a successful write-back.
func (e *Entry) MarkClean() { e.clearFlag(FlagDirty) }

// Lock pins the page against eviction (used for pages under active
// physics/lighting work).
func (e *Entry) Lock() { e.setFlag(FlagLocked) }

// Unlock releases an eviction pin.
func (e *Entry) Unlock() { e.clearFlag(FlagLocked) }

// Evict returns the page to Empty, dropping its physical location. The
// caller is responsible for having written back a dirty page first.
func (e *Entry) Evict() {
	e.physicalOffset = InvalidOffset
	e.flags.Store(uint32(FlagEmpty))
}

// Touch records an access for LRU/eviction scoring.
func (e *Entry) Touch() { e.accessCount.Add(1) }

// AccessCount returns the number of Touch calls on this entry; Evict and
// MarkResident do not reset it.
func (e *Entry) AccessCount() uint32 { return e.accessCount.Load() }

// DiskOffset returns the page's byte offset in the world file.
func (e *Entry) DiskOffset() uint64 { return e.diskOffset }

// SetDiskOffset records where this page's data lives on disk.
func (e *Entry) SetDiskOffset(offset uint64) { e.diskOffset = offset }

// PhysicalOffset returns the resident offset, or InvalidOffset if the
// page is not currently loaded.
func (e *Entry) PhysicalOffset() uint64 { return e.physicalOffset }

// Compression returns the on-disk compression scheme and the stored
// payload size in bytes, as last recorded by SetCompression.
func (e *Entry) Compression() (CompressionType, uint32) {
	return e.compressionType, e.compressedSize
}

// SetCompression records the compression scheme used for the on-disk copy.
func (e *Entry) SetCompression(ctype CompressionType, compressedSize uint32) {
	e.compressionType = ctype
	e.compressedSize = compressedSize
	if ctype == CompressionNone {
		e.clearFlag(FlagCompressed)
	} else {
		e.setFlag(FlagCompressed)
	}
}
