package paging

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/dgraph-io/ristretto"

	"github.com/noahsabaj/voxelcore/internal/storage"
	pkgerrors "github.com/noahsabaj/voxelcore/pkg/errors"
)

// physicalAllocator hands out fixed-size device buffer slots up to a
// resident-page budget, recycling freed slots with a free list rather
// than ever growing the backing allocation.
type physicalAllocator struct {
	mu        sync.Mutex
	slotBytes uint64
	free      []uint64 // offsets available for reuse
	next      uint64    // next never-used offset
	maxSlots  uint64
}

func newPhysicalAllocator(slotBytes uint64, maxSlots uint64) *physicalAllocator {
	return &physicalAllocator{slotBytes: slotBytes, maxSlots: maxSlots}
}

func (a *physicalAllocator) allocate() (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		offset := a.free[n-1]
		a.free = a.free[:n-1]
		return offset, true
	}
	if a.next/a.slotBytes >= a.maxSlots {
		return 0, false
	}
	offset := a.next
	a.next += a.slotBytes
	return offset, true
}

func (a *physicalAllocator) release(offset uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, offset)
}

// Store ties the page table, segment cache, compression codecs, and
// upload strategy into the paged virtual memory layer sitting between
// disk and the resident chunk store (C3+C4 together, since in practice
// every table operation immediately implies a segment-cache and
// upload-strategy operation).
type Store struct {
	table    *Table
	segments *SegmentCache
	alloc    *physicalAllocator
	hot      *ristretto.Cache
	strategy UploadStrategy
	device   DeviceUploader
	faults   *FaultRing

	pageVoxelCount int
	pageByteSize   uint64
}

// StoreConfig bundles the knobs Store needs beyond the page table's own
// geometry.
type StoreConfig struct {
	Backend          storage.Backend
	PagesPerSegment  uint32
	MaxSegments      int
	MaxResidentPages uint32
	Strategy         UploadStrategy
	Device           DeviceUploader
	FaultRingSize    int
}

// NewStore builds a paged store over table using cfg's backend, segment
// budget, and upload path.
func NewStore(table *Table, cfg StoreConfig) (*Store, error) {
	pageVoxelCount := int(table.PageSizeVoxels()) * int(table.PageSizeVoxels()) * int(table.PageSizeVoxels())
	pageByteSize := uint64(pageVoxelCount) * 4

	hot, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.MaxResidentPages) * 10,
		MaxCost:     int64(cfg.MaxResidentPages) * int64(pageByteSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.KindFatal, "failed to construct decompressed page cache", err)
	}

	strategy := cfg.Strategy
	if strategy == nil {
		strategy = DirectStrategy{}
	}

	return &Store{
		table:          table,
		segments:       NewSegmentCache(cfg.Backend, cfg.PagesPerSegment, cfg.MaxSegments),
		alloc:          newPhysicalAllocator(pageByteSize, uint64(cfg.MaxResidentPages)),
		hot:            hot,
		strategy:       strategy,
		device:         cfg.Device,
		faults:         NewFaultRing(cfg.FaultRingSize),
		pageVoxelCount: pageVoxelCount,
		pageByteSize:   pageByteSize,
	}, nil
}

// Faults exposes the fault ring so the stream pipeline can drain it.
func (s *Store) Faults() *FaultRing { return s.faults }

// Table exposes the store's underlying page table, for callers (the
// chunk manager, tests) that need to query residency directly rather
// than through a request/fulfill round trip.
func (s *Store) Table() *Table { return s.table }

// PageSizeVoxels exposes the table's page edge length, in voxels, so
// callers outside this package (the predictive loader) can convert
// between world-space distances and page-space radii without reaching
// into the table directly.
func (s *Store) PageSizeVoxels() uint32 { return s.table.PageSizeVoxels() }

// beginStreaming looks up a page's entry and, if it isn't already
// resident or streaming, reserves its Streaming bit. The returned bool
// is true only when this call is the one that won the reservation.
func (s *Store) beginStreaming(px, py, pz uint32) (*Entry, bool, error) {
	entry, err := s.table.Entry(px, py, pz)
	if err != nil {
		return nil, false, err
	}
	if entry.IsResident() {
		entry.Touch()
		return entry, false, nil
	}
	return entry, entry.BeginStreaming(), nil
}

// RequestPage records intent to access a page. If the page is already
// resident this just bumps its access counter. If it is already
// streaming, the request is a no-op (the in-flight load will satisfy
// it). Otherwise it reserves the page's Streaming bit and enqueues a
// fault for the stream pipeline to drain and fulfill asynchronously.
func (s *Store) RequestPage(px, py, pz uint32, access AccessType, priority uint32) error {
	_, won, err := s.beginStreaming(px, py, pz)
	if err != nil || !won {
		return err
	}
	s.faults.Push(Fault{PageX: px, PageY: py, PageZ: pz, Access: access, Priority: priority})
	return nil
}

// EnsureResident guarantees a page is resident, performing the disk
// read, decompression, and upload inline when necessary. Unlike
// RequestPage, which only reserves the page and defers the actual load
// to whoever drains the fault ring, this fulfills the page itself — the
// path the stream pipeline uses for requests it owns end to end (direct
// submissions and predictive prefetch), as opposed to fault-ring entries
// some other subsystem queued and left for the pipeline to pick up.
func (s *Store) EnsureResident(ctx context.Context, px, py, pz uint32, access AccessType, priority uint32) error {
	_, won, err := s.beginStreaming(px, py, pz)
	if err != nil || !won {
		return err
	}
	return s.FulfillFault(ctx, Fault{PageX: px, PageY: py, PageZ: pz, Access: access, Priority: priority})
}

// ReadResidentPage returns the decoded voxel buffer for a page that is
// already resident in the hot cache, without touching disk. Callers
// that want a page brought in first should use RequestPage or
// EnsureResident; this is the cheap residency-only read path the chunk
// manager uses to hydrate a chunk from an already-streamed page.
func (s *Store) ReadResidentPage(px, py, pz uint32) ([]uint32, bool) {
	cached, ok := s.hot.Get(pageCacheKey(px, py, pz))
	if !ok {
		return nil, false
	}
	return cached.([]uint32), true
}

// FulfillFault performs the actual disk read, decompression, physical
// slot allocation, and device upload for a page the pipeline popped off
// the fault ring. It is the only place a page transitions into Resident.
func (s *Store) FulfillFault(ctx context.Context, f Fault) error {
	entry, err := s.table.Entry(f.PageX, f.PageY, f.PageZ)
	if err != nil {
		return err
	}

	voxels, err := s.readPage(ctx, f.PageX, f.PageY, f.PageZ, entry)
	if err != nil {
		return err
	}

	offset, ok := s.alloc.allocate()
	if !ok {
		return pkgerrors.New(pkgerrors.KindResourceExhausted, "no free physical page slots", nil)
	}

	data := encodeRaw(voxels)
	if err := s.strategy.Upload(ctx, offset, data, s.device); err != nil {
		s.alloc.release(offset)
		return err
	}

	s.hot.SetWithTTL(pageCacheKey(f.PageX, f.PageY, f.PageZ), voxels, int64(s.pageByteSize), 0)
	s.hot.Wait()
	return s.table.TransitionResident(f.PageX, f.PageY, f.PageZ, offset)
}

// readPage fetches and decompresses a page's voxels from the segment
// cache, or returns an all-air page if nothing has ever been written
// for it (a fresh region of the world).
func (s *Store) readPage(ctx context.Context, px, py, pz uint32, entry *Entry) ([]uint32, error) {
	if cached, ok := s.hot.Get(pageCacheKey(px, py, pz)); ok {
		return cached.([]uint32), nil
	}

	index, err := s.table.PageIndex(px, py, pz)
	if err != nil {
		return nil, err
	}

	seg, err := s.segments.Acquire(ctx, index)
	if err != nil {
		return nil, err
	}
	defer s.segments.Release(seg)

	pageData := pageSlice(seg.data, index, s.segments.PagesPerSegment(), s.pageByteSize)
	if pageData == nil {
		return make([]uint32, s.pageVoxelCount), nil
	}

	ctype, _ := entry.Compression()
	return Decode(ctype, pageData, s.pageVoxelCount), nil
}

// WriteBack compresses voxels with the smallest-fitting codec and
// writes the result into the page's segment, marking the segment dirty
// so it gets flushed to the storage backend on eviction.
func (s *Store) WriteBack(ctx context.Context, px, py, pz uint32, voxels []uint32) error {
	entry, err := s.table.Entry(px, py, pz)
	if err != nil {
		return err
	}
	index, err := s.table.PageIndex(px, py, pz)
	if err != nil {
		return err
	}

	ctype, encoded := ChooseSmallest(voxels)
	entry.SetCompression(ctype, uint32(len(encoded)))

	seg, err := s.segments.Acquire(ctx, index)
	if err != nil {
		return err
	}
	defer s.segments.Release(seg)

	writePageSlice(seg, index, s.segments.PagesPerSegment(), s.pageByteSize, encoded)
	s.segments.MarkDirty(seg)
	s.hot.SetWithTTL(pageCacheKey(px, py, pz), voxels, int64(s.pageByteSize), 0)
	s.hot.Wait()
	entry.MarkDirty()
	return nil
}

// Evict evicts up to count resident, unlocked pages farthest from
// observerPos per Table.EvictionCandidates. Any page-level modification
// has already been pushed into its segment by WriteBack; eviction here
// only needs to free the device slot and drop the hot-cache entry. The
// segment itself carries its own dirty flag and is flushed to the
// storage backend independently, on its own LRU eviction from
// SegmentCache.
func (s *Store) Evict(ctx context.Context, observerPos [3]float64, count int) (int, error) {
	candidates := s.table.EvictionCandidates(observerPos, count)
	evicted := 0
	for _, c := range candidates {
		entry, err := s.table.Entry(c.PageX, c.PageY, c.PageZ)
		if err != nil {
			continue
		}
		s.alloc.release(entry.PhysicalOffset())
		s.hot.Del(pageCacheKey(c.PageX, c.PageY, c.PageZ))
		entry.MarkClean()
		if err := s.table.Evict(c.PageX, c.PageY, c.PageZ); err != nil {
			continue
		}
		evicted++
	}
	return evicted, nil
}

func pageCacheKey(px, py, pz uint32) uint64 {
	return uint64(px)<<42 | uint64(py)<<21 | uint64(pz)
}

// Each page's slot within a segment reserves pageByteSize+4 bytes: a
// 4-byte little-endian length prefix (the compressed payload is never
// larger than the raw 4-bytes-per-voxel encoding) followed by the
// payload itself, zero-padded to the slot size.
func slotSize(pageByteSize uint64) uint64 { return pageByteSize + 4 }

func pageSlice(segData []byte, pageIndex int, pagesPerSegment uint32, pageByteSize uint64) []byte {
	if pagesPerSegment == 0 || segData == nil {
		return nil
	}
	slot := uint32(pageIndex) % pagesPerSegment
	start := uint64(slot) * slotSize(pageByteSize)
	if start+4 > uint64(len(segData)) {
		return nil
	}
	length := binary.LittleEndian.Uint32(segData[start : start+4])
	payloadStart := start + 4
	payloadEnd := payloadStart + uint64(length)
	if length == 0 || payloadEnd > uint64(len(segData)) {
		return nil
	}
	return segData[payloadStart:payloadEnd]
}

func writePageSlice(seg *Segment, pageIndex int, pagesPerSegment uint32, pageByteSize uint64, encoded []byte) {
	if pagesPerSegment == 0 {
		pagesPerSegment = 1
	}
	slot := uint32(pageIndex) % pagesPerSegment
	needed := uint64(pagesPerSegment) * slotSize(pageByteSize)
	if uint64(len(seg.data)) < needed {
		grown := make([]byte, needed)
		copy(grown, seg.data)
		seg.data = grown
	}
	start := uint64(slot) * slotSize(pageByteSize)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
	copy(seg.data[start:start+4], lenBuf[:])
	copy(seg.data[start+4:start+4+uint64(len(encoded))], encoded)
}
