package paging

import (
	"context"

	"github.com/noahsabaj/voxelcore/internal/cache"
	pkgerrors "github.com/noahsabaj/voxelcore/pkg/errors"
)

// DeviceUploader is the host-provided sink a page's decompressed bytes
// are copied into once resident. It stands in for the original's WGPU
// queue.write_buffer call: this module doesn't own a graphics device,
// so the engine wires a concrete implementation (a real device queue,
// or in tests a fake that records calls) in at construction time.
type DeviceUploader interface {
	Upload(ctx context.Context, physicalOffset uint64, data []byte) error
}

// UploadStrategy copies a page's voxel bytes to wherever DeviceUploader
// reads from next, differing in whether/how they stage through an
// intermediate buffer.
type UploadStrategy interface {
	Upload(ctx context.Context, physicalOffset uint64, data []byte, device DeviceUploader) error
}

// DirectStrategy hands the decompressed bytes straight to the device
// uploader with no intermediate copy. Cheapest, and correct whenever the
// uploader itself is safe to call with borrowed memory (true of this
// module's own DeviceUploader contract, unlike a raw GPU mapped pointer).
type DirectStrategy struct{}

func (DirectStrategy) Upload(ctx context.Context, physicalOffset uint64, data []byte, device DeviceUploader) error {
	return device.Upload(ctx, physicalOffset, data)
}

// MappedPointerStrategy models the zero-copy DirectStorage/GPUDirect
// upload path: the data is already in a buffer the device can read
// from in place (e.g. a memory-mapped segment), so the "upload" is just
// publishing the pointer. Here that degrades to the same call as
// DirectStrategy, since Go offers no direct analogue to mapping host
// pages into a discrete GPU's address space; the type exists so the
// paged store can select a path per platform capability the way the
// original did, even though this implementation folds to one body.
type MappedPointerStrategy struct{}

func (MappedPointerStrategy) Upload(ctx context.Context, physicalOffset uint64, data []byte, device DeviceUploader) error {
	return device.Upload(ctx, physicalOffset, data)
}

// StagingBufferStrategy is the portable fallback: it borrows a
// fixed-size buffer from a resource pool, copies into it, uploads, and
// returns the buffer, bounding the number of concurrent upload buffers
// the paged store can have outstanding regardless of how many pages are
// faulting in at once.
type StagingBufferStrategy struct {
	pool       *cache.ResourcePool
	bufferSize int
}

// NewStagingBufferStrategy wraps pool, reserving staging buffers of
// bufferSize bytes (a page's uncompressed byte size).
func NewStagingBufferStrategy(pool *cache.ResourcePool, bufferSize int) *StagingBufferStrategy {
	return &StagingBufferStrategy{pool: pool, bufferSize: bufferSize}
}

func (s *StagingBufferStrategy) Upload(ctx context.Context, physicalOffset uint64, data []byte, device DeviceUploader) error {
	resource, err := s.pool.AcquireResource(ctx, cache.ResourceTypeMemory, map[string]interface{}{
		"purpose": "paging_staging_buffer",
		"size":    s.bufferSize,
	})
	if err != nil {
		return pkgerrors.New(pkgerrors.KindResourceExhausted, "no staging buffer available", err)
	}
	defer s.pool.ReleaseResource(resource)

	staging, ok := resource.Metadata["buffer"].([]byte)
	if !ok || len(staging) < len(data) {
		staging = make([]byte, s.bufferSize)
		resource.Metadata["buffer"] = staging
	}
	n := copy(staging, data)

	if err := device.Upload(ctx, physicalOffset, staging[:n]); err != nil {
		return pkgerrors.New(pkgerrors.KindUploadFailure, "staged upload failed", err).
			WithDetail("physical_offset", physicalOffset)
	}
	return nil
}
