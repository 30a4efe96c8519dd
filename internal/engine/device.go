package engine

import (
	"context"
	"sync"
)

// memoryDevice stands in for the graphics device queue the paged store's
// DeviceUploader contract expects. The engine core owns no GPU, so
// residency uploads land in a plain host-side map instead of a real
// mapped buffer — enough to exercise the upload-strategy plumbing end to
// end without pulling in a windowing/graphics dependency this module has
// no use for otherwise.
type memoryDevice struct {
	mu      sync.Mutex
	uploads uint64
	pages   map[uint64][]byte
}

func newMemoryDevice() *memoryDevice {
	return &memoryDevice{pages: make(map[uint64][]byte)}
}

func (d *memoryDevice) Upload(_ context.Context, physicalOffset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	d.pages[physicalOffset] = buf
	d.uploads++
	return nil
}

func (d *memoryDevice) UploadCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploads
}
