// Package lighting implements the parallel BFS light propagator and the
// skylight/day-night initializers that seed it.
package lighting

import "github.com/noahsabaj/voxelcore/internal/voxel"

// LightChannel selects which of a voxel's two independent light values
// a request concerns.
type LightChannel uint8

const (
	ChannelSky LightChannel = iota
	ChannelBlock
)

// LightRequest is one unit of work for the propagator: either "raise
// this position to Level" or, when IsRemoval is set, "this position's
// light source at Level was just removed, unwind it."
type LightRequest struct {
	Pos       voxel.VoxelPos
	Channel   LightChannel
	Level     uint8
	IsRemoval bool
}

// ChunkSource resolves a chunk position to its loaded chunk. The
// propagator never loads a chunk itself — a request whose chunk isn't
// resident is silently dropped, since the chunk manager (internal/world)
// owns load/unload and will re-seed a newly loaded chunk's light on its
// own.
type ChunkSource interface {
	GetChunk(pos voxel.ChunkPos) (*voxel.Chunk, bool)
}

// lightJob is a request narrowed to the work queue's internal shape,
// once it's known which chunk it targets.
type lightJob struct {
	pos     voxel.VoxelPos
	channel LightChannel
	level   uint8
}

// removeResult is what processing one removal step produces: either a
// cross-chunk continuation (boundary), or more same-chunk work to fold
// back into the removal/addition queues.
type removeResult struct {
	boundary  *LightRequest
	removals  []lightJob
	additions []lightJob
}

func neighbors6(pos voxel.VoxelPos) [6]voxel.VoxelPos {
	return [6]voxel.VoxelPos{
		{X: pos.X + 1, Y: pos.Y, Z: pos.Z},
		{X: pos.X - 1, Y: pos.Y, Z: pos.Z},
		{X: pos.X, Y: pos.Y + 1, Z: pos.Z},
		{X: pos.X, Y: pos.Y - 1, Z: pos.Z},
		{X: pos.X, Y: pos.Y, Z: pos.Z + 1},
		{X: pos.X, Y: pos.Y, Z: pos.Z - 1},
	}
}
