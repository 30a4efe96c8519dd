package engine

import (
	"github.com/noahsabaj/voxelcore/internal/physics"
	"github.com/noahsabaj/voxelcore/internal/voxel"
	"github.com/noahsabaj/voxelcore/internal/world"
)

// worldBlockSource adapts the chunk manager's block lookup to the narrow
// read-only view the physics solver's voxel collision sweep needs,
// mirroring the original engine's own WorldAdapter boundary between the
// physics module and the rest of the world: physics never sees a chunk,
// a block registry, or anything it could mutate, only "is this voxel
// solid".
type worldBlockSource struct {
	world *world.Manager
}

func newWorldBlockSource(w *world.Manager) *worldBlockSource {
	return &worldBlockSource{world: w}
}

func (a *worldBlockSource) GetBlock(pos physics.VoxelPos) bool {
	id := a.world.GetBlock(voxel.VoxelPos{X: pos.X, Y: pos.Y, Z: pos.Z})
	return id != voxel.BlockAir
}
