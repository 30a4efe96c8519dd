package lighting

import "github.com/noahsabaj/voxelcore/internal/voxel"

// InitializeColumn seeds one (x, z) column's sky light by scanning
// top-down from skyCeiling. An opaque block zeroes the running level;
// a liquid block attenuates it by one step (water lets some sky light
// through, but not as freely as air); anything else transparent passes
// the current level through unchanged.
func InitializeColumn(chunk *voxel.Chunk, x, z uint32, skyCeiling uint8) {
	size := chunk.Size()
	level := skyCeiling

	for y := size; y > 0; y-- {
		wy := y - 1
		flags := chunk.GetMaterialFlags(x, wy, z)
		block := chunk.GetBlock(x, wy, z)

		switch {
		case block != voxel.BlockAir && flags&voxel.FlagOpaque != 0:
			level = 0
		case flags&voxel.FlagLiquid != 0:
			if level > 0 {
				level--
			}
		}

		light := chunk.GetLight(x, wy, z)
		light.Sky = level
		chunk.SetLight(x, wy, z, light)
	}
}

// InitializeChunk seeds every column of chunk under skyCeiling. Called
// once when a chunk is generated or hydrated, before any incremental
// propagation runs against it.
func InitializeChunk(chunk *voxel.Chunk, skyCeiling uint8) {
	size := chunk.Size()
	for x := uint32(0); x < size; x++ {
		for z := uint32(0); z < size; z++ {
			InitializeColumn(chunk, x, z, skyCeiling)
		}
	}
}
