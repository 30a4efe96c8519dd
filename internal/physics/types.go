// Package physics implements the pre-allocated spatial hash broad
// phase and the fixed-timestep impulse solver that runs against it.
package physics

import "github.com/google/uuid"

// EntityID names a body registered with a Solver. Bodies are looked up
// by this id rather than by slice index, since the solver reorders its
// backing slices on removal (swap-remove).
type EntityID uuid.UUID

// NilEntity is the zero value, never assigned to a real body.
var NilEntity EntityID

// NewEntityID mints a fresh, globally unique id for a spawned body.
func NewEntityID() EntityID {
	return EntityID(uuid.New())
}

// String renders an EntityID as its UUID text form. Named types don't
// inherit their underlying type's methods, so this forwards explicitly
// to uuid.UUID.String — used to give entity pairs a total order for
// dedup in the broad phase.
func (e EntityID) String() string {
	return uuid.UUID(e).String()
}

// PhysicsFlags marks per-body behavior toggles.
type PhysicsFlags uint8

const (
	FlagDynamic PhysicsFlags = 1 << iota
	FlagActive
	FlagGravity
	FlagSleeping

	// FlagGrounded, FlagWallCollisionX, FlagWallCollisionZ, and
	// FlagCeiling record which face the body's voxel sweep hit on the
	// most recent integration step, per axis. They're recomputed every
	// step, not accumulated.
	FlagGrounded
	FlagWallCollisionX
	FlagWallCollisionZ
	FlagCeiling
)

func (f PhysicsFlags) has(bit PhysicsFlags) bool { return f&bit != 0 }

// IsDynamic reports whether the body responds to forces and collision.
func (f PhysicsFlags) IsDynamic() bool { return f.has(FlagDynamic) }

// IsActive reports whether the body participates in this step at all.
func (f PhysicsFlags) IsActive() bool { return f.has(FlagActive) }

// HasGravity reports whether gravity is applied to the body.
func (f PhysicsFlags) HasGravity() bool { return f.has(FlagGravity) }

// IsSleeping reports whether the body is excluded from integration as
// a performance optimization, pending a wake event.
func (f PhysicsFlags) IsSleeping() bool { return f.has(FlagSleeping) }

// IsGrounded reports whether the body's last integration step came to
// rest against a voxel below it.
func (f PhysicsFlags) IsGrounded() bool { return f.has(FlagGrounded) }

// IsWallCollisionX reports whether the body's last integration step
// was blocked by a voxel along the X axis.
func (f PhysicsFlags) IsWallCollisionX() bool { return f.has(FlagWallCollisionX) }

// IsWallCollisionZ reports whether the body's last integration step
// was blocked by a voxel along the Z axis.
func (f PhysicsFlags) IsWallCollisionZ() bool { return f.has(FlagWallCollisionZ) }

// IsCeilingCollision reports whether the body's last integration step
// was blocked by a voxel above it.
func (f PhysicsFlags) IsCeilingCollision() bool { return f.has(FlagCeiling) }

// Vec3 is a plain 3-component vector. Physics state uses this instead
// of the voxel package's integer-coordinate types, since bodies move
// continuously through world space rather than snapping to voxels.
type Vec3 [3]float64

func (v Vec3) add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vec3) sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) lengthSquared() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min Vec3
	Max Vec3
}

// FromCenterHalfExtents builds an AABB from a center point and
// per-axis half extents.
func FromCenterHalfExtents(center, halfExtents Vec3) AABB {
	return AABB{
		Min: center.sub(halfExtents),
		Max: center.add(halfExtents),
	}
}

// Intersects reports whether two AABBs overlap on every axis.
func (a AABB) Intersects(o AABB) bool {
	return a.Min[0] < o.Max[0] && a.Max[0] > o.Min[0] &&
		a.Min[1] < o.Max[1] && a.Max[1] > o.Min[1] &&
		a.Min[2] < o.Max[2] && a.Max[2] > o.Min[2]
}

// BlockSource is the read-only voxel neighborhood query the solver
// sweeps bodies against. internal/world.Manager satisfies it directly.
type BlockSource interface {
	GetBlock(pos VoxelPos) (solid bool)
}

// VoxelPos is a world-space integer block coordinate, local to this
// package so callers don't need to depend on internal/voxel just to
// implement BlockSource.
type VoxelPos struct {
	X, Y, Z int32
}
