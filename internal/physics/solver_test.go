package physics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahsabaj/voxelcore/internal/config"
)

func testPhysicsConfig() config.PhysicsConfig {
	return config.PhysicsConfig{
		Timestep:           1.0 / 60.0,
		MaxSubsteps:        8,
		Gravity:            -20.0,
		TerminalVelocity:   -50.0,
		Iterations:          4,
		PositionCorrection: 0.2,
		SleepThreshold:     0.05,
		SpatialCell:        4.0,
	}
}

type flatGroundWorld struct{ groundY int32 }

func (w flatGroundWorld) GetBlock(pos VoxelPos) bool {
	return pos.Y <= w.groundY
}

func newTestSolver(t *testing.T, world BlockSource) (*Solver, *SpatialHash) {
	t.Helper()
	hash := NewSpatialHash(testHashConfig())
	return NewSolver(testPhysicsConfig(), hash, world), hash
}

func TestSolverGravityAcceleratesFallingBody(t *testing.T) {
	s, _ := newTestSolver(t, nil)
	id := NewEntityID()
	s.AddBody(id, Vec3{0, 50, 0}, 1.0, Vec3{0.5, 0.5, 0.5}, FlagDynamic|FlagActive|FlagGravity, 0, 0)

	require.NoError(t, s.Step(context.Background(), 1.0/60.0))

	pos, ok := s.Position(id)
	require.True(t, ok)
	assert.Less(t, pos[1], 50.0)
}

func TestSolverTerminalVelocityClamps(t *testing.T) {
	s, _ := newTestSolver(t, nil)
	id := NewEntityID()
	s.AddBody(id, Vec3{0, 500, 0}, 1.0, Vec3{0.5, 0.5, 0.5}, FlagDynamic|FlagActive|FlagGravity, 0, 0)

	for i := 0; i < 200; i++ {
		require.NoError(t, s.Step(context.Background(), 1.0/60.0))
	}

	s.velocities[s.indexOf[id]][1] = -1000 // force past terminal to confirm next step clamps it back
	require.NoError(t, s.Step(context.Background(), 1.0/60.0))
	assert.GreaterOrEqual(t, s.velocities[s.indexOf[id]][1], testPhysicsConfig().TerminalVelocity-1e-9)
}

func TestSolverRestsOnGroundAndStopsFalling(t *testing.T) {
	s, _ := newTestSolver(t, flatGroundWorld{groundY: 0})
	id := NewEntityID()
	s.AddBody(id, Vec3{0, 2.0, 0}, 1.0, Vec3{0.4, 0.4, 0.4}, FlagDynamic|FlagActive|FlagGravity, 0, 0)

	for i := 0; i < 120; i++ {
		require.NoError(t, s.Step(context.Background(), 1.0/60.0))
	}

	pos, ok := s.Position(id)
	require.True(t, ok)
	assert.Greater(t, pos[1], 0.5)
	assert.GreaterOrEqual(t, s.velocities[s.indexOf[id]][1], -1.0)
}

func TestSolverRemoveBodyDropsItFromSpatialHash(t *testing.T) {
	s, hash := newTestSolver(t, nil)
	a := NewEntityID()
	b := NewEntityID()
	s.AddBody(a, Vec3{0, 0, 0}, 1.0, Vec3{0.5, 0.5, 0.5}, FlagDynamic|FlagActive, 0, 0)
	s.AddBody(b, Vec3{0.5, 0, 0}, 1.0, Vec3{0.5, 0.5, 0.5}, FlagDynamic|FlagActive, 0, 0)
	require.Len(t, hash.AllPotentialPairs(), 1)

	s.RemoveBody(a)
	assert.Empty(t, hash.AllPotentialPairs())
}

func TestSolverSleepsSlowBodyAfterDelay(t *testing.T) {
	s, _ := newTestSolver(t, flatGroundWorld{groundY: -100})
	id := NewEntityID()
	s.AddBody(id, Vec3{0, 0, 0}, 1.0, Vec3{0.5, 0.5, 0.5}, FlagDynamic|FlagActive, 0, 0)

	for i := 0; i < 40; i++ {
		require.NoError(t, s.Step(context.Background(), 1.0/60.0))
	}

	assert.True(t, s.flags[s.indexOf[id]].IsSleeping())
}

type wallWorld struct{ wallX int32 }

func (w wallWorld) GetBlock(pos VoxelPos) bool { return pos.X >= w.wallX }

func TestSolverSnapsToWallFaceWithEpsilonClearance(t *testing.T) {
	s, _ := newTestSolver(t, wallWorld{wallX: 2})
	id := NewEntityID()
	s.AddBody(id, Vec3{0.5, 2.0, 0.5}, 1.0, Vec3{0.4, 0.9, 0.4}, FlagDynamic|FlagActive, 0, 0)
	s.SetVelocity(id, Vec3{5, 0, 0})

	// At 5/60 per step the box first reaches x=2 on step 14. Collision
	// flags are recomputed every step, so they are checked on the step of
	// the hit, before the stopped body's next step clears them.
	for i := 0; i < 14; i++ {
		require.NoError(t, s.Step(context.Background(), 1.0/60.0))
	}

	pos, ok := s.Position(id)
	require.True(t, ok)
	assert.InDelta(t, 1.599, pos[0], 1e-9)
	assert.Equal(t, 2.0, pos[1])
	assert.Equal(t, 0.5, pos[2])
	assert.Equal(t, 0.0, s.velocities[s.indexOf[id]][0])
	assert.True(t, s.flags[s.indexOf[id]].IsWallCollisionX())
	assert.False(t, s.flags[s.indexOf[id]].IsGrounded())
}

func TestSolverGroundedFlagSetOnlyWhileResting(t *testing.T) {
	s, _ := newTestSolver(t, flatGroundWorld{groundY: 0})
	id := NewEntityID()
	s.AddBody(id, Vec3{0, 2.0, 0}, 1.0, Vec3{0.4, 0.4, 0.4}, FlagDynamic|FlagActive|FlagGravity, 0, 0)

	assert.False(t, s.flags[s.indexOf[id]].IsGrounded())
	for i := 0; i < 120; i++ {
		require.NoError(t, s.Step(context.Background(), 1.0/60.0))
	}
	assert.True(t, s.flags[s.indexOf[id]].IsGrounded())
}

func TestSolverTeleportClearsVelocity(t *testing.T) {
	s, _ := newTestSolver(t, nil)
	id := NewEntityID()
	s.AddBody(id, Vec3{0, 0, 0}, 1.0, Vec3{0.5, 0.5, 0.5}, FlagDynamic|FlagActive|FlagGravity, 0, 0)
	require.NoError(t, s.Step(context.Background(), 1.0/60.0))

	s.Teleport(id, Vec3{10, 10, 10})
	pos, _ := s.Position(id)
	assert.Equal(t, Vec3{10, 10, 10}, pos)
	assert.Equal(t, Vec3{}, s.velocities[s.indexOf[id]])
}
