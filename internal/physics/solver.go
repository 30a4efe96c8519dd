package physics

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/noahsabaj/voxelcore/internal/config"
)

// Solver owns the fixed-timestep accumulator, the body registry, and
// the broad/narrow phase collision pipeline that runs each substep.
type Solver struct {
	cfg   config.PhysicsConfig
	hash  *SpatialHash
	world BlockSource

	accumulator float64
	alpha       float64

	ids         []EntityID
	indexOf     map[EntityID]int
	positions   []Vec3
	prevPos     []Vec3
	velocities  []Vec3
	invMass     []float64
	halfExtents []Vec3
	flags       []PhysicsFlags
	restitution []float64
	friction    []float64
	sleepTimer  []float64
}

// NewSolver builds a solver over hash (the broad-phase grid) and world
// (the voxel collision query). cfg's Timestep/MaxSubsteps/Gravity/
// Iterations/PositionCorrection/SleepThreshold drive every step.
func NewSolver(cfg config.PhysicsConfig, hash *SpatialHash, world BlockSource) *Solver {
	return &Solver{
		cfg:     cfg,
		hash:    hash,
		world:   world,
		indexOf: make(map[EntityID]int),
	}
}

// AddBody registers a new dynamic or static body.
func (s *Solver) AddBody(id EntityID, pos Vec3, mass float64, halfExtents Vec3, flags PhysicsFlags, restitution, friction float64) {
	if _, exists := s.indexOf[id]; exists {
		return
	}
	invMass := 0.0
	if mass > 0 {
		invMass = 1.0 / mass
	}

	s.indexOf[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.positions = append(s.positions, pos)
	s.prevPos = append(s.prevPos, pos)
	s.velocities = append(s.velocities, Vec3{})
	s.invMass = append(s.invMass, invMass)
	s.halfExtents = append(s.halfExtents, halfExtents)
	s.flags = append(s.flags, flags)
	s.restitution = append(s.restitution, restitution)
	s.friction = append(s.friction, friction)
	s.sleepTimer = append(s.sleepTimer, 0)

	s.hash.Insert(id, FromCenterHalfExtents(pos, halfExtents))
}

// RemoveBody unregisters a body, swap-removing it out of every SoA
// slice so the remaining bodies stay densely packed.
func (s *Solver) RemoveBody(id EntityID) {
	idx, ok := s.indexOf[id]
	if !ok {
		return
	}
	s.hash.Remove(id)

	last := len(s.ids) - 1
	s.ids[idx] = s.ids[last]
	s.positions[idx] = s.positions[last]
	s.prevPos[idx] = s.prevPos[last]
	s.velocities[idx] = s.velocities[last]
	s.invMass[idx] = s.invMass[last]
	s.halfExtents[idx] = s.halfExtents[last]
	s.flags[idx] = s.flags[last]
	s.restitution[idx] = s.restitution[last]
	s.friction[idx] = s.friction[last]
	s.sleepTimer[idx] = s.sleepTimer[last]

	s.ids = s.ids[:last]
	s.positions = s.positions[:last]
	s.prevPos = s.prevPos[:last]
	s.velocities = s.velocities[:last]
	s.invMass = s.invMass[:last]
	s.halfExtents = s.halfExtents[:last]
	s.flags = s.flags[:last]
	s.restitution = s.restitution[:last]
	s.friction = s.friction[:last]
	s.sleepTimer = s.sleepTimer[:last]

	delete(s.indexOf, id)
	if idx < len(s.ids) {
		s.indexOf[s.ids[idx]] = idx
	}
}

// SetVelocity sets a body's velocity directly and wakes it.
func (s *Solver) SetVelocity(id EntityID, v Vec3) {
	idx, ok := s.indexOf[id]
	if !ok {
		return
	}
	s.velocities[idx] = v
	s.flags[idx] &^= FlagSleeping
	s.sleepTimer[idx] = 0
}

// Teleport moves a body directly, clearing velocity so it doesn't
// overshoot from whatever momentum it had before the jump.
func (s *Solver) Teleport(id EntityID, pos Vec3) {
	idx, ok := s.indexOf[id]
	if !ok {
		return
	}
	s.positions[idx] = pos
	s.prevPos[idx] = pos
	s.velocities[idx] = Vec3{}
	s.hash.Update(id, FromCenterHalfExtents(pos, s.halfExtents[idx]))
}

// Position returns a body's current interpolated-free position.
func (s *Solver) Position(id EntityID) (Vec3, bool) {
	idx, ok := s.indexOf[id]
	if !ok {
		return Vec3{}, false
	}
	return s.positions[idx], true
}

// InterpolatedPosition blends between the previous and current
// substep position using the solver's leftover accumulator fraction,
// for smooth rendering between fixed ticks.
func (s *Solver) InterpolatedPosition(id EntityID) (Vec3, bool) {
	idx, ok := s.indexOf[id]
	if !ok {
		return Vec3{}, false
	}
	prev, curr := s.prevPos[idx], s.positions[idx]
	return Vec3{
		prev[0] + (curr[0]-prev[0])*s.alpha,
		prev[1] + (curr[1]-prev[1])*s.alpha,
		prev[2] + (curr[2]-prev[2])*s.alpha,
	}, true
}

// AwakeBodies counts registered bodies not currently excluded from
// integration by sleeping or inactive/static flags.
func (s *Solver) AwakeBodies() int {
	n := 0
	for _, f := range s.flags {
		if f.IsActive() && f.IsDynamic() && !f.IsSleeping() {
			n++
		}
	}
	return n
}

// Step advances the simulation by frameTime seconds of real time,
// running as many fixed substeps as the accumulator demands (capped at
// MaxSubsteps to bound worst-case work after a stall) and leaving the
// remainder for the next call's interpolation fraction.
func (s *Solver) Step(ctx context.Context, frameTime float64) error {
	dt := s.cfg.Timestep
	if dt <= 0 {
		return nil
	}
	if frameTime > 0.25 {
		frameTime = 0.25
	}
	s.accumulator += frameTime

	substeps := 0
	for s.accumulator >= dt && substeps < s.cfg.MaxSubsteps {
		copy(s.prevPos, s.positions)
		if err := s.substep(ctx, dt); err != nil {
			return err
		}
		s.accumulator -= dt
		substeps++
	}
	s.alpha = s.accumulator / dt
	return nil
}

func (s *Solver) substep(ctx context.Context, dt float64) error {
	if err := s.applyForces(ctx, dt); err != nil {
		return err
	}
	s.refreshSpatialHash()

	pairs := s.hash.AllPotentialPairs()
	contacts := s.narrowPhase(pairs)
	s.solveContacts(contacts)

	s.integratePositions(dt)
	s.detectSleep(dt)
	return nil
}

// applyForces applies gravity, clamped at TerminalVelocity, to every
// active, awake dynamic body with gravity enabled; no damping is
// applied. Bodies are split into worker-sized chunks processed concurrently -
// mirroring the teacher pack's errgroup-bounded fan-out for data
// parallel slice work.
func (s *Solver) applyForces(ctx context.Context, dt float64) error {
	count := len(s.ids)
	if count == 0 {
		return nil
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > count {
		workers = count
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (count + workers - 1) / workers

	g, _ := errgroup.WithContext(ctx)
	for start := 0; start < count; start += chunk {
		start := start
		end := start + chunk
		if end > count {
			end = count
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if !s.flags[i].IsActive() || !s.flags[i].IsDynamic() || s.flags[i].IsSleeping() {
					continue
				}
				if s.flags[i].HasGravity() {
					s.velocities[i][1] += s.cfg.Gravity * dt
					if s.velocities[i][1] < s.cfg.TerminalVelocity {
						s.velocities[i][1] = s.cfg.TerminalVelocity
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Solver) refreshSpatialHash() {
	for i, id := range s.ids {
		box := FromCenterHalfExtents(s.positions[i], s.halfExtents[i])
		s.hash.Update(id, box)
	}
}

type contact struct {
	idxA, idxB          int
	normal               Vec3
	penetration          float64
	combinedRestitution  float64
}

// narrowPhase runs sphere-sphere tests (the teacher's own simplified
// collider) over every broad-phase candidate pair, keeping only actual
// overlaps and skipping pairs where both bodies are static.
func (s *Solver) narrowPhase(pairs []EntityPair) []contact {
	var out []contact
	for _, pair := range pairs {
		idxA, okA := s.indexOf[pair.A]
		idxB, okB := s.indexOf[pair.B]
		if !okA || !okB {
			continue
		}
		if !s.flags[idxA].IsActive() || !s.flags[idxB].IsActive() {
			continue
		}
		if !s.flags[idxA].IsDynamic() && !s.flags[idxB].IsDynamic() {
			continue
		}

		diff := s.positions[idxB].sub(s.positions[idxA])
		distSq := diff.lengthSquared()
		radiusSum := 1.0
		if distSq >= radiusSum*radiusSum || distSq < 1e-8 {
			continue
		}
		dist := math.Sqrt(distSq)
		normal := diff.scale(1.0 / dist)
		penetration := radiusSum - dist

		out = append(out, contact{
			idxA:                idxA,
			idxB:                idxB,
			normal:              normal,
			penetration:         penetration,
			combinedRestitution: (s.restitution[idxA] + s.restitution[idxB]) * 0.5,
		})
	}
	return out
}

// solveContacts runs the iterative velocity-impulse solver with
// Baumgarte position correction, the teacher's own way of trading
// exact penetration resolution for stability over multiple passes.
func (s *Solver) solveContacts(contacts []contact) {
	for iter := 0; iter < s.cfg.Iterations; iter++ {
		for _, c := range contacts {
			invMassA, invMassB := s.invMass[c.idxA], s.invMass[c.idxB]
			totalInvMass := invMassA + invMassB
			if totalInvMass == 0 {
				continue
			}

			relVel := s.velocities[c.idxB].sub(s.velocities[c.idxA])
			velAlongNormal := relVel[0]*c.normal[0] + relVel[1]*c.normal[1] + relVel[2]*c.normal[2]
			if velAlongNormal > 0 {
				continue
			}

			impulseScalar := -(1 + c.combinedRestitution) * velAlongNormal / totalInvMass
			impulse := c.normal.scale(impulseScalar)

			if s.flags[c.idxA].IsDynamic() {
				s.velocities[c.idxA] = s.velocities[c.idxA].sub(impulse.scale(invMassA))
			}
			if s.flags[c.idxB].IsDynamic() {
				s.velocities[c.idxB] = s.velocities[c.idxB].add(impulse.scale(invMassB))
			}

			correction := c.penetration * s.cfg.PositionCorrection
			posImpulse := c.normal.scale(correction)
			if s.flags[c.idxA].IsDynamic() {
				s.positions[c.idxA] = s.positions[c.idxA].sub(posImpulse.scale(invMassA / totalInvMass))
			}
			if s.flags[c.idxB].IsDynamic() {
				s.positions[c.idxB] = s.positions[c.idxB].add(posImpulse.scale(invMassB / totalInvMass))
			}
		}
	}
}

func (s *Solver) integratePositions(dt float64) {
	for i := range s.ids {
		if !s.flags[i].IsActive() || !s.flags[i].IsDynamic() || s.flags[i].IsSleeping() {
			continue
		}
		delta := s.velocities[i].scale(dt)
		s.positions[i] = s.sweepVoxelCollision(i, delta)
	}
}

// faceEpsilon is the gap left between a resting body and the voxel
// face it collided with, matching the original solver's resting
// clearance.
const faceEpsilon = 0.001

// sweepVoxelCollision resolves movement against the voxel world one
// axis at a time, so a body sliding into a wall still falls freely and
// a body landing on a floor still slides along it - the same
// axis-separated approach the teacher pack's own collision sweep uses.
// A hit axis snaps to the colliding block's face plus faceEpsilon
// rather than canceling the whole axis delta, so a falling body comes
// to rest flush against the block instead of short of it by up to a
// full tick of travel.
func (s *Solver) sweepVoxelCollision(idx int, delta Vec3) Vec3 {
	if s.world == nil {
		return s.positions[idx].add(delta)
	}
	pos := s.positions[idx]
	half := s.halfExtents[idx]

	s.flags[idx] &^= FlagGrounded | FlagWallCollisionX | FlagWallCollisionZ | FlagCeiling

	for axis := 0; axis < 3; axis++ {
		axisDelta := Vec3{}
		axisDelta[axis] = delta[axis]
		candidate := pos.add(axisDelta)

		block, hit := s.collidingBlock(candidate, half)
		if !hit {
			pos = candidate
			continue
		}

		center := blockCenterAxis(block, axis)
		switch {
		case axisDelta[axis] > 0:
			pos[axis] = center - 0.5 - half[axis] - faceEpsilon
		case axisDelta[axis] < 0:
			pos[axis] = center + 0.5 + half[axis] + faceEpsilon
		}
		s.velocities[idx][axis] = 0
		s.markCollisionFace(idx, axis, axisDelta[axis])
	}
	return pos
}

// markCollisionFace records which face a hit on axis corresponds to:
// X/Z hits are always wall collisions, Y hits are grounded (moving
// down) or ceiling (moving up) depending on delta's sign.
func (s *Solver) markCollisionFace(idx, axis int, delta float64) {
	switch axis {
	case 0:
		s.flags[idx] |= FlagWallCollisionX
	case 1:
		if delta < 0 {
			s.flags[idx] |= FlagGrounded
		} else if delta > 0 {
			s.flags[idx] |= FlagCeiling
		}
	case 2:
		s.flags[idx] |= FlagWallCollisionZ
	}
}

// blockCenterAxis returns the world-space center of block along axis
// (block coordinates address a unit voxel occupying [n, n+1)).
func blockCenterAxis(block VoxelPos, axis int) float64 {
	switch axis {
	case 0:
		return float64(block.X) + 0.5
	case 1:
		return float64(block.Y) + 0.5
	default:
		return float64(block.Z) + 0.5
	}
}

// collidingBlock reports the last solid voxel (in ascending x/y/z scan
// order) whose unit cube intersects the AABB centered at center, the
// same "last write wins" resolution the original sweep uses when a
// body's bounds span more than one solid block.
func (s *Solver) collidingBlock(center, half Vec3) (VoxelPos, bool) {
	box := FromCenterHalfExtents(center, half)
	minX, maxX := int32(math.Floor(box.Min[0])), int32(math.Ceil(box.Max[0]))
	minY, maxY := int32(math.Floor(box.Min[1])), int32(math.Ceil(box.Max[1]))
	minZ, maxZ := int32(math.Floor(box.Min[2])), int32(math.Ceil(box.Max[2]))

	var hitBlock VoxelPos
	hit := false
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				blockBox := AABB{
					Min: Vec3{float64(x), float64(y), float64(z)},
					Max: Vec3{float64(x) + 1, float64(y) + 1, float64(z) + 1},
				}
				if !box.Intersects(blockBox) {
					continue
				}
				pos := VoxelPos{X: x, Y: y, Z: z}
				if s.world.GetBlock(pos) {
					hitBlock = pos
					hit = true
				}
			}
		}
	}
	return hitBlock, hit
}

// detectSleep puts slow-moving dynamic bodies to sleep after they've
// stayed below SleepThreshold for a short span, and wakes anything
// moving fast enough to matter again.
func (s *Solver) detectSleep(dt float64) {
	const sleepDelay = 0.5
	threshold := s.cfg.SleepThreshold * s.cfg.SleepThreshold
	for i := range s.ids {
		if !s.flags[i].IsDynamic() {
			continue
		}
		if s.velocities[i].lengthSquared() < threshold {
			s.sleepTimer[i] += dt
			if s.sleepTimer[i] >= sleepDelay {
				s.flags[i] |= FlagSleeping
			}
		} else {
			s.sleepTimer[i] = 0
			s.flags[i] &^= FlagSleeping
		}
	}
}
