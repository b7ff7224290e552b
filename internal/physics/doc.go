// Package physics runs the per-frame sphere collision pipeline.
//
// A [Manager] owns two state buffers. Each frame reads the front buffer and
// writes the back buffer, then swaps them:
//
//   - broad phase: rebuild the octree from the front buffer
//   - [Detect]: query the octree per object, emit overlapping pairs
//   - [Resolve]: compute an elastic impulse per approaching pair
//   - [ApplyImpulses]: add the impulses to the back buffer in pair order
//   - [Integrate]: forward Euler positions into the back buffer
//
// Every stage except the impulse reduction runs on its own [task.Task].
//
// # Example
//
//	m, _ := physics.NewManager(physics.DefaultConfig())
//	defer m.Close()
//	m.AddCollisionObject(mgl64.Vec3{-1.5, 0, 0}, mgl64.Vec3{1, 0, 0}, 1)
//	stats, _ := m.RunFrame(1.0 / 60)
//	objects := m.Snapshot(nil)
//
// # Thread Safety
//
// RunFrame, AddCollisionObject and Close are mutually exclusive; an
// overlapping call returns [ErrFrameInFlight]. Snapshot, Pairs, Len, Frame
// and LastStats are safe from any goroutine.
package physics
