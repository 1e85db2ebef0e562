package bounce

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/akmonengine/bounce/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultNumBodyMutexes is the registry stripe count used when Settings
// leaves NumBodyMutexes at 0.
const DefaultNumBodyMutexes = 32

// defaultDensity is used for the mass of dynamic bodies (kg/m^3).
const defaultDensity = 1000.0

const (
	sleepTimeThreshold     = 0.5
	sleepVelocityThreshold = 0.03
)

// Settings are the world's fixed capacities, decided at Configure time and
// never changed afterwards. Exceeding a capacity at runtime is a reported
// failure, not silent truncation.
type Settings struct {
	// MaxBodies is the maximum number of live bodies.
	MaxBodies int
	// NumBodyMutexes is the registry mutex stripe count; 0 selects
	// DefaultNumBodyMutexes.
	NumBodyMutexes int
	// MaxBodyPairs caps the broad phase pair queue per substep.
	MaxBodyPairs int
	// MaxContactConstraints caps the contact constraint buffer per substep.
	MaxContactConstraints int
}

// StepResult reports what one simulation advance did. Step is the monotonic
// step counter, incremented once per successful advance; it is diagnostic
// only and never drives correctness decisions.
type StepResult struct {
	Step      uint64
	BodyPairs int
	Contacts  int
}

type worldState int

const (
	stateUnconfigured worldState = iota
	stateConfigured
	stateRunning
	stateShutDown
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotLive
	slotRemoved
)

type bodySlot struct {
	body       *actor.RigidBody
	id         BodyID
	layer      ObjectLayer
	userData   uint64
	generation uint32
	state      slotState
}

// World owns the body registry, the broad phase partitions and the per-step
// advancement entry point.
//
// Lifecycle: Unconfigured -> Configured -> Running -> ShutDown (terminal).
// Registry mutations and Step must be driven from a single goroutine; only
// the internals of Step fan out to the job system.
type World struct {
	mu      sync.Mutex
	state   worldState
	session *Session
	log     *slog.Logger

	settings Settings

	// The table and filters are stored by reference for the world's entire
	// lifetime; the caller keeps them alive.
	table            *BroadPhaseLayerTable
	objectFilter     ObjectLayerPairFilter
	broadPhaseFilter ObjectVsBroadPhaseLayerFilter

	contactListener    *ContactListener
	activationListener *BodyActivationListener

	slots     []bodySlot
	freeList  []uint32
	liveCount int
	stripes   []sync.Mutex

	grids               [NumBroadPhaseLayers]*SpatialGrid
	broadPhaseOptimized bool

	gravity   mgl64.Vec3
	events    *contactEvents
	stepCount uint64
}

func newWorld(session *Session) *World {
	return &World{
		session: session,
		log:     slog.Default(),
		gravity: mgl64.Vec3{0, -9.81, 0},
		events:  newContactEvents(),
	}
}

// Configure fixes the world's capacities and installs the layer table and
// collision filters. One-time: Unconfigured -> Configured. The caller retains
// ownership of the table and filters and must keep them alive as long as the
// world exists.
func (w *World) Configure(settings Settings, table *BroadPhaseLayerTable,
	objectFilter ObjectLayerPairFilter, broadPhaseFilter ObjectVsBroadPhaseLayerFilter) error {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.isClosed() {
		return fmt.Errorf("%w: session is closed", ErrInvalidOrdering)
	}
	if w.state != stateUnconfigured {
		return fmt.Errorf("%w: world is already configured", ErrInvalidOrdering)
	}

	assertf(settings.MaxBodies > 0, "Configure: MaxBodies %d must be positive", settings.MaxBodies)
	assertf(settings.MaxBodyPairs > 0, "Configure: MaxBodyPairs %d must be positive", settings.MaxBodyPairs)
	assertf(settings.MaxContactConstraints > 0, "Configure: MaxContactConstraints %d must be positive", settings.MaxContactConstraints)
	assertf(settings.NumBodyMutexes >= 0, "Configure: NumBodyMutexes %d must not be negative", settings.NumBodyMutexes)
	assertf(table != nil, "Configure: layer table is required")
	assertf(objectFilter.ShouldCollide != nil, "Configure: object layer filter is required")
	assertf(broadPhaseFilter.ShouldCollide != nil, "Configure: broad phase filter is required")

	if settings.NumBodyMutexes == 0 {
		settings.NumBodyMutexes = DefaultNumBodyMutexes
	}

	w.settings = settings
	w.table = table
	w.objectFilter = objectFilter
	w.broadPhaseFilter = broadPhaseFilter
	w.stripes = make([]sync.Mutex, settings.NumBodyMutexes)
	w.slots = make([]bodySlot, 0, settings.MaxBodies)

	w.grids[BroadPhaseNonMoving] = NewSpatialGrid(4.0, settings.MaxBodies)
	w.grids[BroadPhaseMoving] = NewSpatialGrid(2.0, settings.MaxBodies)

	w.state = stateConfigured
	return nil
}

// SetContactListener installs the contact observer. Must be done before the
// first Step that should report contacts.
func (w *World) SetContactListener(listener *ContactListener) {
	w.contactListener = listener
}

// SetBodyActivationListener installs the activation observer.
func (w *World) SetBodyActivationListener(listener *BodyActivationListener) {
	w.activationListener = listener
}

// SetGravity overrides the default gravity of (0, -9.81, 0).
func (w *World) SetGravity(gravity mgl64.Vec3) {
	w.gravity = gravity
}

// AddStaticBody validates the shape settings, creates a non-moving body and
// adds it to the registry. Fails with actor.ErrShapeConstruction on invalid
// geometry and ErrCapacityExceeded when MaxBodies is reached; either way
// nothing is partially created.
func (w *World) AddStaticBody(shape actor.ShapeSettings, pose actor.Transform) (BodyID, error) {
	return w.addBody(shape, pose, actor.MotionTypeStatic, mgl64.Vec3{}, 0)
}

// AddDynamicBody is AddStaticBody for moving bodies, with an initial velocity
// and restitution coefficient. The body is immediately active.
func (w *World) AddDynamicBody(shape actor.ShapeSettings, pose actor.Transform,
	velocity mgl64.Vec3, restitution float64) (BodyID, error) {
	return w.addBody(shape, pose, actor.MotionTypeDynamic, velocity, restitution)
}

func (w *World) addBody(shape actor.ShapeSettings, pose actor.Transform,
	motion actor.MotionType, velocity mgl64.Vec3, restitution float64) (BodyID, error) {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateConfigured && w.state != stateRunning {
		return InvalidBodyID, fmt.Errorf("%w: world is not configured", ErrInvalidOrdering)
	}

	created, err := shape.Create()
	if err != nil {
		return InvalidBodyID, err
	}
	if err := w.session.requireRegistered(created.Type()); err != nil {
		return InvalidBodyID, err
	}
	if w.liveCount >= w.settings.MaxBodies {
		return InvalidBodyID, fmt.Errorf("%w: body limit %d reached", ErrCapacityExceeded, w.settings.MaxBodies)
	}

	body := actor.NewRigidBody(pose, created, motion, defaultDensity)
	layer := LayerNonMoving
	if motion == actor.MotionTypeDynamic {
		layer = LayerMoving
		body.Velocity = velocity
		body.PresolveVelocity = velocity
		body.Material.Restitution = restitution
	}

	index := w.allocSlot()
	slot := &w.slots[index]
	slot.body = body
	slot.layer = layer
	slot.userData = 0
	slot.state = slotLive
	slot.id = makeBodyID(index, slot.generation)
	w.liveCount++

	// Static geometry enters its partition immediately so stepping before
	// OptimizeBroadPhase stays correct, just unoptimized.
	if w.table.GetBroadPhaseLayer(layer) == BroadPhaseNonMoving {
		w.grids[BroadPhaseNonMoving].Insert(index, body.BoundingBox)
	}

	if motion == actor.MotionTypeDynamic {
		w.events.sleepStates[slot.id] = false
		if l := w.activationListener; l != nil && l.OnActivated != nil {
			l.OnActivated(slot.id, slot.userData)
		}
	}

	return slot.id, nil
}

func (w *World) allocSlot() uint32 {
	if n := len(w.freeList); n > 0 {
		index := w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
		return index
	}
	w.slots = append(w.slots, bodySlot{generation: 1})
	return uint32(len(w.slots) - 1)
}

// getSlot validates a handle against the registry. The caller holds either
// w.mu or the slot's stripe.
func (w *World) getSlot(id BodyID) (*bodySlot, error) {
	index := id.index()
	if int(index) >= len(w.slots) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, id)
	}
	slot := &w.slots[index]
	if slot.state == slotEmpty || slot.generation != id.generation() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, id)
	}
	return slot, nil
}

func (w *World) stripe(id BodyID) *sync.Mutex {
	return &w.stripes[int(id.index())%len(w.stripes)]
}

func (w *World) checkQueryable() error {
	switch w.state {
	case stateUnconfigured:
		return fmt.Errorf("%w: world is not configured", ErrInvalidOrdering)
	case stateShutDown:
		return fmt.Errorf("%w: world is shut down", ErrInvalidOrdering)
	}
	return nil
}

// QueryPose returns the body's pose. Valid for any non-destroyed handle.
func (w *World) QueryPose(id BodyID) (actor.Transform, error) {
	if err := w.checkQueryable(); err != nil {
		return actor.Transform{}, err
	}

	stripe := w.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	slot, err := w.getSlot(id)
	if err != nil {
		return actor.Transform{}, err
	}
	return slot.body.Transform, nil
}

// QueryVelocity returns the body's linear velocity.
func (w *World) QueryVelocity(id BodyID) (mgl64.Vec3, error) {
	if err := w.checkQueryable(); err != nil {
		return mgl64.Vec3{}, err
	}

	stripe := w.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	slot, err := w.getSlot(id)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return slot.body.Velocity, nil
}

// IsActive reports whether the body participates in integration. False for
// static bodies and for dynamic bodies that went to sleep; sleeping is
// expected, not an error.
func (w *World) IsActive(id BodyID) (bool, error) {
	if err := w.checkQueryable(); err != nil {
		return false, err
	}

	stripe := w.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	slot, err := w.getSlot(id)
	if err != nil {
		return false, err
	}
	return slot.state == slotLive &&
		slot.body.Motion == actor.MotionTypeDynamic &&
		!slot.body.IsSleeping, nil
}

// SetUserData attaches an opaque value to the body; it is echoed back in
// activation listener callbacks.
func (w *World) SetUserData(id BodyID, userData uint64) error {
	if err := w.checkQueryable(); err != nil {
		return err
	}

	stripe := w.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	slot, err := w.getSlot(id)
	if err != nil {
		return err
	}
	slot.userData = userData
	return nil
}

// NumBodies returns the count of live (non-destroyed) bodies.
func (w *World) NumBodies() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.liveCount
}

// RemoveBody unlinks the body from the broad phase and active simulation.
// The handle stays valid for queries until DestroyBody. Removing an already
// removed handle is a reported error, so double-free bugs surface early.
func (w *World) RemoveBody(id BodyID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkQueryable(); err != nil {
		return err
	}

	slot, err := w.getSlot(id)
	if err != nil {
		return err
	}
	if slot.state != slotLive {
		return fmt.Errorf("%w: %v is already removed", ErrInvalidHandle, id)
	}

	slot.state = slotRemoved
	w.events.forget(id, w.contactListener)
	return nil
}

// DestroyBody releases the handle's storage. The body must have been removed
// first; destroying twice yields ErrInvalidHandle.
func (w *World) DestroyBody(id BodyID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkQueryable(); err != nil {
		return err
	}

	slot, err := w.getSlot(id)
	if err != nil {
		return err
	}
	if slot.state != slotRemoved {
		return fmt.Errorf("%w: %v must be removed before destroy", ErrInvalidHandle, id)
	}

	slot.state = slotEmpty
	slot.body = nil
	slot.id = InvalidBodyID
	slot.generation++
	w.freeList = append(w.freeList, id.index())
	w.liveCount--
	return nil
}

// OptimizeBroadPhase rebuilds the static partition for efficient querying.
// Call it once after all bodies present at start have been added and before
// the first Step; stepping earlier degrades performance, not correctness.
func (w *World) OptimizeBroadPhase() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateConfigured && w.state != stateRunning {
		return fmt.Errorf("%w: world is not configured", ErrInvalidOrdering)
	}

	static := w.grids[BroadPhaseNonMoving]
	static.Clear()
	for index := range w.slots {
		slot := &w.slots[index]
		if slot.state != slotLive {
			continue
		}
		if w.table.GetBroadPhaseLayer(slot.layer) != BroadPhaseNonMoving {
			continue
		}
		static.Insert(uint32(index), slot.body.BoundingBox)
	}

	w.broadPhaseOptimized = true
	return nil
}

// Step advances all dynamic bodies by dt seconds, split into collisionSteps
// collision resolution passes. It blocks until all internal parallel work has
// completed; the temp allocator must not be shared with another in-flight
// step. Updated poses and velocities are readable immediately after return.
func (w *World) Step(dt float64, collisionSteps int, temp *TempAllocator, jobs *JobSystem) (StepResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case stateUnconfigured:
		return StepResult{}, fmt.Errorf("%w: Step before Configure", ErrInvalidOrdering)
	case stateShutDown:
		return StepResult{}, fmt.Errorf("%w: world is shut down", ErrInvalidOrdering)
	}

	assertf(dt >= 0, "Step: delta time %v must not be negative", dt)
	assertf(collisionSteps >= 1, "Step: collision steps %d must be at least 1", collisionSteps)
	assertf(temp != nil, "Step: temp allocator is required")
	assertf(jobs != nil, "Step: job system is required")

	if w.state == stateConfigured {
		if !w.broadPhaseOptimized {
			w.log.Warn("stepping before OptimizeBroadPhase; broad phase is unoptimized")
		}
		w.state = stateRunning
	}

	temp.Reset()

	var result StepResult
	h := dt / float64(collisionSteps)

	for i := 0; i < collisionSteps; i++ {
		w.integrate(h, jobs)

		pairs, err := w.findPairs(temp)
		if err != nil {
			return result, err
		}

		contacts, err := w.generateContacts(pairs, temp, jobs)
		if err != nil {
			return result, err
		}

		w.solveVelocity(h, contacts)
		w.solvePosition(h, contacts)
		w.trySleep(h)

		result.BodyPairs += len(pairs)
		result.Contacts += len(contacts)
	}

	w.stepCount++
	result.Step = w.stepCount

	w.dispatchEvents()
	return result, nil
}

// Steps returns the monotonic step counter.
func (w *World) Steps() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stepCount
}

func (w *World) integrate(h float64, jobs *JobSystem) {
	jobs.ParallelFor(len(w.slots), func(i int) {
		slot := &w.slots[i]
		if slot.state != slotLive || slot.body.Motion != actor.MotionTypeDynamic {
			return
		}
		slot.body.Integrate(h, w.gravity)
	})
}

// The solver phases run sequentially in sorted pair order. Contacts sharing a
// body do not commute; resolving them on workers would make the impulse order
// depend on scheduling and identical runs could diverge.
func (w *World) solveVelocity(h float64, contacts []contact) {
	for i := range contacts {
		contacts[i].constraint.SolveVelocity(h)
	}
}

func (w *World) solvePosition(h float64, contacts []contact) {
	for i := range contacts {
		contacts[i].constraint.SolvePosition(h)
	}
}

// trySleep is too cheap to fan out; it also keeps sleep transitions ordered.
func (w *World) trySleep(h float64) {
	for i := range w.slots {
		slot := &w.slots[i]
		if slot.state != slotLive || slot.body.Motion != actor.MotionTypeDynamic {
			continue
		}
		slot.body.TrySleep(h, sleepTimeThreshold, sleepVelocityThreshold)
	}
}

func (w *World) dispatchEvents() {
	w.events.dispatchContacts(w.contactListener)

	for i := range w.slots {
		slot := &w.slots[i]
		if slot.state != slotLive || slot.body.Motion != actor.MotionTypeDynamic {
			continue
		}
		w.events.observeSleepState(w.activationListener, slot.id, slot.userData, slot.body.IsSleeping)
	}
}

// shutDown is called by the owning session during teardown. Terminal.
func (w *World) shutDown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == stateShutDown {
		return
	}
	if w.liveCount > 0 {
		w.log.Warn("world shut down with live bodies; remove and destroy bodies before teardown",
			"liveBodies", w.liveCount)
	}
	w.state = stateShutDown
}
