package bounce

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/akmonengine/bounce/actor"
)

// TraceFunc receives diagnostic messages from the engine.
type TraceFunc func(format string, args ...any)

// AssertFunc receives precondition violations (programmer errors). The
// default handler logs and panics; a corrupted step count poisons all
// subsequent state, so there is no partial recovery.
type AssertFunc func(message string)

// Trace is the installed diagnostic callback. NewSession installs the
// default slog-backed hook; embedders can swap in their own.
var Trace TraceFunc = defaultTrace

// AssertFailed is the installed assertion handler.
var AssertFailed AssertFunc = defaultAssert

func defaultTrace(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...))
}

func defaultAssert(message string) {
	slog.Error("assertion failed", "message", message)
	panic("bounce: " + message)
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		AssertFailed(fmt.Sprintf(format, args...))
	}
}

// sessionActive enforces a single live session per process; the type
// registrations behind it are process-wide state.
var sessionActive atomic.Bool

// Session owns the process-wide physics state: the diagnostic hooks, the
// shape type factory and every World created from it. Setup order is fixed
// (hooks, then factory, then type registration) and teardown runs in exact
// reverse. Any physics operation outside the [NewSession, Close] window
// fails fast with ErrInvalidOrdering.
type Session struct {
	mu      sync.Mutex
	factory *shapeFactory
	worlds  []*World
	closed  bool
	log     *slog.Logger
}

// NewSession initialises the global physics state. Only one session can be
// live at a time; a second call before Close is refused.
func NewSession() (*Session, error) {
	if !sessionActive.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: a physics session is already active", ErrInvalidOrdering)
	}

	// Install diagnostic callbacks before anything else can trip them.
	if Trace == nil {
		Trace = defaultTrace
	}
	if AssertFailed == nil {
		AssertFailed = defaultAssert
	}

	s := &Session{
		factory: newShapeFactory(),
		log:     slog.Default(),
	}
	s.factory.registerBuiltinTypes()

	Trace("physics session initialised, %d shape types registered", s.factory.numRegistered())
	return s, nil
}

// NewWorld creates an unconfigured world owned by this session.
func (s *Session) NewWorld() (*World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: session is closed", ErrInvalidOrdering)
	}

	w := newWorld(s)
	s.worlds = append(s.worlds, w)
	return w, nil
}

// Close tears the session down in reverse dependency order: worlds are shut
// down first, then shape types are unregistered, then the factory is
// dropped. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for _, w := range s.worlds {
		w.shutDown()
	}
	s.worlds = nil

	s.factory.unregisterAll()
	s.factory = nil

	s.closed = true
	sessionActive.Store(false)
	Trace("physics session closed")
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// requireRegistered checks a shape type against the factory. Creating bodies
// with unregistered types (or after teardown) is refused rather than left to
// operate on stale global state.
func (s *Session) requireRegistered(shapeType actor.ShapeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.factory == nil {
		return fmt.Errorf("%w: session is closed", ErrInvalidOrdering)
	}
	if !s.factory.isRegistered(shapeType) {
		return fmt.Errorf("%w: shape type %v is not registered", ErrInvalidOrdering, shapeType)
	}
	return nil
}

// shapeFactory is the type registry: shape kinds the engine can instantiate
// and simulate. It replaces a process-wide singleton with a value owned by
// the session.
type shapeFactory struct {
	registered map[actor.ShapeType]string
}

func newShapeFactory() *shapeFactory {
	return &shapeFactory{registered: make(map[actor.ShapeType]string)}
}

func (f *shapeFactory) registerBuiltinTypes() {
	f.registered[actor.ShapeTypeSphere] = actor.ShapeTypeSphere.String()
	f.registered[actor.ShapeTypeBox] = actor.ShapeTypeBox.String()
}

func (f *shapeFactory) unregisterAll() {
	clear(f.registered)
}

func (f *shapeFactory) isRegistered(shapeType actor.ShapeType) bool {
	_, ok := f.registered[shapeType]
	return ok
}

func (f *shapeFactory) numRegistered() int {
	return len(f.registered)
}
