// Package driver paces a simulation world from a render or main loop whose
// frame rate is not the physics rate.
package driver

import (
	"log/slog"

	"github.com/akmonengine/bounce"
	"github.com/akmonengine/bounce/actor"
)

// Config controls the stepping cadence.
type Config struct {
	// TickRate is the physics step frequency in Hz; 0 selects 60.
	TickRate float64
	// CollisionSteps is the substep count per Step; 0 selects 1.
	CollisionSteps int
}

func (c Config) withDefaults() Config {
	if c.TickRate <= 0 {
		c.TickRate = 60
	}
	if c.CollisionSteps <= 0 {
		c.CollisionSteps = 1
	}
	return c
}

// PoseSink receives republished poses of tracked bodies after each step.
type PoseSink func(id bounce.BodyID, pose actor.Transform)

type trackedBody struct {
	id        bounce.BodyID
	wasActive bool
}

// Driver steps a world at a fixed tick rate from a variable rate loop. It
// keeps ticking when every tracked body has gone to sleep; sleeping is the
// world's business, and a sleeping world steps cheaply.
type Driver struct {
	world *bounce.World
	temp  *bounce.TempAllocator
	jobs  *bounce.JobSystem

	cfg  Config
	log  *slog.Logger
	sink PoseSink

	tracked   []trackedBody
	tickTimer float64
	started   bool
}

// New creates a driver around a configured world. The temp allocator and job
// system are owned by the caller and shared with nothing else while the driver
// is in use.
func New(world *bounce.World, temp *bounce.TempAllocator, jobs *bounce.JobSystem, cfg Config) *Driver {
	return &Driver{
		world: world,
		temp:  temp,
		jobs:  jobs,
		cfg:   cfg.withDefaults(),
		log:   slog.Default(),
	}
}

// SetPoseSink installs the pose consumer, typically the render side.
func (d *Driver) SetPoseSink(sink PoseSink) {
	d.sink = sink
}

// Track adds a body whose pose is republished after every step.
func (d *Driver) Track(id bounce.BodyID) {
	d.tracked = append(d.tracked, trackedBody{id: id, wasActive: true})
}

// Untrack stops republishing a body, typically right before it is removed.
func (d *Driver) Untrack(id bounce.BodyID) {
	for i := range d.tracked {
		if d.tracked[i].id == id {
			d.tracked = append(d.tracked[:i], d.tracked[i+1:]...)
			return
		}
	}
}

// Tick advances the world by frameDelta seconds if at least one physics tick
// has elapsed since the previous step. now is the caller's monotonic clock in
// seconds. Returns whether a step ran.
//
// The step consumes the frame delta rather than a fixed quantum, so slow
// frames do not make the simulation fall behind wall time; the tick gate only
// stops fast frames from over-stepping.
func (d *Driver) Tick(now float64, frameDelta float64) (bool, error) {
	if !d.started {
		d.started = true
		d.tickTimer = now
		return false, nil
	}

	interval := 1.0 / d.cfg.TickRate
	if now-d.tickTimer <= interval {
		return false, nil
	}
	d.tickTimer = now

	result, err := d.world.Step(frameDelta, d.cfg.CollisionSteps, d.temp, d.jobs)
	if err != nil {
		return false, err
	}

	d.republish(result.Step)
	return true, nil
}

// republish pushes tracked poses to the sink and logs motion while a body is
// active. The transition to inactive is logged once, then the body goes quiet.
func (d *Driver) republish(step uint64) {
	for i := range d.tracked {
		t := &d.tracked[i]

		pose, err := d.world.QueryPose(t.id)
		if err != nil {
			d.log.Warn("tracked body query failed", "body", t.id, "error", err)
			continue
		}
		if d.sink != nil {
			d.sink(t.id, pose)
		}

		active, err := d.world.IsActive(t.id)
		if err != nil {
			continue
		}
		if active {
			velocity, _ := d.world.QueryVelocity(t.id)
			d.log.Info("step",
				"step", step,
				"body", t.id,
				"position", pose.Position,
				"velocity", velocity)
		} else if t.wasActive {
			d.log.Info("body settled", "step", step, "body", t.id, "position", pose.Position)
		}
		t.wasActive = active
	}
}
