// A sphere dropped onto a static floor box. Physics runs at a fixed tick rate
// while raylib renders as fast as it likes; the ball bounces, rolls, settles
// and goes to sleep, all reported through the logging listeners.
package main

import (
	"fmt"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/bounce"
	"github.com/akmonengine/bounce/actor"
	"github.com/akmonengine/bounce/driver"
)

const (
	screenWidth  = 1366
	screenHeight = 768

	physicsTickRate = 60.0
	targetFPS       = 60

	ballRadius      = 0.5
	ballRestitution = 0.8

	debugScaleUp = 1.5
)

var ballColors = [...]rl.Color{
	rl.Red,
	rl.Orange,
	rl.Yellow,
	rl.Green,
	rl.SkyBlue,
	{R: 75, G: 0, B: 130, A: 255}, // indigo
	rl.Violet,
}

// main delegates to run so a fatal error still unwinds through the deferred
// teardown before the process exits.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	session, err := bounce.NewSession()
	if err != nil {
		return fmt.Errorf("session init failed: %w", err)
	}
	defer session.Close()

	world, err := session.NewWorld()
	if err != nil {
		return fmt.Errorf("world creation failed: %w", err)
	}

	table := bounce.NewBroadPhaseLayerTable()
	objectFilter := bounce.DefaultObjectLayerPairFilter()
	broadPhaseFilter := bounce.DefaultObjectVsBroadPhaseLayerFilter()

	err = world.Configure(bounce.Settings{
		MaxBodies:             1024,
		NumBodyMutexes:        0,
		MaxBodyPairs:          1024,
		MaxContactConstraints: 1024,
	}, table, objectFilter, broadPhaseFilter)
	if err != nil {
		return fmt.Errorf("world configuration failed: %w", err)
	}

	world.SetContactListener(bounce.NewLoggingContactListener(nil))
	world.SetBodyActivationListener(bounce.NewLoggingBodyActivationListener(nil))

	floorID, err := world.AddStaticBody(
		actor.BoxSettings{HalfExtents: mgl64.Vec3{5, 1, 5}},
		actor.TransformAt(mgl64.Vec3{0, -1, 0}))
	if err != nil {
		return fmt.Errorf("floor creation failed: %w", err)
	}

	ballID, err := world.AddDynamicBody(
		actor.SphereSettings{Radius: ballRadius},
		actor.TransformAt(mgl64.Vec3{0, 10, 0}),
		mgl64.Vec3{0.5, 0, 0},
		ballRestitution)
	if err != nil {
		return fmt.Errorf("ball creation failed: %w", err)
	}

	if err := world.OptimizeBroadPhase(); err != nil {
		return fmt.Errorf("broad phase optimization failed: %w", err)
	}

	jobs := bounce.NewJobSystem(0)
	defer jobs.Close()
	temp := bounce.NewTempAllocator(0)

	drv := driver.New(world, temp, jobs, driver.Config{
		TickRate:       physicsTickRate,
		CollisionSteps: 1,
	})
	drv.Track(ballID)

	ballPosition := mgl64.Vec3{0, 10, 0}
	drv.SetPoseSink(func(id bounce.BodyID, pose actor.Transform) {
		if id == ballID {
			ballPosition = pose.Position
		}
	})

	rl.SetConfigFlags(rl.FlagMsaa4xHint)
	rl.InitWindow(screenWidth, screenHeight, "bounce")
	defer rl.CloseWindow()
	rl.SetTargetFPS(targetFPS)

	camera := rl.Camera3D{
		Position:   rl.NewVector3(0, 10, 10),
		Target:     rl.NewVector3(0, 0, 0),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	debugTexture := rl.LoadRenderTexture(screenWidth, screenHeight)
	defer rl.UnloadRenderTexture(debugTexture)

	debugView := false
	colorIndex := 0

	for !rl.WindowShouldClose() {
		if _, err := drv.Tick(rl.GetTime(), float64(rl.GetFrameTime())); err != nil {
			return fmt.Errorf("simulation step failed: %w", err)
		}

		if rl.IsKeyPressed(rl.KeyF9) {
			debugView = !debugView
		}
		for key := range ballColors {
			if rl.IsKeyPressed(rl.KeyOne + int32(key)) {
				colorIndex = key
			}
		}

		if debugView {
			rl.BeginTextureMode(debugTexture)
			drawScene(camera, ballPosition, ballColors[colorIndex])
			rl.EndTextureMode()

			rl.BeginDrawing()
			rl.ClearBackground(rl.Black)
			drawScaled(debugTexture)
			rl.DrawText("debug view (F9 to exit)", 10, 34, 20, rl.Lime)
			rl.EndDrawing()
			continue
		}

		rl.BeginDrawing()
		drawScene(camera, ballPosition, ballColors[colorIndex])
		rl.DrawFPS(10, 10)
		rl.DrawText("1-7: ball color, F9: debug view", 10, 34, 20, rl.DarkGray)
		rl.EndDrawing()
	}

	// Teardown runs unconditionally: remove and destroy every body, then the
	// session closes in reverse setup order.
	drv.Untrack(ballID)
	for _, id := range []bounce.BodyID{ballID, floorID} {
		if err := world.RemoveBody(id); err != nil {
			slog.Warn("body removal failed", "body", id, "error", err)
			continue
		}
		if err := world.DestroyBody(id); err != nil {
			slog.Warn("body destruction failed", "body", id, "error", err)
		}
	}
	return nil
}

func drawScene(camera rl.Camera3D, ballPosition mgl64.Vec3, ballColor rl.Color) {
	rl.ClearBackground(rl.RayWhite)

	rl.BeginMode3D(camera)
	rl.DrawCube(rl.NewVector3(0, -1, 0), 10, 2, 10, rl.LightGray)
	rl.DrawCubeWires(rl.NewVector3(0, -1, 0), 10, 2, 10, rl.Gray)
	rl.DrawSphere(toRaylib(ballPosition), ballRadius, ballColor)
	rl.DrawGrid(10, 1.0)
	rl.EndMode3D()
}

// drawScaled blits the debug render texture enlarged around the screen
// center. Render textures are y-flipped, hence the negative source height.
func drawScaled(texture rl.RenderTexture2D) {
	src := rl.NewRectangle(0, 0, float32(texture.Texture.Width), -float32(texture.Texture.Height))
	dst := rl.NewRectangle(
		screenWidth*(1-debugScaleUp)/2,
		screenHeight*(1-debugScaleUp)/2,
		screenWidth*debugScaleUp,
		screenHeight*debugScaleUp)
	rl.DrawTexturePro(texture.Texture, src, dst, rl.NewVector2(0, 0), 0, rl.White)
}

func toRaylib(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v.X()), float32(v.Y()), float32(v.Z()))
}
