package gui

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/engine"
	"github.com/san-kum/spheresim/internal/experiment"
	"github.com/san-kum/spheresim/internal/physics"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
)

const (
	orbitStep    = 0.05
	maxTelemetry = 300
	sphereRings  = 8
	sphereSlices = 8
)

// App is a raylib window that serves as the engine's message pump and
// renderer.
type App struct {
	cfg      *config.Config
	Camera   rl.Camera3D
	Font     rl.Font
	yaw      float64
	pitch    float64
	distance float64
	extent   float64

	// Telemetry holds the collisions per rendered frame.
	Telemetry []float64
	order     []int
}

func NewApp(cfg *config.Config) *App {
	rl.InitWindow(int32(cfg.Render.Width), int32(cfg.Render.Height), "spheresim :: "+cfg.Scenario)
	rl.SetTargetFPS(int32(cfg.Render.FPS))
	rl.SetExitKey(0)

	a := &App{
		cfg: cfg,
		Camera: rl.NewCamera3D(
			rl.NewVector3(0, 0, float32(cfg.Render.CameraDistance)),
			rl.NewVector3(0, 0, 0),
			rl.NewVector3(0, 1, 0),
			45.0,
			rl.CameraPerspective,
		),
		Font:      rl.GetFontDefault(),
		distance:  cfg.Render.CameraDistance,
		extent:    math.Max(cfg.Spawn.Extent, 1),
		Telemetry: make([]float64, 0, maxTelemetry),
	}
	a.updateCamera()
	return a
}

func (a *App) Close() {
	rl.CloseWindow()
}

// PumpMessage reports Quit when the window is closing, MoreInput when a
// key was handled and NoInput otherwise.
func (a *App) PumpMessage() engine.PumpResult {
	if rl.WindowShouldClose() || rl.IsKeyPressed(rl.KeyQ) || rl.IsKeyPressed(rl.KeyEscape) {
		return engine.Quit
	}

	handled := false
	step := func(down bool, apply func()) {
		if down {
			apply()
			handled = true
		}
	}
	step(rl.IsKeyDown(rl.KeyLeft), func() { a.yaw -= orbitStep })
	step(rl.IsKeyDown(rl.KeyRight), func() { a.yaw += orbitStep })
	step(rl.IsKeyDown(rl.KeyUp), func() { a.pitch = math.Min(a.pitch+orbitStep, math.Pi/2-0.01) })
	step(rl.IsKeyDown(rl.KeyDown), func() { a.pitch = math.Max(a.pitch-orbitStep, -math.Pi/2+0.01) })
	step(rl.IsKeyDown(rl.KeyEqual) || rl.IsKeyDown(rl.KeyKpAdd), func() { a.distance = math.Max(a.distance/1.02, 1) })
	step(rl.IsKeyDown(rl.KeyMinus) || rl.IsKeyDown(rl.KeyKpSubtract), func() { a.distance *= 1.02 })
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.distance = math.Max(a.distance*math.Pow(0.9, float64(wheel)), 1)
		handled = true
	}

	if !handled {
		return engine.NoInput
	}
	a.updateCamera()
	return engine.MoreInput
}

func (a *App) eye() mgl64.Vec3 {
	return mgl64.Vec3{
		a.distance * math.Cos(a.pitch) * math.Sin(a.yaw),
		a.distance * math.Sin(a.pitch),
		a.distance * math.Cos(a.pitch) * math.Cos(a.yaw),
	}
}

func (a *App) updateCamera() {
	a.Camera.Position = vec3(a.eye())
}

// Render draws the snapshot far to near, then the HUD.
func (a *App) Render(objects []physics.Object, stats physics.FrameStats) error {
	a.Telemetry = append(a.Telemetry, float64(stats.Collisions))
	if len(a.Telemetry) > maxTelemetry {
		a.Telemetry = a.Telemetry[1:]
	}

	eye := a.eye()
	a.order = a.order[:0]
	for i := range objects {
		a.order = append(a.order, i)
	}
	sort.Slice(a.order, func(i, j int) bool {
		di := objects[a.order[i]].Position.Sub(eye).LenSqr()
		dj := objects[a.order[j]].Position.Sub(eye).LenSqr()
		return di > dj
	})

	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(a.Camera)
	size := float32(2 * a.extent)
	rl.DrawCubeWires(rl.NewVector3(0, 0, 0), size, size, size, ColGrid)
	for _, i := range a.order {
		o := objects[i]
		rl.DrawSphereEx(vec3(o.Position), float32(o.Radius), sphereRings, sphereSlices, color(o.Color))
	}
	rl.EndMode3D()

	a.DrawHUD(len(objects), stats)
	rl.EndDrawing()
	return nil
}

func (a *App) DrawHUD(objects int, stats physics.FrameStats) {
	a.drawText("spheresim", 30, 30, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s", a.cfg.Scenario), 170, 34, 16, ColText)

	y := 70
	for _, line := range []string{
		fmt.Sprintf("objects    %d", objects),
		fmt.Sprintf("pairs      %d", stats.Collisions),
		fmt.Sprintf("resolved   %d", stats.Resolved),
		fmt.Sprintf("tree       %d nodes / depth %d", stats.TreeNodes, stats.TreeDepth),
		fmt.Sprintf("frame      %v", stats.Total),
	} {
		a.drawText(line, 30, y, 14, ColAccent)
		y += 18
	}

	a.DrawTelemetry()

	h := int(rl.GetScreenHeight())
	w := int(rl.GetScreenWidth())
	a.drawText("[ARROWS] ORBIT  [+/-] ZOOM  [Q] QUIT", w-380, h-40, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, h-40, 14, ColTextDim)
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}

func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}

	rectX, rectY := 30, int(rl.GetScreenHeight())-130
	width, height := 400, 60

	minVal, maxVal := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, val := range a.Telemetry {
		px := float32(rectX) + (float32(i)/float32(len(a.Telemetry)))*float32(width)
		norm := (val - minVal) / (maxVal - minVal)
		py := float32(rectY+height) - float32(norm)*float32(height)
		points[i] = rl.NewVector2(px, py)
	}

	rl.DrawLineStrip(points, ColAccent)
	a.drawText(fmt.Sprintf("pairs: %.0f", a.Telemetry[len(a.Telemetry)-1]), rectX+width+10, rectY+height-10, 14, ColText)
}

func vec3(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v.X()), float32(v.Y()), float32(v.Z()))
}

func color(c mgl64.Vec4) rl.Color {
	channel := func(v float64) uint8 {
		return uint8(mgl64.Clamp(v, 0, 1)*255 + 0.5)
	}
	return rl.NewColor(channel(c.X()), channel(c.Y()), channel(c.Z()), channel(c.W()))
}

// Run opens a window on the configured scenario and drives it with the
// wall-clock engine loop until the window closes.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	exp := experiment.New(cfg, nil)
	if err := exp.Setup(); err != nil {
		return err
	}
	defer exp.Close()

	app := NewApp(cfg)
	defer app.Close()
	logger.Printf("gui: %s with %d spheres on %d workers", cfg.Scenario, exp.Manager().Len(), exp.Manager().Config().Workers)

	opts := engine.DefaultOptions()
	opts.RenderInterval = time.Duration(cfg.RenderInterval() * float64(time.Second))
	opts.Logger = logger
	return engine.New(exp.Manager(), app, app, opts).Run(ctx)
}
