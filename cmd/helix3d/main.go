// Demo: a physics scene stepped at a fixed rate and presented through the
// render graph. Runs windowed against the GPU, or headless with -headless.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"helix3d/internal/camera"
	"helix3d/internal/config"
	"helix3d/internal/logger"
	"helix3d/internal/math3d"
	"helix3d/internal/physics"
	"helix3d/internal/rendergraph"
	"helix3d/internal/rhi"
	"helix3d/internal/scene"
	"helix3d/internal/window"
)

func main() {
	configPath := flag.String("config", "", "path to helix3d.yaml")
	headless := flag.Bool("headless", false, "run without a window")
	frames := flag.Int("frames", 0, "exit after this many frames (0 = run until closed)")
	flag.Parse()

	if err := run(*configPath, *headless, *frames); err != nil {
		fmt.Fprintln(os.Stderr, "helix3d:", err)
		os.Exit(1)
	}
}

func run(configPath string, headless bool, frames int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if headless {
		cfg.Graphics.Headless = true
	}

	log := logger.New(cfg.Logging.Level, logger.FileConfig{Path: cfg.Logging.LogFile}, true)
	defer log.Sync()

	var win *window.Window
	opts := rhi.Options{
		Headless:           cfg.Graphics.Headless,
		HighPerformance:    cfg.Graphics.HighPerformance,
		FallbackToHeadless: true,
	}
	if !cfg.Graphics.Headless {
		win, err = window.New(cfg.Graphics.Title, cfg.Graphics.Width, cfg.Graphics.Height)
		if err != nil {
			return err
		}
		defer win.Destroy()
		opts.Surface = win.SurfaceDescriptor()
	}

	dev, err := rhi.New(opts, log)
	if err != nil {
		return err
	}
	defer dev.Release()

	width, height := cfg.Graphics.Width, cfg.Graphics.Height
	if win != nil {
		width, height = win.Size()
	}
	sc, err := dev.CreateSwapchain(rhi.SwapchainDesc{
		Width:  uint32(width),
		Height: uint32(height),
		VSync:  cfg.Graphics.VSync,
	})
	if err != nil {
		return err
	}
	if win != nil {
		win.SetResizeCallback(func(w, h int) {
			if w > 0 && h > 0 {
				if err := sc.Resize(uint32(w), uint32(h)); err != nil {
					log.Warn("swapchain resize failed", zap.Error(err))
				}
			}
		})
	}

	world, stage := buildScene(cfg, dev, log)
	cam := camera.New(math3d.Vec3{X: 12, Y: 9, Z: 12})

	graph := rendergraph.New(dev, log)
	defer graph.Release()

	log.Info("scene ready",
		zap.Int("bodies", world.BodyCount()),
		zap.Int("entities", len(stage.Entities())))

	start := time.Now()
	last := start
	for frame := 0; ; frame++ {
		if frames > 0 && frame >= frames {
			break
		}
		if win != nil {
			win.Poll()
			if win.ShouldClose() {
				break
			}
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		dev.BeginFrame()
		stage.CapturePrevious()
		world.Step(dt)
		stage.SyncFromPhysics(world.Alpha())

		aspect := float32(sc.Width()) / float32(sc.Height())
		frustum := camera.ExtractFrustum(cam.ViewProjection(aspect))
		visible := 0
		for _, e := range stage.Entities() {
			if e.Body != nil && frustum.ContainsAABB(e.Body.AABB()) {
				visible++
			}
		}
		if frame%300 == 0 {
			log.Debug("frame",
				zap.Int("visible", visible),
				zap.Int("entities", len(stage.Entities())))
		}

		if err := renderFrame(graph, sc, cam, aspect, float32(now.Sub(start).Seconds())); err != nil {
			return err
		}
	}

	log.Info("shutting down", zap.Uint64("frames", dev.Frame()))
	return nil
}

// buildScene drops a pile of boxes and spheres onto a ground plane.
func buildScene(cfg *config.Config, dev *rhi.Device, log *zap.Logger) (*physics.World, *scene.Scene) {
	settings := physics.DefaultSettings()
	settings.Gravity = math3d.Vec3{Y: cfg.Physics.GravityY}
	settings.FixedTimeStep = cfg.Physics.FixedTimeStep
	settings.VelocityIterations = cfg.Physics.VelocityIterations
	settings.PositionIterations = cfg.Physics.PositionIterations
	settings.DisableSleeping = !cfg.Physics.SleepEnabled
	settings.SleepTime = cfg.Physics.SleepTime
	settings.GPUBroadPhaseThreshold = cfg.Physics.GPUBroadPhaseMinCount
	world := physics.NewWorld(settings, log)

	if cfg.Physics.GPUBroadPhase && !dev.Headless() {
		bp, err := physics.NewComputeBroadPhase(dev, uint32(cfg.Physics.GPUBroadPhaseBodies), 0)
		if err != nil {
			log.Warn("gpu broadphase unavailable", zap.Error(err))
		} else {
			world.SetGPUBroadPhase(bp)
		}
	}

	stage := scene.New("demo")

	ground := world.CreateBody(physics.Static, math3d.Zero3)
	ground.SetCollider(physics.NewPlaneCollider(math3d.Up))
	stage.Spawn("ground").AttachBody(ground)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 48; i++ {
		pos := math3d.Vec3{
			X: rng.Float32()*8 - 4,
			Y: 3 + float32(i)*0.6,
			Z: rng.Float32()*8 - 4,
		}
		body := world.CreateBody(physics.Dynamic, pos)
		var name string
		if i%2 == 0 {
			body.SetCollider(physics.NewSphereCollider(0.3 + rng.Float32()*0.3))
			name = fmt.Sprintf("sphere-%d", i)
		} else {
			half := 0.25 + rng.Float32()*0.25
			body.SetCollider(physics.NewBoxCollider(math3d.Vec3{X: half, Y: half, Z: half}))
			name = fmt.Sprintf("box-%d", i)
		}
		stage.Spawn(name).AttachBody(body)
	}
	return world, stage
}

// renderFrame clears the back buffer to a slowly shifting color and presents.
func renderFrame(graph *rendergraph.Graph, sc *rhi.Swapchain, cam *camera.Camera, aspect, elapsed float32) error {
	back, err := sc.Acquire()
	if err != nil {
		return err
	}
	target := graph.ImportBackBuffer(back)

	vp := cam.ViewProjection(aspect)
	graph.SetParam("camera", rhi.ToBytes(vp[:]))
	graph.SetParam("time", rhi.ToBytes([]float32{elapsed, 0, 0, 0}))

	graph.Reset()
	graph.AddClearPass("clear", target, rhi.Color{
		R: 0.1,
		G: 0.1 + 0.05*float64(math32.Sin(elapsed)),
		B: 0.25,
		A: 1,
	}, rendergraph.InvalidHandle)

	if err := graph.Execute(); err != nil {
		return err
	}
	return sc.Present()
}
