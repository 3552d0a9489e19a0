// Stress test comparing CPU and GPU broad-phase pair finding.
package main

import (
	"fmt"
	"math/rand"
	"time"

	"helix3d/internal/math3d"
	"helix3d/internal/physics"
	"helix3d/internal/rhi"
)

func main() {
	dev, err := rhi.New(rhi.Options{FallbackToHeadless: true}, nil)
	if err != nil {
		panic(fmt.Sprintf("device init: %v", err))
	}
	defer dev.Release()

	info := dev.Adapter()
	fmt.Printf("GPU: %s | %s | %s\n\n", info.Backend, info.Vendor, info.Name)
	if dev.Headless() {
		fmt.Println("no adapter found, GPU timings reflect the headless stub")
	}

	for _, count := range []int{100, 500, 1000, 2000, 5000, 10000} {
		benchBroadPhase(dev, count)
	}
}

func benchBroadPhase(dev *rhi.Device, count int) {
	bodies := spawnBodies(count)

	bp, err := physics.NewComputeBroadPhase(dev, uint32(count), uint32(count*20))
	if err != nil {
		fmt.Printf("%6d bodies: gpu error: %v\n", count, err)
		return
	}
	defer bp.Release()

	// warm up pipelines and buffers
	if _, err := bp.Pairs(bodies); err != nil {
		fmt.Printf("%6d bodies: gpu error: %v\n", count, err)
		return
	}

	const iterations = 10
	gpuStart := time.Now()
	var gpuPairs int
	for i := 0; i < iterations; i++ {
		pairs, err := bp.Pairs(bodies)
		if err != nil {
			fmt.Printf("%6d bodies: gpu error: %v\n", count, err)
			return
		}
		gpuPairs = len(pairs)
	}
	gpuTime := time.Since(gpuStart) / iterations

	cpuStart := time.Now()
	var cpuPairs int
	for i := 0; i < iterations; i++ {
		cpuPairs = bruteForcePairs(bodies)
	}
	cpuTime := time.Since(cpuStart) / iterations

	fmt.Printf("%6d bodies: cpu %8s (%d pairs) | gpu %8s (%d pairs) | speedup %.1fx\n",
		count, cpuTime, cpuPairs, gpuTime, gpuPairs,
		float64(cpuTime)/float64(gpuTime))
}

// spawnBodies scatters spheres in a cube whose size scales with the count to
// keep the pair density comparable across runs.
func spawnBodies(count int) []*physics.RigidBody {
	w := physics.NewWorld(physics.DefaultSettings(), nil)
	rng := rand.New(rand.NewSource(42))
	size := 50.0 + float32(count)/100.0

	bodies := make([]*physics.RigidBody, count)
	for i := range bodies {
		pos := math3d.Vec3{
			X: rng.Float32()*size - size/2,
			Y: rng.Float32()*size - size/2,
			Z: rng.Float32()*size - size/2,
		}
		b := w.CreateBody(physics.Dynamic, pos)
		b.SetCollider(physics.NewSphereCollider(0.5 + rng.Float32()*0.5))
		bodies[i] = b
	}
	return bodies
}

// bruteForcePairs is the all-pairs bounding sphere check the GPU kernel runs,
// on one CPU core.
func bruteForcePairs(bodies []*physics.RigidBody) int {
	type sphere struct {
		center math3d.Vec3
		radius float32
	}
	spheres := make([]sphere, len(bodies))
	for i, b := range bodies {
		box := b.AABB()
		spheres[i] = sphere{center: box.Center(), radius: box.Extents().Length()}
	}

	pairs := 0
	for i := range spheres {
		for j := i + 1; j < len(spheres); j++ {
			d := spheres[i].center.Sub(spheres[j].center)
			sum := spheres[i].radius + spheres[j].radius
			if d.LengthSq() < sum*sum {
				pairs++
			}
		}
	}
	return pairs
}
