package physics

import (
	"github.com/chewxy/math32"

	"go.uber.org/zap"
)

// bodyPair is a broadphase candidate, a.ID < b.ID.
type bodyPair struct {
	a, b *RigidBody
}

// GPUBroadPhase finds overlapping body pairs on the GPU. Implementations
// return candidate index pairs into the bodies slice; exact filtering still
// runs on the CPU afterwards.
type GPUBroadPhase interface {
	Pairs(bodies []*RigidBody) ([][2]int, error)
}

// broadphaseCellSize is the spatial hash cell edge. Bodies larger than a cell
// register in every cell their bounds touch.
const broadphaseCellSize float32 = 4.0

// broadphaseMaxCellSpan caps how many cells a body may occupy per axis.
// Bodies beyond it (planes, huge meshes) skip the hash and pair directly.
const broadphaseMaxCellSpan int32 = 64

type cellKey struct {
	x, y, z int32
}

// broadphase returns candidate pairs whose AABBs overlap, filtered by layer
// masks. Static-static and sleeping-sleeping pairs are rejected here.
func (w *World) broadphase() []bodyPair {
	w.pairBuf = w.pairBuf[:0]
	n := len(w.bodies)
	if n < 2 {
		return w.pairBuf
	}

	if w.gpuBroadphase != nil && n >= w.Settings.GPUBroadPhaseThreshold {
		pairs, err := w.gpuBroadphase.Pairs(w.bodies)
		if err == nil {
			for _, p := range pairs {
				a, b := w.bodies[p[0]], w.bodies[p[1]]
				if w.acceptPair(a, b) {
					w.pairBuf = append(w.pairBuf, orderPair(a, b))
				}
			}
			return w.pairBuf
		}
		w.log.Warn("gpu broadphase failed, using cpu sweep", zap.Error(err))
	}

	// spatial hash: insert each body into every cell its AABB touches, then
	// pair up within cells. The seen set dedupes bodies spanning cells.
	// Bodies whose bounds span too many cells (planes, huge meshes) never
	// enter the hash; they pair directly against everything below.
	cells := make(map[cellKey][]int, n)
	seen := make(map[pairKey]struct{}, n)
	var large []int

	for i, b := range w.bodies {
		box := b.AABB()
		minC := toCell(box.Min.X, box.Min.Y, box.Min.Z)
		maxC := toCell(box.Max.X, box.Max.Y, box.Max.Z)
		if maxC.x-minC.x > broadphaseMaxCellSpan ||
			maxC.y-minC.y > broadphaseMaxCellSpan ||
			maxC.z-minC.z > broadphaseMaxCellSpan {
			large = append(large, i)
			continue
		}
		for x := minC.x; x <= maxC.x; x++ {
			for y := minC.y; y <= maxC.y; y++ {
				for z := minC.z; z <= maxC.z; z++ {
					key := cellKey{x, y, z}
					cells[key] = append(cells[key], i)
				}
			}
		}
	}

	for _, li := range large {
		a := w.bodies[li]
		for j, b := range w.bodies {
			if j == li {
				continue
			}
			key := makePairKey(a.ID, b.ID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if !w.acceptPair(a, b) {
				continue
			}
			if !a.AABB().Intersects(b.AABB()) {
				continue
			}
			w.pairBuf = append(w.pairBuf, orderPair(a, b))
		}
	}

	for _, indices := range cells {
		for i := 0; i < len(indices); i++ {
			for j := i + 1; j < len(indices); j++ {
				a, b := w.bodies[indices[i]], w.bodies[indices[j]]
				key := makePairKey(a.ID, b.ID)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				if !w.acceptPair(a, b) {
					continue
				}
				if !a.AABB().Intersects(b.AABB()) {
					continue
				}
				w.pairBuf = append(w.pairBuf, orderPair(a, b))
			}
		}
	}
	return w.pairBuf
}

// acceptPair applies the cheap rejections shared by both broadphase paths.
func (w *World) acceptPair(a, b *RigidBody) bool {
	if a.Type != Dynamic && b.Type != Dynamic {
		return false
	}
	if a.sleeping && b.sleeping {
		return false
	}
	if (a.sleeping && b.Type == Static) || (b.sleeping && a.Type == Static) {
		return false
	}
	if a.Collider == nil || b.Collider == nil {
		return false
	}
	return a.Collider.CanCollideWith(b.Collider)
}

func orderPair(a, b *RigidBody) bodyPair {
	if a.ID > b.ID {
		a, b = b, a
	}
	return bodyPair{a: a, b: b}
}

func toCell(x, y, z float32) cellKey {
	return cellKey{
		x: int32(math32.Floor(x / broadphaseCellSize)),
		y: int32(math32.Floor(y / broadphaseCellSize)),
		z: int32(math32.Floor(z / broadphaseCellSize)),
	}
}
