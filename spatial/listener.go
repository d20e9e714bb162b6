// SPDX-License-Identifier: EPL-2.0

// Package spatial computes per-source stereo pan and distance attenuation
// relative to a listener.
package spatial

import "github.com/go-gl/mathgl/mgl32"

// CutoffDistance is the distance under which a source is treated as
// co-located with the listener: its attenuated volume is zeroed instead of
// spiking towards infinity, and its pan is centered.
const CutoffDistance = 1e-3

// Listener is the point of audition. The zero value is not usable; create
// listeners with NewListener.
type Listener struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Up       mgl32.Vec3

	// Last values computed by Update.
	PanLeft    float32
	PanRight   float32
	Attenuated float32
}

// NewListener returns a listener at the origin looking down -Z with +Y up,
// so +X is to its right.
func NewListener() Listener {
	return Listener{
		Forward: mgl32.Vec3{0, 0, -1},
		Up:      mgl32.Vec3{0, 1, 0},
	}
}

func (l *Listener) SetPosition(p mgl32.Vec3) {
	l.Position = p
}

// SetOrientation sets the forward and up vectors. They need not be
// normalized or exactly orthogonal.
func (l *Listener) SetOrientation(forward, up mgl32.Vec3) {
	l.Forward = forward
	l.Up = up
}

// Right is normalize(cross(forward, up)), or the zero vector for a
// degenerate orientation.
func (l *Listener) Right() mgl32.Vec3 {
	r := l.Forward.Cross(l.Up)
	n := r.Len()
	if n == 0 {
		return mgl32.Vec3{}
	}

	return r.Mul(1 / n)
}

// Update computes the linear pan law and inverse-distance attenuation for a
// source at sourcePos with the given base volume, stores them on the
// listener and returns them.
//
//	pan        = dot(normalize(source - listener), right)
//	left       = 0.5 - 0.5*pan
//	right      = 0.5 + 0.5*pan
//	attenuated = base / distance, 0 below CutoffDistance
func (l *Listener) Update(sourcePos mgl32.Vec3, baseVolume float32) (left, right, attenuated float32) {
	dir := sourcePos.Sub(l.Position)
	dist := dir.Len()

	var pan float32
	if dist < CutoffDistance {
		attenuated = 0
	} else {
		attenuated = baseVolume / dist
		pan = dir.Mul(1 / dist).Dot(l.Right())
	}

	pan = mgl32.Clamp(pan, -1, 1)
	left = 0.5 - 0.5*pan
	right = 0.5 + 0.5*pan

	l.PanLeft, l.PanRight, l.Attenuated = left, right, attenuated

	return left, right, attenuated
}

// Gains fills dst with per-channel gains for an interleaved layout: even
// channels take the left weight, odd channels the right one. A mono layout
// gets the attenuation only.
func (l *Listener) Gains(dst []float32, sourcePos mgl32.Vec3, baseVolume, scale float32) {
	left, right, att := l.Update(sourcePos, baseVolume)

	if len(dst) == 1 {
		dst[0] = att * scale
		return
	}
	for c := range dst {
		if c%2 == 0 {
			dst[c] = left * att * scale
		} else {
			dst[c] = right * att * scale
		}
	}
}
