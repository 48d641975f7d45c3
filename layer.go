package grapple

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// previewAnim is the pair of axis tweens driving a snap-back flight.
type previewAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// PreviewLayer tracks the drag preview's on-screen position: following
// the pointer with a smoothing lerp while a drag is live, and flying back
// to a given origin when a gesture ends without a drop. It owns no
// drawing; render whatever the preview is at Position when Visible.
type PreviewLayer struct {
	x, y    float64
	targetX float64
	targetY float64
	visible bool

	followLerp float64

	anim         *previewAnim
	snapDuration float32
	snapEase     ease.TweenFunc
	onSnapDone   func()
}

func NewPreviewLayer() *PreviewLayer {
	return &PreviewLayer{
		followLerp:   0.35,
		snapDuration: 0.25,
		snapEase:     ease.OutQuad,
	}
}

// Show places the preview at p and makes it visible, cancelling any
// snap-back still in flight.
func (l *PreviewLayer) Show(p Point) {
	l.x, l.y = p.X, p.Y
	l.targetX, l.targetY = p.X, p.Y
	l.anim = nil
	l.onSnapDone = nil
	l.visible = true
}

// MoveTo sets the position the preview eases toward.
func (l *PreviewLayer) MoveTo(p Point) {
	l.targetX, l.targetY = p.X, p.Y
}

// Hide removes the preview immediately, cancelling any snap-back.
func (l *PreviewLayer) Hide() {
	l.visible = false
	l.anim = nil
	l.onSnapDone = nil
}

// SnapBack flies the preview from its current position back to origin,
// then hides it and calls done. done may be nil.
func (l *PreviewLayer) SnapBack(origin Point, done func()) {
	l.anim = &previewAnim{
		tweenX: gween.New(float32(l.x), float32(origin.X), l.snapDuration, l.snapEase),
		tweenY: gween.New(float32(l.y), float32(origin.Y), l.snapDuration, l.snapEase),
	}
	l.onSnapDone = done
	l.visible = true
}

// SetFollowLerp sets the per-frame fraction of the remaining distance the
// preview covers while following the pointer. 1 snaps instantly.
func (l *PreviewLayer) SetFollowLerp(f float64) {
	l.followLerp = f
}

// SetSnap configures the snap-back flight's duration and easing.
func (l *PreviewLayer) SetSnap(duration float32, fn ease.TweenFunc) {
	l.snapDuration = duration
	l.snapEase = fn
}

// Update advances the layer by dt seconds.
func (l *PreviewLayer) Update(dt float32) {
	if l.anim != nil {
		if !l.anim.doneX {
			v, done := l.anim.tweenX.Update(dt)
			l.x = float64(v)
			l.anim.doneX = done
		}
		if !l.anim.doneY {
			v, done := l.anim.tweenY.Update(dt)
			l.y = float64(v)
			l.anim.doneY = done
		}
		if l.anim.doneX && l.anim.doneY {
			l.anim = nil
			l.visible = false
			if l.onSnapDone != nil {
				fn := l.onSnapDone
				l.onSnapDone = nil
				fn()
			}
		}
		return
	}

	if !l.visible {
		return
	}
	l.x += (l.targetX - l.x) * l.followLerp
	l.y += (l.targetY - l.y) * l.followLerp
}

// Visible reports whether the preview should be drawn this frame.
func (l *PreviewLayer) Visible() bool {
	return l.visible
}

// Position returns the preview's current top-left position.
func (l *PreviewLayer) Position() Point {
	return Point{X: l.x, Y: l.y}
}
