package grapple

import (
	"io"
	"io/fs"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Pointer movement below this distance from the press point stays a click.
const defaultDragDeadZone = 4.0

// frameInput is one frame's worth of pointer state, read live from ebiten
// or popped from the injection queue.
type frameInput struct {
	x, y    float64
	pressed bool
	mods    KeyModifiers
	dropped []File
}

// Driver turns per-frame pointer state into the drag event stream a
// Backend consumes. It presses, measures the dead zone, runs the drag
// gesture, and synthesizes the event burst for files dropped onto the
// window from outside.
//
// Call Update once per frame. For tests and replays, frames can be
// injected; injected frames are consumed one per Update, in order, each
// replacing the live pointer for that frame.
type Driver struct {
	doc      *Document
	deadZone float64

	// Gesture state.
	down        bool
	dragging    bool
	dragVetoed  bool
	startX      float64
	startY      float64
	lastX       float64
	lastY       float64
	pressEl     *Element
	sourceEl    *Element
	hoverEl     *Element
	transfer    *DataTransfer
	dropAllowed bool

	injectQueue   []frameInput
	injectPressed bool
	injectMods    KeyModifiers

	script *ScriptRunner
}

// NewDriver creates a driver feeding doc's event tree.
func NewDriver(doc *Document) *Driver {
	return &Driver{doc: doc, deadZone: defaultDragDeadZone}
}

// SetDragDeadZone sets how far the pointer must travel from the press
// point before a drag gesture begins.
func (d *Driver) SetDragDeadZone(px float64) {
	d.deadZone = px
}

// Update advances the driver by one frame: consumes the next injected
// frame or reads the live pointer, dispatches the events that frame
// implies, then pumps the document's scheduler.
func (d *Driver) Update() {
	if d.script != nil {
		d.script.step(d)
	}

	if len(d.injectQueue) > 0 {
		in := d.injectQueue[0]
		copy(d.injectQueue, d.injectQueue[1:])
		d.injectQueue[len(d.injectQueue)-1] = frameInput{}
		d.injectQueue = d.injectQueue[:len(d.injectQueue)-1]
		d.processFrame(in)
	} else {
		d.processFrame(d.liveFrame())
	}

	tps := ebiten.TPS()
	if tps <= 0 {
		tps = 60
	}
	d.doc.Step(time.Second / time.Duration(tps))
}

func (d *Driver) liveFrame() frameInput {
	x, y := ebiten.CursorPosition()
	in := frameInput{
		x:       float64(x),
		y:       float64(y),
		pressed: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		mods:    readModifiers(),
	}
	if files := ebiten.DroppedFiles(); files != nil {
		in.dropped = collectDroppedFiles(files)
	}
	return in
}

func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

// collectDroppedFiles flattens the filesystem ebiten exposes for files
// dropped onto the window. Contents are opened lazily so listing a large
// drop reads nothing.
func collectDroppedFiles(fsys fs.FS) []File {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil
	}
	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, File{
			Name: name,
			Size: size,
			Open: func() (io.ReadCloser, error) { return fsys.Open(name) },
		})
	}
	return files
}

// --- Frame injection ---

// InjectPress queues a frame with the pointer pressed at (x, y).
func (d *Driver) InjectPress(x, y float64) {
	d.injectPressed = true
	d.injectFrame(x, y, nil)
}

// InjectMove queues a frame with the pointer at (x, y), keeping the
// press state of the previously queued frame.
func (d *Driver) InjectMove(x, y float64) {
	d.injectFrame(x, y, nil)
}

// InjectRelease queues a frame with the pointer released at (x, y).
func (d *Driver) InjectRelease(x, y float64) {
	d.injectPressed = false
	d.injectFrame(x, y, nil)
}

// InjectClick is a convenience that queues a press followed by a release
// at the same coordinates. Consumes two frames.
func (d *Driver) InjectClick(x, y float64) {
	d.InjectPress(x, y)
	d.InjectRelease(x, y)
}

// InjectDrag queues a full drag sequence: press at (fromX, fromY),
// linearly interpolated moves over frames-2 intermediate frames, and
// release at (toX, toY). The total sequence consumes `frames` frames.
// Minimum frames is 2 (press + release).
func (d *Driver) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	d.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		d.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	d.InjectRelease(toX, toY)
}

// InjectDropFiles queues a frame in which the window receives files
// dropped at (x, y) from outside the application.
func (d *Driver) InjectDropFiles(x, y float64, files ...File) {
	d.injectFrame(x, y, files)
}

// InjectKeyModifiers sets the modifier state carried by subsequently
// injected frames.
func (d *Driver) InjectKeyModifiers(mods KeyModifiers) {
	d.injectMods = mods
}

func (d *Driver) injectFrame(x, y float64, dropped []File) {
	d.injectQueue = append(d.injectQueue, frameInput{
		x:       x,
		y:       y,
		pressed: d.injectPressed,
		mods:    d.injectMods,
		dropped: dropped,
	})
}

// --- Hit testing ---

// hitTest finds the topmost element under (x, y). Later siblings draw on
// top, so children are scanned back to front. The root catches whatever
// no element claims.
func (d *Driver) hitTest(x, y float64) *Element {
	root := d.doc.Root()
	children := root.Children()
	for i := len(children) - 1; i >= 0; i-- {
		if hit := hitDescend(children[i], x, y); hit != nil {
			return hit
		}
	}
	return root
}

func hitDescend(el *Element, x, y float64) *Element {
	if !el.Bounds.Contains(x, y) {
		return nil
	}
	children := el.Children()
	for i := len(children) - 1; i >= 0; i-- {
		if hit := hitDescend(children[i], x, y); hit != nil {
			return hit
		}
	}
	return el
}

func nearestDraggable(el *Element) *Element {
	for p := el; p != nil; p = p.Parent {
		if p.Draggable {
			return p
		}
	}
	return nil
}

// --- Gesture processing ---

func (d *Driver) processFrame(in frameInput) {
	if len(in.dropped) > 0 && !d.dragging {
		d.synthesizeFileDrop(in, in.dropped)
	}

	switch {
	case d.dragging:
		d.processDragFrame(in)
	case d.down && d.dragVetoed:
		if !in.pressed {
			d.resetGesture()
		}
	case d.down:
		if !in.pressed {
			// A click; nothing to translate.
			d.resetGesture()
			break
		}
		if math.Abs(in.x-d.startX) > d.deadZone || math.Abs(in.y-d.startY) > d.deadZone {
			d.beginDragGesture(in)
		}
	default:
		if in.pressed {
			d.down = true
			d.startX, d.startY = in.x, in.y
			d.pressEl = d.hitTest(in.x, in.y)
			d.doc.Dispatch(&Event{Kind: EventSelectStart, Target: d.pressEl, X: in.x, Y: in.y, Modifiers: in.mods})
		} else if in.x != d.lastX || in.y != d.lastY {
			d.doc.Dispatch(&Event{Kind: EventPointerMove, Target: d.hitTest(in.x, in.y), X: in.x, Y: in.y, Modifiers: in.mods})
		}
	}

	d.lastX, d.lastY = in.x, in.y
}

func (d *Driver) beginDragGesture(in frameInput) {
	src := nearestDraggable(d.pressEl)
	if src == nil {
		// Nothing draggable under the press; sit out until release.
		d.dragVetoed = true
		return
	}

	t := NewDataTransfer()
	start := &Event{Kind: EventDragStart, Target: src, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: t}
	if !d.doc.Dispatch(start) {
		// Vetoed, either by the element's own handler or because no
		// source accepted the drag.
		d.dragVetoed = true
		return
	}

	d.dragging = true
	d.sourceEl = src
	d.transfer = t
	t.setMode(transferProtected)
	d.hoverEl = nil
	d.processDragFrame(in)
}

func (d *Driver) processDragFrame(in frameInput) {
	if !d.doc.Contains(d.sourceEl) {
		// Hosts abandon a gesture whose source left the tree: drag
		// events stop, no dragend fires, and plain pointer moves resume.
		// The translator's removal watch picks the session up from there.
		if in.x != d.lastX || in.y != d.lastY {
			d.doc.Dispatch(&Event{Kind: EventPointerMove, Target: d.hitTest(in.x, in.y), X: in.x, Y: in.y, Modifiers: in.mods})
		}
		if !in.pressed {
			d.resetGesture()
		}
		return
	}

	cur := d.hitTest(in.x, in.y)

	if cur != d.hoverEl {
		// Enter at the new element fires before leave at the old one.
		d.doc.Dispatch(&Event{Kind: EventDragEnter, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: d.transfer})
		if d.hoverEl != nil {
			d.doc.Dispatch(&Event{Kind: EventDragLeave, Target: d.hoverEl, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: d.transfer})
		}
		d.hoverEl = cur
	}

	if in.pressed {
		// The effect resets for every over event; a release drops only
		// if the last over was both cancelled and given a real effect.
		d.transfer.DropEffect = DropEffectNone
		over := &Event{Kind: EventDragOver, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: d.transfer}
		d.doc.Dispatch(over)
		d.dropAllowed = over.DefaultPrevented() && d.transfer.DropEffect != DropEffectNone
		return
	}

	if d.dropAllowed {
		d.transfer.setMode(transferReadOnly)
		d.doc.Dispatch(&Event{Kind: EventDrop, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: d.transfer})
		d.transfer.setMode(transferProtected)
	} else {
		d.doc.Dispatch(&Event{Kind: EventDragLeave, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: d.transfer})
	}
	d.doc.Dispatch(&Event{Kind: EventDragEnd, Target: d.sourceEl, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: d.transfer})
	d.resetGesture()
}

// synthesizeFileDrop plays out the event burst for files dragged in from
// outside the application. The window manager reports them only at the
// moment of release, so the enter, over and drop (or leave, when no
// target accepts) land in a single frame.
func (d *Driver) synthesizeFileDrop(in frameInput, files []File) {
	t := NewFileTransfer(files...)
	cur := d.hitTest(in.x, in.y)

	d.doc.Dispatch(&Event{Kind: EventDragEnter, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: t})

	over := &Event{Kind: EventDragOver, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: t}
	d.doc.Dispatch(over)

	if over.DefaultPrevented() && t.DropEffect != DropEffectNone {
		t.setMode(transferReadOnly)
		d.doc.Dispatch(&Event{Kind: EventDrop, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: t})
	} else {
		d.doc.Dispatch(&Event{Kind: EventDragLeave, Target: cur, X: in.x, Y: in.y, Modifiers: in.mods, Transfer: t})
	}
}

func (d *Driver) resetGesture() {
	d.down = false
	d.dragging = false
	d.dragVetoed = false
	d.pressEl = nil
	d.sourceEl = nil
	d.hoverEl = nil
	d.transfer = nil
	d.dropAllowed = false
}
