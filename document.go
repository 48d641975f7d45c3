package grapple

import "time"

// CancelFunc cancels a scheduled task. Safe to call after the task has run
// or been cancelled already.
type CancelFunc func()

type scheduledTask struct {
	id uint32
	fn func()
}

type timerTask struct {
	id  uint32
	due time.Duration
	fn  func()
}

// Document owns the element tree drag events propagate through, plus the
// frame-driven scheduler that drag timing (deferred publish, removal watch,
// frame callbacks) runs on.
type Document struct {
	root  *Element
	debug bool

	// Set while a Backend is installed; a second Setup fails.
	backendAttached bool

	now      time.Duration
	deferred []scheduledTask
	timers   []timerTask
	frames   []scheduledTask
	nextTask uint32

	pathBuf []*Element // reused propagation path buffer
}

// NewDocument creates a document with a pre-created root element.
func NewDocument() *Document {
	return &Document{root: NewElement("root")}
}

// Root returns the document's root element.
func (d *Document) Root() *Element {
	return d.root
}

// Contains reports whether el is attached to this document's tree.
func (d *Document) Contains(el *Element) bool {
	if el == nil {
		return false
	}
	return d.root.Contains(el)
}

// SetDebugMode enables or disables debug mode. When enabled, every dispatched
// event is traced to stderr and tree depth warnings are printed.
func (d *Document) SetDebugMode(enabled bool) {
	d.debug = enabled
	globalDebug = enabled
}

// globalDebug mirrors the most recently set Document debug flag so that
// element operations (which lack a Document pointer) can check it cheaply.
// Only valid with a single Document; multiple Documents with differing debug
// modes will reflect whichever called SetDebugMode last.
var globalDebug bool

// --- Dispatch ---

// Dispatch propagates e through the tree: capture phase from the target's
// tree root down to the target, then bubble phase from the target back up.
// Listener panics are recovered and reported so one failing listener cannot
// starve the rest. Reports whether the event's default action was NOT
// prevented.
func (d *Document) Dispatch(e *Event) bool {
	if e.Target == nil {
		return !e.defaultPrevented
	}
	if d.debug {
		debugLogDispatch(e)
	}

	// Path from target up to its tree root. A detached target still
	// propagates through its own subtree, never reaching the document root.
	d.pathBuf = d.pathBuf[:0]
	for p := e.Target; p != nil; p = p.Parent {
		d.pathBuf = append(d.pathBuf, p)
	}

	for i := len(d.pathBuf) - 1; i >= 0; i-- {
		d.invokeListeners(d.pathBuf[i], e, true)
		if e.propagationStopped {
			return !e.defaultPrevented
		}
	}
	for _, el := range d.pathBuf {
		d.invokeListeners(el, e, false)
		if e.propagationStopped {
			return !e.defaultPrevented
		}
	}
	return !e.defaultPrevented
}

// invokeListeners runs one element's listeners for one phase over a snapshot,
// so listeners may detach themselves (or each other) mid-dispatch.
func (d *Document) invokeListeners(el *Element, e *Event, capture bool) {
	var list []listenerEntry
	if capture {
		list = el.capture[e.Kind]
	} else {
		list = el.bubble[e.Kind]
	}
	if len(list) == 0 {
		return
	}
	snapshot := make([]listenerEntry, len(list))
	copy(snapshot, list)
	for _, entry := range snapshot {
		d.safeInvoke(entry.fn, e)
	}
}

func (d *Document) safeInvoke(fn ListenerFunc, e *Event) {
	defer func() {
		if r := recover(); r != nil {
			reportListenerPanic(e, r)
		}
	}()
	fn(e)
}

// --- Scheduler ---

// Defer schedules fn to run on the next Step, before due timers and frame
// callbacks. Returns a cancel func.
func (d *Document) Defer(fn func()) CancelFunc {
	d.nextTask++
	id := d.nextTask
	d.deferred = append(d.deferred, scheduledTask{id: id, fn: fn})
	return func() {
		d.deferred = removeScheduled(d.deferred, id)
	}
}

// After schedules fn to run once at least delay of Step time has elapsed.
// Returns a cancel func.
func (d *Document) After(delay time.Duration, fn func()) CancelFunc {
	d.nextTask++
	id := d.nextTask
	d.timers = append(d.timers, timerTask{id: id, due: d.now + delay, fn: fn})
	return func() {
		for i := range d.timers {
			if d.timers[i].id == id {
				copy(d.timers[i:], d.timers[i+1:])
				d.timers[len(d.timers)-1] = timerTask{}
				d.timers = d.timers[:len(d.timers)-1]
				return
			}
		}
	}
}

// RequestFrame schedules fn to run at the end of the next Step, after
// deferred tasks and timers. Returns a cancel func.
func (d *Document) RequestFrame(fn func()) CancelFunc {
	d.nextTask++
	id := d.nextTask
	d.frames = append(d.frames, scheduledTask{id: id, fn: fn})
	return func() {
		d.frames = removeScheduled(d.frames, id)
	}
}

// Step advances the document clock by dt and pumps the scheduler: deferred
// tasks first, then timers that have come due, then frame callbacks. Tasks
// scheduled while pumping run on a later Step.
func (d *Document) Step(dt time.Duration) {
	d.now += dt

	pending := d.deferred
	d.deferred = nil
	for _, t := range pending {
		t.fn()
	}

	// Partition timers in place: keep those not yet due, collect the rest.
	var due []timerTask
	kept := d.timers[:0]
	for _, t := range d.timers {
		if t.due <= d.now {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(d.timers); i++ {
		d.timers[i] = timerTask{}
	}
	d.timers = kept
	for _, t := range due {
		t.fn()
	}

	frames := d.frames
	d.frames = nil
	for _, t := range frames {
		t.fn()
	}
}

func removeScheduled(s []scheduledTask, id uint32) []scheduledTask {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = scheduledTask{}
			return s[:len(s)-1]
		}
	}
	return s
}
