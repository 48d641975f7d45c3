package grapple

// --- Events ---

// Event is one drag event propagating through a document tree.
type Event struct {
	Kind      EventKind
	Target    *Element
	X, Y      float64 // pointer position in document coordinates
	Modifiers KeyModifiers
	// Transfer carries the gesture payload. Nil for pointer-move and
	// select-start events.
	Transfer *DataTransfer

	defaultPrevented   bool
	propagationStopped bool
}

// PreventDefault suppresses the host's default action for this event.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether some listener suppressed the default action.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation stops the event from reaching further elements. Listeners
// already invoked on the current element still complete.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
}

// ListenerFunc handles one dispatched event.
type ListenerFunc func(*Event)

type listenerEntry struct {
	id uint32
	fn ListenerFunc
}

// ListenerHandle allows removing a registered listener.
type ListenerHandle struct {
	el      *Element
	kind    EventKind
	capture bool
	id      uint32
}

// Remove unregisters this listener so it no longer fires.
// The entry is removed from the slice to avoid nil iteration waste.
func (h ListenerHandle) Remove() {
	if h.el == nil {
		return
	}
	if h.capture {
		h.el.capture[h.kind] = removeListener(h.el.capture[h.kind], h.id)
	} else {
		h.el.bubble[h.kind] = removeListener(h.el.bubble[h.kind], h.id)
	}
}

func removeListener(s []listenerEntry, id uint32) []listenerEntry {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = listenerEntry{}
			return s[:len(s)-1]
		}
	}
	return s
}

// --- ID counter ---

// elementIDCounter is a plain counter (no atomic — grapple is single-threaded).
var elementIDCounter uint32

func nextElementID() uint32 {
	elementIDCounter++
	return elementIDCounter
}

// --- Element ---

// Element is a node in the document tree drag events propagate through.
// A single flat struct is used for all element kinds; behavior differences
// ride on the Kind field rather than interface dispatch.
type Element struct {
	// Identity
	ID   uint32
	Name string
	Kind ElementKind

	// Hierarchy
	Parent   *Element
	children []*Element

	// Bounds is the element's absolute document-space rectangle, maintained
	// by the host. Drives hit testing and preview offset geometry.
	Bounds Rect

	// Draggable marks the element as a drag gesture origin for the host.
	Draggable bool

	// ActivateDragDrop, when set, is invoked in place of the suppressed text
	// selection on hosts without native element dragging.
	ActivateDragDrop func()

	// Listener tables indexed by EventKind, one per propagation phase.
	capture        [eventKindCount][]listenerEntry
	bubble         [eventKindCount][]listenerEntry
	nextListenerID uint32
}

// NewElement creates an element with the given name.
func NewElement(name string) *Element {
	return &Element{ID: nextElementID(), Name: name}
}

// On registers a bubble-phase listener for the given event kind.
func (el *Element) On(kind EventKind, fn ListenerFunc) ListenerHandle {
	el.nextListenerID++
	id := el.nextListenerID
	el.bubble[kind] = append(el.bubble[kind], listenerEntry{id: id, fn: fn})
	return ListenerHandle{el: el, kind: kind, id: id}
}

// OnCapture registers a capture-phase listener for the given event kind.
// Capture listeners run root-to-target, before any bubble listener.
func (el *Element) OnCapture(kind EventKind, fn ListenerFunc) ListenerHandle {
	el.nextListenerID++
	id := el.nextListenerID
	el.capture[kind] = append(el.capture[kind], listenerEntry{id: id, fn: fn})
	return ListenerHandle{el: el, kind: kind, capture: true, id: id}
}

// --- Tree manipulation ---

// AddChild appends child to this element's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this element (cycle).
func (el *Element) AddChild(child *Element) {
	if child == nil {
		panic("grapple: cannot add nil child")
	}
	if child.Contains(el) {
		panic("grapple: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = el
	el.children = append(el.children, child)
	if globalDebug {
		debugCheckTreeDepth(child)
	}
}

// RemoveChild detaches child from this element.
// Panics if child.Parent != el.
func (el *Element) RemoveChild(child *Element) {
	if child.Parent != el {
		panic("grapple: child's parent is not this element")
	}
	el.removeChildByPtr(child)
	child.Parent = nil
}

// RemoveFromParent detaches this element from its parent.
// No-op if this element has no parent.
func (el *Element) RemoveFromParent() {
	if el.Parent == nil {
		return
	}
	el.Parent.RemoveChild(el)
}

// RemoveChildren detaches all children from this element.
func (el *Element) RemoveChildren() {
	for _, child := range el.children {
		child.Parent = nil
	}
	el.children = el.children[:0]
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (el *Element) Children() []*Element {
	return el.children
}

// NumChildren returns the number of children.
func (el *Element) NumChildren() int {
	return len(el.children)
}

// Contains reports whether other is this element or one of its descendants.
func (el *Element) Contains(other *Element) bool {
	for p := other; p != nil; p = p.Parent {
		if p == el {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from el.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (el *Element) removeChildByPtr(child *Element) {
	for i, c := range el.children {
		if c == child {
			copy(el.children[i:], el.children[i+1:])
			el.children[len(el.children)-1] = nil
			el.children = el.children[:len(el.children)-1]
			return
		}
	}
}
