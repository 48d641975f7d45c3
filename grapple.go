package grapple

// Point is a 2D position in document coordinates, used for pointer offsets
// and element origins throughout the API.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// EventKind identifies a kind of drag event.
type EventKind uint8

const (
	EventDragStart   EventKind = iota // fires on the dragged element when a gesture begins
	EventDragEnd                      // fires on the source element when the gesture ends
	EventDragEnter                    // fires when the pointer moves onto an element mid-drag
	EventDragOver                     // fires repeatedly over the hovered element mid-drag
	EventDragLeave                    // fires when the pointer moves off an element mid-drag
	EventDrop                         // fires on the hovered element when the payload is released
	EventPointerMove                  // fires when the pointer moves with no drag in flight
	EventSelectStart                  // fires when a press would begin a text selection

	eventKindCount // number of event kinds; sizes per-element listener tables
)

// KeyModifiers is a bitmask of keyboard modifier keys.
// Values can be combined with bitwise OR (e.g. ModShift | ModCtrl).
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// DropEffect is the feedback value advertised for the drop that would happen
// at the current pointer position.
type DropEffect uint8

const (
	DropEffectNone DropEffect = iota // no drop possible here
	DropEffectMove                   // payload would move to the target
	DropEffectCopy                   // payload would be copied to the target
	DropEffectLink                   // payload would be linked at the target
)

func (e DropEffect) String() string {
	switch e {
	case DropEffectMove:
		return "move"
	case DropEffectCopy:
		return "copy"
	case DropEffectLink:
		return "link"
	}
	return "none"
}

// ElementKind classifies how the host treats an element for text selection
// and drag previews.
type ElementKind uint8

const (
	KindGeneric   ElementKind = iota // plain element, no special selection behavior
	KindImage                        // image element (preview uses its own size)
	KindTextInput                    // single-line text input (selection preserved)
	KindTextArea                     // multi-line text input (selection preserved)
	KindEditable                     // editable region (selection preserved)
)

// ItemType tags the payload category of a drag session. Applications define
// their own values; native sessions use the Native* tags.
type ItemType string
