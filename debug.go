package grapple

import (
	"fmt"
	"os"
)

// eventKindNames maps EventKind to the short names used in debug traces.
var eventKindNames = [eventKindCount]string{
	EventDragStart:   "dragstart",
	EventDragEnd:     "dragend",
	EventDragEnter:   "dragenter",
	EventDragOver:    "dragover",
	EventDragLeave:   "dragleave",
	EventDrop:        "drop",
	EventPointerMove: "pointermove",
	EventSelectStart: "selectstart",
}

// kindName returns the trace name for k.
func kindName(k EventKind) string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// debugLogDispatch traces one dispatched event to stderr.
// Only called when the document's debug mode is on.
func debugLogDispatch(e *Event) {
	target := "<nil>"
	if e.Target != nil {
		target = e.Target.Name
	}
	_, _ = fmt.Fprintf(os.Stderr, "[grapple] %s @ %q (%.0f, %.0f)\n",
		kindName(e.Kind), target, e.X, e.Y)
}

// reportListenerPanic reports a recovered listener panic to stderr. Always
// on: a swallowed panic with no trace is undebuggable.
func reportListenerPanic(e *Event, r any) {
	_, _ = fmt.Fprintf(os.Stderr, "[grapple] recovered panic in %s listener: %v\n",
		kindName(e.Kind), r)
}

// debugCheckTreeDepth warns on stderr if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(el *Element) {
	depth := 0
	for p := el; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		_, _ = fmt.Fprintf(os.Stderr, "[grapple] warning: tree depth %d exceeds %d (element %q)\n",
			depth, debugMaxTreeDepth, el.Name)
	}
}
