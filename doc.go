// Package grapple is a drag-and-drop toolkit for [Ebitengine].
//
// Grapple translates raw pointer gestures into an ordered drag protocol:
// exactly one begin per gesture, hover updates while the payload moves,
// then a single drop or cancel. It handles the hard parts of event-based
// drag and drop: overlapping enter/leave notifications from nested
// elements, files dragged in from outside the window, sources removed
// from the tree mid-drag, and hosts that re-fire end-of-drag events.
//
// # Quick start
//
// Build an element tree on a [Document], connect sources and targets
// through a [Backend], and pump a [Driver] from your game's Update:
//
//	doc := grapple.NewDocument()
//	backend := grapple.NewBackend(mgr, doc)
//	if err := backend.Setup(); err != nil {
//		log.Fatal(err)
//	}
//
//	card := grapple.NewElement("card")
//	card.Bounds = grapple.Rect{X: 40, Y: 40, Width: 60, Height: 90}
//	doc.Root().AddChild(card)
//	backend.ConnectDragSource("card", card, nil)
//
//	driver := grapple.NewDriver(doc)
//	// in Update: driver.Update()
//
// mgr is anything implementing [Manager]; the manager subpackage has a
// ready-made single-threaded implementation.
//
// # Documents and elements
//
// Every hit-testable thing is an [Element]. Elements form a tree rooted
// at [Document.Root]; events dispatch through the tree in capture order
// from the root down, then bubble back up, so listeners on ancestors see
// their descendants' events. The [Driver] targets events at the topmost
// element whose Bounds contain the pointer.
//
// # Backends and sessions
//
// A [Backend] owns one drag session at a time. Registered drags start
// from connected source elements; native drags wrap external payloads
// (files, URLs, text) in a synthetic source so consumers handle both the
// same way. Drop targets advertise interest per item type through the
// [Monitor]; the backend turns that into the drop-effect feedback the
// gesture displays.
//
// # Previews
//
// [DragPreviewOffset] computes where a custom drag image sits relative
// to the pointer, and [PreviewLayer] eases it across the screen (via
// [gween]), including the fly-back when a gesture ends without a drop.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package grapple
