package grapple

import "math"

// --- Offset geometry ---

// EventClientOffset returns the pointer position carried by an event.
func EventClientOffset(e *Event) Point {
	return Point{X: e.X, Y: e.Y}
}

// NodeClientOffset returns the top-left corner of an element's bounds.
// The second return is false for a nil element.
func NodeClientOffset(el *Element) (Point, bool) {
	if el == nil {
		return Point{}, false
	}
	return Point{X: el.Bounds.X, Y: el.Bounds.Y}, true
}

// DragPreviewOffset computes where the preview's top-left corner sits
// relative to the pointer for the gesture's drag image.
//
// With an explicit offset (a non-NaN OffsetX or OffsetY) that axis uses
// the offset as-is. Otherwise the axis interpolates between three poses
// keyed by the anchor: at 0 the preview's leading edge tracks the source's
// leading edge, at 1 the trailing edges track, and at 0.5 the grab point
// scales proportionally into the preview. Image previews measure from the
// source so a resized image stays under the grab point.
func DragPreviewOffset(source, preview *Element, clientOffset Point, opts PreviewOptions) Point {
	isImage := preview.Kind == KindImage

	measured := preview
	if isImage {
		measured = source
	}
	measuredOffset, _ := NodeClientOffset(measured)
	offsetFromPreview := Point{
		X: clientOffset.X - measuredOffset.X,
		Y: clientOffset.Y - measuredOffset.Y,
	}

	// Non-image previews are rendered by the host at the source's size,
	// so the source dimensions stand in for theirs.
	sourceW, sourceH := source.Bounds.Width, source.Bounds.Height
	previewW, previewH := sourceW, sourceH
	if isImage {
		previewW, previewH = preview.Bounds.Width, preview.Bounds.Height
	}

	x := previewAxisOffset(opts.OffsetX, opts.AnchorX, offsetFromPreview.X, sourceW, previewW)
	y := previewAxisOffset(opts.OffsetY, opts.AnchorY, offsetFromPreview.Y, sourceH, previewH)
	return Point{X: x, Y: y}
}

func previewAxisOffset(explicit, anchor, offset, sourceSize, previewSize float64) float64 {
	if !math.IsNaN(explicit) {
		return explicit
	}
	scaled := offset
	if sourceSize != 0 {
		scaled = offset / sourceSize * previewSize
	}
	interpolant := NewMonotonicInterpolant(
		[]float64{0, 0.5, 1},
		[]float64{
			offset,
			scaled,
			offset + previewSize - sourceSize,
		},
	)
	return interpolant.Interpolate(anchor)
}
