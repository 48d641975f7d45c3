package grapple

import (
	"errors"
	"io"
)

// --- Data transfer ---

// transferMode controls what a listener may do with a DataTransfer at each
// point in a drag gesture. Hosts hide payload data from everything except
// the dragstart and drop handlers so that hover feedback cannot sniff it.
type transferMode uint8

const (
	transferReadWrite transferMode = iota // dragstart: full access
	transferProtected                     // enter/over/leave: types only
	transferReadOnly                      // drop: read but not write
)

var (
	// ErrTransferProtected is returned when payload data is read outside
	// of a dragstart or drop handler.
	ErrTransferProtected = errors.New("grapple: data transfer is protected")
	// ErrTransferReadOnly is returned when payload data is written outside
	// of a dragstart handler.
	ErrTransferReadOnly = errors.New("grapple: data transfer is read-only")
)

// File is one external file carried by a drag that originated outside the
// application. Open is invoked lazily so that listing a large drop does not
// read anything from disk.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// DataTransfer carries the payload of a single drag gesture. The driver
// creates one per gesture and flips its mode as the gesture progresses;
// listeners only ever read or write through the accessor methods.
type DataTransfer struct {
	// DropEffect is the feedback cursor the current drop target asked for.
	// Handlers write it during dragenter and dragover.
	DropEffect DropEffect

	mode  transferMode
	types []string
	data  map[string]string
	files []File

	dragImage  *Element
	dragImageX float64
	dragImageY float64
}

// NewDataTransfer returns an empty read-write transfer, as a host would
// hand to a dragstart handler.
func NewDataTransfer() *DataTransfer {
	return &DataTransfer{data: make(map[string]string)}
}

// NewFileTransfer returns a protected transfer carrying files dragged in
// from outside the application. Its type list is the single entry "Files",
// matching what hosts expose for external file drags.
func NewFileTransfer(files ...File) *DataTransfer {
	return &DataTransfer{
		mode:  transferProtected,
		types: []string{"Files"},
		data:  make(map[string]string),
		files: files,
	}
}

// Types returns the declared payload types in the order they were set.
// Types stays readable in every mode.
// The returned slice MUST NOT be mutated by the caller.
func (t *DataTransfer) Types() []string {
	return t.types
}

// SetData declares a payload entry. It fails unless the transfer is in its
// dragstart read-write window.
func (t *DataTransfer) SetData(typ, data string) error {
	if t.mode != transferReadWrite {
		return ErrTransferReadOnly
	}
	if _, ok := t.data[typ]; !ok {
		t.types = append(t.types, typ)
	}
	t.data[typ] = data
	return nil
}

// Data reads a payload entry. While the transfer is protected it fails;
// an absent entry reads as "" without error, matching host behavior.
func (t *DataTransfer) Data(typ string) (string, error) {
	if t.mode == transferProtected {
		return "", ErrTransferProtected
	}
	return t.data[typ], nil
}

// Files returns the external files carried by the transfer, or nil while
// the transfer is protected.
func (t *DataTransfer) Files() []File {
	if t.mode == transferProtected {
		return nil
	}
	return t.files
}

// SetDragImage overrides the host-rendered drag preview. Ignored outside
// the dragstart read-write window.
func (t *DataTransfer) SetDragImage(el *Element, x, y float64) {
	if t.mode != transferReadWrite {
		return
	}
	t.dragImage = el
	t.dragImageX = x
	t.dragImageY = y
}

// DragImage returns the preview element and anchor set by SetDragImage,
// or nil if none was set.
func (t *DataTransfer) DragImage() (*Element, float64, float64) {
	return t.dragImage, t.dragImageX, t.dragImageY
}

func (t *DataTransfer) setMode(m transferMode) {
	t.mode = m
}
