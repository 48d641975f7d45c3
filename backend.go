package grapple

import (
	"errors"
	"math"
	"time"
)

// --- Protocol collaborators ---

// BeginDragOptions configures a BeginDrag dispatch.
type BeginDragOptions struct {
	// PublishSource controls whether consumers observe the new session
	// immediately. Registered drags begin unpublished and publish on a
	// later pump so the host can paint the pre-drag appearance first.
	PublishSource bool

	// ClientOffset is the pointer position when the gesture began.
	ClientOffset Point

	// GetSourceClientOffset resolves a candidate source id to its
	// element's current top-left corner. Reports false for ids with no
	// connected element.
	GetSourceClientOffset func(sourceID string) (Point, bool)
}

// HoverOptions carries the pointer position for a hover update.
type HoverOptions struct {
	ClientOffset Point
}

// DropOptions carries the effect the gesture resolved to.
type DropOptions struct {
	DropEffect DropEffect
}

// Actions is the dispatch surface the translator drives. One physical
// gesture produces one BeginDrag, any number of Hovers, at most one Drop,
// and exactly one EndDrag.
type Actions interface {
	BeginDrag(sourceIDs []string, opts BeginDragOptions)
	PublishDragSource()
	Hover(targetIDs []string, opts HoverOptions)
	Drop(opts DropOptions)
	EndDrag()
}

// Monitor answers questions about the dispatcher's active session.
type Monitor interface {
	IsDragging() bool
	ItemType() ItemType
	SourceID() string
	CanDropOnTarget(targetID string) bool
}

// Registry issues source ids. The translator registers synthetic sources
// through it for drags that originate outside the application.
type Registry interface {
	AddSource(t ItemType, s Source) string
	RemoveSource(id string)
}

// Source is a draggable thing as the dispatcher sees it.
type Source interface {
	CanDrag() bool
	BeginDrag() any
	EndDrag()
}

// Manager bundles the three collaborator surfaces a translator needs.
type Manager interface {
	Actions() Actions
	Monitor() Monitor
	Registry() Registry
}

// --- Connection options ---

// SourceOptions configures a connected drag source.
type SourceOptions struct {
	// DropEffect fixes the effect advertised while dragging this source.
	// DropEffectNone keeps the default policy: copy while the alt
	// modifier is held, move otherwise.
	DropEffect DropEffect
}

// PreviewOptions configures the drag image registered for a source.
type PreviewOptions struct {
	// Anchors place the grab point proportionally within the preview:
	// 0 docks the leading edge, 1 the trailing edge, 0.5 centers.
	AnchorX float64
	AnchorY float64

	// A non-NaN offset pins the preview at a fixed distance from the
	// pointer on that axis; the anchor is then ignored.
	OffsetX float64
	OffsetY float64

	// CaptureDraggingState publishes the session synchronously inside
	// the dragstart dispatch instead of on the next pump. Needed when
	// the preview must show the already-dragging appearance.
	CaptureDraggingState bool
}

// DefaultPreviewOptions returns the options used when a source has no
// registered preview configuration: centered anchor, no fixed offset.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{
		AnchorX: 0.5,
		AnchorY: 0.5,
		OffsetX: math.NaN(),
		OffsetY: math.NaN(),
	}
}

// --- Backend ---

// DefaultRemovalWatchDelay is how long after a drag starts the translator
// waits before watching pointer moves for source-node removal. It must
// exceed the host's drag preview paint delay.
const DefaultRemovalWatchDelay = time.Second

// ErrBackendInstalled is returned by Setup when the document already has
// an installed backend.
var ErrBackendInstalled = errors.New("grapple: a backend is already installed on this document")

// Backend translates the document's raw drag events into the dispatch
// protocol. Install with Setup, wire elements with the Connect methods,
// remove with Teardown. Like the rest of grapple it is single-threaded;
// every method must be called from the pump goroutine.
type Backend struct {
	actions  Actions
	monitor  Monitor
	registry Registry
	doc      *Document

	// Connected elements and their configuration, by role.
	sourceNodes          map[string]*Element
	sourceOptions        map[string]SourceOptions
	sourcePreviews       map[string]*Element
	sourcePreviewOptions map[string]PreviewOptions
	sourceDetach         map[string]func()
	previewDetach        map[string]func()
	targetDetach         map[string]func()

	// Candidate id lists. Each is reset by the capture-phase top handler,
	// appended to by per-element bubble handlers (children bubble first,
	// so ids accumulate innermost-first) and consumed by the bubble-phase
	// top handler of the same physical event.
	dragStartSourceIDs []string
	dragEnterTargetIDs []string
	dragOverTargetIDs  []string
	dropTargetIDs      []string

	enterLeave *enterLeaveCounter

	// Active native session, if any.
	currentNativeSource *nativeSource
	currentNativeHandle string

	// Source node of the active session and the watch that force-ends
	// the session if the node leaves the document mid-gesture.
	currentSourceNode  *Element
	cancelRemovalWatch CancelFunc
	removalWatchHandle ListenerHandle

	cancelPublish   CancelFunc
	cancelNativeEnd CancelFunc

	altKeyDown bool

	hoverOnEnter      bool
	removalWatchDelay time.Duration

	installed   bool
	rootHandles []ListenerHandle
}

// NewBackend creates a translator for doc driving m. It installs nothing
// until Setup is called.
func NewBackend(m Manager, doc *Document) *Backend {
	b := &Backend{
		actions:  m.Actions(),
		monitor:  m.Monitor(),
		registry: m.Registry(),
		doc:      doc,

		sourceNodes:          make(map[string]*Element),
		sourceOptions:        make(map[string]SourceOptions),
		sourcePreviews:       make(map[string]*Element),
		sourcePreviewOptions: make(map[string]PreviewOptions),
		sourceDetach:         make(map[string]func()),
		previewDetach:        make(map[string]func()),
		targetDetach:         make(map[string]func()),

		hoverOnEnter:      true,
		removalWatchDelay: DefaultRemovalWatchDelay,
	}
	b.enterLeave = newEnterLeaveCounter(b.isNodeInDocument)
	return b
}

// SetRemovalWatchDelay overrides the settle delay before the source
// removal watch arms. Pointer moves delivered during the host's preview
// paint must not trip the watch, so keep this above that paint delay.
func (b *Backend) SetRemovalWatchDelay(d time.Duration) {
	b.removalWatchDelay = d
}

// SetEnterHover controls whether hover updates are emitted from dragenter
// in addition to dragover. On by default; disable for hosts that keep
// delivering stale dragover positions after a target moved in reaction to
// its dragenter.
func (b *Backend) SetEnterHover(enabled bool) {
	b.hoverOnEnter = enabled
}

func (b *Backend) isNodeInDocument(el *Element) bool {
	return b.doc.Contains(el)
}

// --- Lifecycle ---

// Setup installs the translator's listeners on the document root. It
// fails with ErrBackendInstalled if any backend is already installed on
// the document; a document supports exactly one at a time.
func (b *Backend) Setup() error {
	if b.doc.backendAttached {
		return ErrBackendInstalled
	}
	b.doc.backendAttached = true
	b.installed = true

	root := b.doc.Root()
	b.rootHandles = append(b.rootHandles[:0],
		root.OnCapture(EventDragStart, b.handleTopDragStartCapture),
		root.On(EventDragStart, b.handleTopDragStart),
		root.OnCapture(EventDragEnd, b.handleTopDragEndCapture),
		root.OnCapture(EventDragEnter, b.handleTopDragEnterCapture),
		root.On(EventDragEnter, b.handleTopDragEnter),
		root.OnCapture(EventDragLeave, b.handleTopDragLeaveCapture),
		root.OnCapture(EventDragOver, b.handleTopDragOverCapture),
		root.On(EventDragOver, b.handleTopDragOver),
		root.OnCapture(EventDrop, b.handleTopDropCapture),
		root.On(EventDrop, b.handleTopDrop),
	)
	return nil
}

// Teardown removes the translator's listeners and cancels all pending
// scheduled work. No further actions are dispatched; a session in flight
// is abandoned rather than ended. Safe to call repeatedly.
func (b *Backend) Teardown() {
	if !b.installed {
		return
	}
	b.installed = false
	b.doc.backendAttached = false

	for _, h := range b.rootHandles {
		h.Remove()
	}
	b.rootHandles = b.rootHandles[:0]

	b.clearCurrentDragSourceNode()
	if b.cancelPublish != nil {
		b.cancelPublish()
		b.cancelPublish = nil
	}
	if b.cancelNativeEnd != nil {
		b.cancelNativeEnd()
		b.cancelNativeEnd = nil
	}
}

// --- Connections ---

// ConnectDragSource marks node draggable and routes its drag starts to
// the dispatcher under sourceID. nil opts means default configuration.
// Reconnecting an id replaces the previous connection. The returned
// detach undoes everything and is safe to call more than once.
func (b *Backend) ConnectDragSource(sourceID string, node *Element, opts *SourceOptions) func() {
	if prev := b.sourceDetach[sourceID]; prev != nil {
		prev()
	}

	var options SourceOptions
	if opts != nil {
		options = *opts
	}
	b.sourceNodes[sourceID] = node
	b.sourceOptions[sourceID] = options

	dragStart := node.On(EventDragStart, func(e *Event) { b.handleDragStart(e, sourceID) })
	selectStart := node.On(EventSelectStart, b.handleSelectStart)
	node.Draggable = true

	detached := false
	detach := func() {
		if detached {
			return
		}
		detached = true
		delete(b.sourceNodes, sourceID)
		delete(b.sourceOptions, sourceID)
		delete(b.sourceDetach, sourceID)
		dragStart.Remove()
		selectStart.Remove()
		node.Draggable = false
	}
	b.sourceDetach[sourceID] = detach
	return detach
}

// ConnectDragPreview registers node as the drag image shown while
// sourceID drags, replacing the host-generated one. nil opts means
// DefaultPreviewOptions.
func (b *Backend) ConnectDragPreview(sourceID string, node *Element, opts *PreviewOptions) func() {
	if prev := b.previewDetach[sourceID]; prev != nil {
		prev()
	}

	options := DefaultPreviewOptions()
	if opts != nil {
		options = *opts
	}
	b.sourcePreviews[sourceID] = node
	b.sourcePreviewOptions[sourceID] = options

	detached := false
	detach := func() {
		if detached {
			return
		}
		detached = true
		delete(b.sourcePreviews, sourceID)
		delete(b.sourcePreviewOptions, sourceID)
		delete(b.previewDetach, sourceID)
	}
	b.previewDetach[sourceID] = detach
	return detach
}

// ConnectDropTarget routes node's enter, over and drop events to the
// dispatcher under targetID.
func (b *Backend) ConnectDropTarget(targetID string, node *Element) func() {
	if prev := b.targetDetach[targetID]; prev != nil {
		prev()
	}

	enter := node.On(EventDragEnter, func(e *Event) { b.handleDragEnter(e, targetID) })
	over := node.On(EventDragOver, func(e *Event) { b.handleDragOver(e, targetID) })
	drop := node.On(EventDrop, func(e *Event) { b.handleDrop(e, targetID) })

	detached := false
	detach := func() {
		if detached {
			return
		}
		detached = true
		delete(b.targetDetach, targetID)
		enter.Remove()
		over.Remove()
		drop.Remove()
	}
	b.targetDetach[targetID] = detach
	return detach
}

// --- Drag start ---

func (b *Backend) handleTopDragStartCapture(*Event) {
	b.clearCurrentDragSourceNode()
	b.dragStartSourceIDs = nil
}

func (b *Backend) handleDragStart(e *Event, sourceID string) {
	// The element's own handler may have vetoed the drag.
	if e.DefaultPrevented() {
		return
	}
	b.dragStartSourceIDs = append(b.dragStartSourceIDs, sourceID)
}

func (b *Backend) handleTopDragStart(e *Event) {
	if e.DefaultPrevented() {
		return
	}
	ids := b.dragStartSourceIDs
	b.dragStartSourceIDs = nil

	clientOffset := EventClientOffset(e)

	// An active session here means the previous gesture's end never
	// arrived. Close it out before opening a new one.
	if b.monitor.IsDragging() {
		b.actions.EndDrag()
	}
	// A publish still pending from an earlier gesture must not fire into
	// the new session.
	if b.cancelPublish != nil {
		b.cancelPublish()
		b.cancelPublish = nil
	}

	b.actions.BeginDrag(ids, BeginDragOptions{
		PublishSource:         false,
		ClientOffset:          clientOffset,
		GetSourceClientOffset: b.sourceClientOffset,
	})

	t := e.Transfer
	nativeType := matchNativeItemType(t)

	switch {
	case b.monitor.IsDragging():
		if t != nil {
			sourceNode := b.sourceNodes[b.monitor.SourceID()]
			preview := b.sourcePreviews[b.monitor.SourceID()]
			if preview == nil {
				preview = sourceNode
			}
			if preview != nil && sourceNode != nil {
				off := DragPreviewOffset(sourceNode, preview, clientOffset, b.currentSourcePreviewOptions())
				t.SetDragImage(preview, off.X, off.Y)
			}

			// At least one host refuses to start a drag whose transfer
			// carries no data at all.
			_ = t.SetData("application/json", "{}")
		}

		b.setCurrentDragSourceNode(e.Target)

		if b.currentSourcePreviewOptions().CaptureDraggingState {
			b.actions.PublishDragSource()
		} else {
			// Publishing on the next pump lets the host paint the source
			// in its pre-drag appearance for the generated preview.
			b.cancelPublish = b.doc.Defer(func() {
				b.cancelPublish = nil
				b.actions.PublishDragSource()
			})
		}
	case nativeType != "":
		// A native payload (a URL or selected text) dragged from inside
		// the document.
		b.beginDragNativeItem(nativeType, nil)
	case b.isTextSelectionDrag(e):
		// The host runs text-selection drags itself; interfering would
		// cancel them.
	default:
		e.PreventDefault()
	}
}

// isTextSelectionDrag reports a host-originated text-selection drag: a
// transfer declaring no types, started from an element nobody marked
// draggable.
func (b *Backend) isTextSelectionDrag(e *Event) bool {
	return e.Transfer != nil && len(e.Transfer.Types()) == 0 &&
		(e.Target == nil || !e.Target.Draggable)
}

// --- Drag end ---

func (b *Backend) handleTopDragEndCapture(*Event) {
	// Hosts can re-fire dragend from side effects of its own handling;
	// an already-cleared source node marks the gesture as handled.
	if b.clearCurrentDragSourceNode() && b.monitor.IsDragging() {
		b.actions.EndDrag()
	}
}

// --- Drag enter ---

func (b *Backend) handleTopDragEnterCapture(e *Event) {
	b.dragEnterTargetIDs = nil

	if b.isDraggingNativeItem() && b.currentNativeSource != nil && e.Transfer != nil {
		b.currentNativeSource.loadDataTransfer(e.Transfer)
	}

	isFirstEnter := b.enterLeave.Enter(e.Target)
	if !isFirstEnter || b.monitor.IsDragging() {
		return
	}

	if kind := matchNativeItemType(e.Transfer); kind != "" {
		// A native payload dragged in from outside the document.
		b.beginDragNativeItem(kind, e.Transfer)
	}
}

func (b *Backend) handleDragEnter(_ *Event, targetID string) {
	b.dragEnterTargetIDs = append(b.dragEnterTargetIDs, targetID)
}

func (b *Backend) handleTopDragEnter(e *Event) {
	ids := b.dragEnterTargetIDs
	b.dragEnterTargetIDs = nil

	if !b.monitor.IsDragging() {
		// An external drag whose payload matches nothing we translate.
		return
	}

	b.altKeyDown = e.Modifiers&ModAlt != 0

	if b.hoverOnEnter {
		b.actions.Hover(ids, HoverOptions{ClientOffset: EventClientOffset(e)})
	}

	if b.canDropOnAny(ids) {
		e.PreventDefault()
		if e.Transfer != nil {
			e.Transfer.DropEffect = b.currentDropEffect()
		}
	}
}

// --- Drag over ---

func (b *Backend) handleTopDragOverCapture(e *Event) {
	b.dragOverTargetIDs = nil

	if b.isDraggingNativeItem() && b.currentNativeSource != nil && e.Transfer != nil {
		b.currentNativeSource.loadDataTransfer(e.Transfer)
	}
}

func (b *Backend) handleDragOver(_ *Event, targetID string) {
	b.dragOverTargetIDs = append(b.dragOverTargetIDs, targetID)
}

func (b *Backend) handleTopDragOver(e *Event) {
	ids := b.dragOverTargetIDs
	b.dragOverTargetIDs = nil

	if !b.monitor.IsDragging() {
		// Unrecognized external drag. Cancel it anyway or the host's
		// default action replaces the document on release.
		e.PreventDefault()
		if e.Transfer != nil {
			e.Transfer.DropEffect = DropEffectNone
		}
		return
	}

	b.altKeyDown = e.Modifiers&ModAlt != 0

	b.actions.Hover(ids, HoverOptions{ClientOffset: EventClientOffset(e)})

	switch {
	case b.canDropOnAny(ids):
		e.PreventDefault()
		if e.Transfer != nil {
			e.Transfer.DropEffect = b.currentDropEffect()
		}
	case b.isDraggingNativeItem():
		// No drop cursor, but the gesture must stay cancelled.
		e.PreventDefault()
	default:
		e.PreventDefault()
		if e.Transfer != nil {
			e.Transfer.DropEffect = DropEffectNone
		}
	}
}

// --- Drag leave ---

func (b *Backend) handleTopDragLeaveCapture(e *Event) {
	if b.isDraggingNativeItem() {
		e.PreventDefault()
	}

	isLastLeave := b.enterLeave.Leave(e.Target)
	if !isLastLeave {
		return
	}

	if b.isDraggingNativeItem() {
		// End on the next frame: hosts fire leave/enter pairs while the
		// pointer crosses element borders, and those must not kill the
		// session.
		b.cancelNativeEnd = b.doc.RequestFrame(func() {
			b.cancelNativeEnd = nil
			b.endDragNativeItem()
		})
	}
}

// --- Drop ---

func (b *Backend) handleTopDropCapture(e *Event) {
	b.dropTargetIDs = nil

	// Always cancelled, whatever the session state; the host's default
	// action for an unrecognized native drop replaces the document.
	e.PreventDefault()

	if b.isDraggingNativeItem() && b.currentNativeSource != nil && e.Transfer != nil {
		// The payload unlocks at drop; consumers must see it complete.
		b.currentNativeSource.loadDataTransfer(e.Transfer)
	}

	// The drop's side effects can rearrange the tree under the pointer.
	b.enterLeave.Reset()
}

func (b *Backend) handleDrop(_ *Event, targetID string) {
	b.dropTargetIDs = append(b.dropTargetIDs, targetID)
}

func (b *Backend) handleTopDrop(e *Event) {
	ids := b.dropTargetIDs
	b.dropTargetIDs = nil

	b.actions.Hover(ids, HoverOptions{ClientOffset: EventClientOffset(e)})
	b.actions.Drop(DropOptions{DropEffect: b.currentDropEffect()})

	if b.isDraggingNativeItem() {
		b.endDragNativeItem()
	} else {
		// The drop handlers may have removed the source node, in which
		// case no dragend will follow.
		b.endDragIfSourceWasRemovedFromDOM()
	}
}

// --- Select start ---

func (b *Backend) handleSelectStart(e *Event) {
	target := e.Target
	if target == nil || target.ActivateDragDrop == nil {
		return
	}

	// Text controls keep their native selection gesture.
	switch target.Kind {
	case KindTextInput, KindTextArea, KindEditable:
		return
	}

	e.PreventDefault()
	target.ActivateDragDrop()
}

// --- Native sessions ---

func (b *Backend) beginDragNativeItem(kind ItemType, t *DataTransfer) {
	b.clearCurrentDragSourceNode()

	b.currentNativeSource = newNativeSource(kind, t)
	b.currentNativeHandle = b.registry.AddSource(kind, b.currentNativeSource)
	b.actions.BeginDrag([]string{b.currentNativeHandle}, BeginDragOptions{
		PublishSource: true,
	})
}

func (b *Backend) endDragNativeItem() {
	if !b.isDraggingNativeItem() {
		return
	}
	b.actions.EndDrag()
	if b.currentNativeHandle != "" {
		b.registry.RemoveSource(b.currentNativeHandle)
	}
	b.currentNativeHandle = ""
	b.currentNativeSource = nil
}

func (b *Backend) isDraggingNativeItem() bool {
	switch b.monitor.ItemType() {
	case NativeFile, NativeURL, NativeText:
		return true
	}
	return false
}

// --- Source removal watch ---

func (b *Backend) setCurrentDragSourceNode(node *Element) {
	b.clearCurrentDragSourceNode()
	b.currentSourceNode = node

	// Hosts stop delivering drag events, including the final dragend,
	// once the source node leaves the document, so a plain pointer move
	// while a session is active means the gesture already died. The
	// watch arms only after a settle delay because pointer moves can
	// arrive interleaved with the drag preview paint at gesture start.
	b.cancelRemovalWatch = b.doc.After(b.removalWatchDelay, func() {
		b.cancelRemovalWatch = nil
		b.removalWatchHandle = b.doc.Root().OnCapture(EventPointerMove, func(*Event) {
			b.endDragIfSourceWasRemovedFromDOM()
		})
	})
}

// clearCurrentDragSourceNode reports whether there was a node to clear,
// disarming the removal watch with it.
func (b *Backend) clearCurrentDragSourceNode() bool {
	if b.currentSourceNode == nil {
		return false
	}
	b.currentSourceNode = nil
	if b.cancelRemovalWatch != nil {
		b.cancelRemovalWatch()
		b.cancelRemovalWatch = nil
	}
	b.removalWatchHandle.Remove()
	b.removalWatchHandle = ListenerHandle{}
	return true
}

func (b *Backend) endDragIfSourceWasRemovedFromDOM() {
	node := b.currentSourceNode
	if node == nil || b.isNodeInDocument(node) {
		return
	}
	if b.clearCurrentDragSourceNode() && b.monitor.IsDragging() {
		b.actions.EndDrag()
	}
}

// --- Policy helpers ---

func (b *Backend) canDropOnAny(ids []string) bool {
	for _, id := range ids {
		if b.monitor.CanDropOnTarget(id) {
			return true
		}
	}
	return false
}

// currentDropEffect picks the advertised effect for the active session:
// native payloads copy, registered sources follow their configured
// override, and otherwise the alt modifier turns move into copy.
func (b *Backend) currentDropEffect() DropEffect {
	if b.isDraggingNativeItem() {
		return DropEffectCopy
	}
	if opts, ok := b.sourceOptions[b.monitor.SourceID()]; ok && opts.DropEffect != DropEffectNone {
		return opts.DropEffect
	}
	if b.altKeyDown {
		return DropEffectCopy
	}
	return DropEffectMove
}

func (b *Backend) currentSourcePreviewOptions() PreviewOptions {
	if opts, ok := b.sourcePreviewOptions[b.monitor.SourceID()]; ok {
		return opts
	}
	return DefaultPreviewOptions()
}

func (b *Backend) sourceClientOffset(sourceID string) (Point, bool) {
	return NodeClientOffset(b.sourceNodes[sourceID])
}
