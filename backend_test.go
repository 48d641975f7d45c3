package grapple

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"
)

// --- Mock dispatcher ---

// mockManager records protocol traffic and mimics the dispatcher just enough
// for the translator: the first registered source in a BeginDrag candidate
// list that can drag becomes the active session.
type mockManager struct {
	calls []string

	dragging bool
	sourceID string
	itemType ItemType
	item     any

	sources    map[string]Source
	sourceType map[string]ItemType
	canDrop    map[string]bool

	sourceOffsetFn func(string) (Point, bool)
	nextNativeID   int
}

func newMockManager() *mockManager {
	return &mockManager{
		sources:    make(map[string]Source),
		sourceType: make(map[string]ItemType),
		canDrop:    make(map[string]bool),
	}
}

func (m *mockManager) Actions() Actions   { return m }
func (m *mockManager) Monitor() Monitor   { return m }
func (m *mockManager) Registry() Registry { return m }

// register wires a source under a fixed id, the way application code
// registers with the real dispatcher before connecting elements.
func (m *mockManager) register(id string, t ItemType, s Source) {
	m.sources[id] = s
	m.sourceType[id] = t
}

func (m *mockManager) joined() string { return strings.Join(m.calls, ", ") }

func (m *mockManager) BeginDrag(sourceIDs []string, opts BeginDragOptions) {
	m.calls = append(m.calls, fmt.Sprintf("beginDrag %v publish=%v", sourceIDs, opts.PublishSource))
	m.sourceOffsetFn = opts.GetSourceClientOffset
	for _, id := range sourceIDs {
		src, ok := m.sources[id]
		if !ok || !src.CanDrag() {
			continue
		}
		m.dragging = true
		m.sourceID = id
		m.itemType = m.sourceType[id]
		m.item = src.BeginDrag()
		return
	}
}

func (m *mockManager) PublishDragSource() {
	m.calls = append(m.calls, "publish")
}

func (m *mockManager) Hover(targetIDs []string, opts HoverOptions) {
	m.calls = append(m.calls, fmt.Sprintf("hover %v", targetIDs))
}

func (m *mockManager) Drop(opts DropOptions) {
	m.calls = append(m.calls, fmt.Sprintf("drop %s", opts.DropEffect))
}

func (m *mockManager) EndDrag() {
	m.calls = append(m.calls, "endDrag")
	if src, ok := m.sources[m.sourceID]; ok {
		src.EndDrag()
	}
	m.dragging = false
	m.sourceID = ""
	m.itemType = ""
	m.item = nil
}

func (m *mockManager) IsDragging() bool                     { return m.dragging }
func (m *mockManager) ItemType() ItemType                   { return m.itemType }
func (m *mockManager) SourceID() string                     { return m.sourceID }
func (m *mockManager) CanDropOnTarget(targetID string) bool { return m.canDrop[targetID] }

func (m *mockManager) AddSource(t ItemType, s Source) string {
	m.nextNativeID++
	id := "N" + strconv.Itoa(m.nextNativeID)
	m.sources[id] = s
	m.sourceType[id] = t
	m.calls = append(m.calls, "addSource "+string(t))
	return id
}

func (m *mockManager) RemoveSource(id string) {
	m.calls = append(m.calls, "removeSource")
	delete(m.sources, id)
	delete(m.sourceType, id)
}

type stubSource struct {
	canDrag bool
	item    any
	ended   int
}

func (s *stubSource) CanDrag() bool  { return s.canDrag }
func (s *stubSource) BeginDrag() any { return s.item }
func (s *stubSource) EndDrag()       { s.ended++ }

// --- Fixtures ---

func backendFixture(t *testing.T) (*mockManager, *Backend, *Document) {
	t.Helper()
	m := newMockManager()
	doc := NewDocument()
	b := NewBackend(m, doc)
	if err := b.Setup(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Teardown)
	return m, b, doc
}

// cardFixture wires one draggable card and one drop slot the session tests
// share: source "card-1" at (100, 100), target "slot-1" that accepts it.
func cardFixture(t *testing.T) (m *mockManager, b *Backend, doc *Document, card, slot *Element) {
	t.Helper()
	m, b, doc = backendFixture(t)

	card = NewElement("card")
	card.Bounds = Rect{X: 100, Y: 100, Width: 80, Height: 40}
	doc.Root().AddChild(card)
	m.register("card-1", "card", &stubSource{canDrag: true, item: "ace"})
	b.ConnectDragSource("card-1", card, nil)

	slot = NewElement("slot")
	slot.Bounds = Rect{X: 300, Y: 100, Width: 100, Height: 60}
	doc.Root().AddChild(slot)
	m.canDrop["slot-1"] = true
	b.ConnectDropTarget("slot-1", slot)
	return m, b, doc, card, slot
}

// --- Lifecycle ---

func TestSetupTwiceFails(t *testing.T) {
	m, b, doc := backendFixture(t)

	second := NewBackend(m, doc)
	if err := second.Setup(); !errors.Is(err, ErrBackendInstalled) {
		t.Fatalf("second Setup = %v, want ErrBackendInstalled", err)
	}

	b.Teardown()
	if err := second.Setup(); err != nil {
		t.Errorf("Setup after Teardown = %v, want nil", err)
	}
	second.Teardown()
}

func TestTeardownStopsTranslation(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)

	b.Teardown()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, Transfer: NewDataTransfer()})

	if len(m.calls) != 0 {
		t.Errorf("calls after teardown = %q, want none", m.joined())
	}
	// Teardown again must be harmless.
	b.Teardown()
}

func TestTeardownCancelsPendingPublish(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: NewDataTransfer()})
	b.Teardown()
	doc.Step(time.Millisecond)

	// Only the dragstart's own call; the cancelled publish never lands.
	want := "beginDrag [card-1] publish=false"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

// --- Connections ---

func TestConnectDragSourceDetach(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)

	detach := b.ConnectDragSource("card-1", card, nil)
	if !card.Draggable {
		t.Fatal("connected source should be draggable")
	}

	detach()
	if card.Draggable {
		t.Error("detached source should not be draggable")
	}

	e := &Event{Kind: EventDragStart, Target: card, Transfer: NewDataTransfer()}
	doc.Dispatch(e)

	want := "beginDrag [] publish=false"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
	if m.IsDragging() {
		t.Error("no session should begin for a detached source")
	}
	if e.DefaultPrevented() {
		t.Error("a drag from a detached source should fall through to the host")
	}

	// Detaching twice must be harmless.
	detach()
}

func TestReconnectSourceReplacesPrevious(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)

	replacement := NewElement("replacement")
	replacement.Bounds = Rect{X: 200, Y: 200, Width: 80, Height: 40}
	doc.Root().AddChild(replacement)
	b.ConnectDragSource("card-1", replacement, nil)

	if card.Draggable {
		t.Error("replaced node should no longer be draggable")
	}
	if !replacement.Draggable {
		t.Error("replacement node should be draggable")
	}

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, Transfer: NewDataTransfer()})
	if m.IsDragging() {
		t.Fatal("replaced node should no longer start the session")
	}

	m.calls = nil
	doc.Dispatch(&Event{Kind: EventDragStart, Target: replacement, Transfer: NewDataTransfer()})
	want := "beginDrag [card-1] publish=false"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

// --- Drag start ---

func TestDragStartCollectsSourcesInnermostFirst(t *testing.T) {
	m, b, doc := backendFixture(t)

	outer := NewElement("outer")
	inner := NewElement("inner")
	doc.Root().AddChild(outer)
	outer.AddChild(inner)
	m.register("outer-1", "box", &stubSource{canDrag: true})
	m.register("inner-1", "box", &stubSource{canDrag: true})
	b.ConnectDragSource("outer-1", outer, nil)
	b.ConnectDragSource("inner-1", inner, nil)

	doc.Dispatch(&Event{Kind: EventDragStart, Target: inner, Transfer: NewDataTransfer()})

	want := "beginDrag [inner-1 outer-1] publish=false"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
	if m.SourceID() != "inner-1" {
		t.Errorf("active source = %q, want the innermost", m.SourceID())
	}
}

func TestVetoedDragStartDispatchesNothing(t *testing.T) {
	m, b, doc := backendFixture(t)

	card := NewElement("card")
	doc.Root().AddChild(card)
	// The application's own handler runs first and vetoes the gesture.
	card.On(EventDragStart, func(e *Event) { e.PreventDefault() })
	m.register("card-1", "card", &stubSource{canDrag: true})
	b.ConnectDragSource("card-1", card, nil)

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, Transfer: NewDataTransfer()})

	if len(m.calls) != 0 {
		t.Errorf("calls = %q, want none for a vetoed drag", m.joined())
	}
}

func TestDragStartEndsStaleSession(t *testing.T) {
	m, _, doc, card, _ := cardFixture(t)

	// A previous gesture whose dragend never arrived.
	m.dragging = true

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, Transfer: NewDataTransfer()})

	want := "endDrag, beginDrag [card-1] publish=false"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestDragStartCancelsStalePublish(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)

	// Two gestures in one pump. The first one's deferred publish must not
	// survive the second dragstart, or it leaks past teardown.
	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 150, Y: 120, Transfer: transfer})
	b.Teardown()
	doc.Step(time.Millisecond)

	want := "beginDrag [card-1] publish=false, endDrag, beginDrag [card-1] publish=false"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestBeginDragResolvesSourceOffsets(t *testing.T) {
	m, _, doc, card, _ := cardFixture(t)

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: NewDataTransfer()})

	if m.sourceOffsetFn == nil {
		t.Fatal("BeginDrag should receive a source offset resolver")
	}
	p, ok := m.sourceOffsetFn("card-1")
	if !ok || p.X != 100 || p.Y != 100 {
		t.Errorf("offset for card-1 = %v, %v, want (100, 100), true", p, ok)
	}
	if _, ok := m.sourceOffsetFn("nobody"); ok {
		t.Error("unknown ids should resolve to no offset")
	}
}

func TestDragStartSetsPreviewAndSeedData(t *testing.T) {
	_, b, doc, card, _ := cardFixture(t)

	preview := NewElement("preview")
	preview.Kind = KindImage
	preview.Bounds = Rect{X: 0, Y: 0, Width: 160, Height: 80}
	b.ConnectDragPreview("card-1", preview, nil)

	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})

	// Grabbed dead center with a preview twice the card's size: the grab
	// point scales to the preview's center.
	el, x, y := transfer.DragImage()
	if el != preview {
		t.Fatal("drag image should be the connected preview")
	}
	if x != 80 || y != 40 {
		t.Errorf("drag image anchor = (%v, %v), want (80, 40)", x, y)
	}

	// Some hosts refuse to start a drag with an empty transfer.
	if got, _ := transfer.Data("application/json"); got != "{}" {
		t.Errorf("seed data = %q, want %q", got, "{}")
	}
}

func TestUnrecognizedDragStartIsCancelled(t *testing.T) {
	_, _, doc := backendFixture(t)

	stray := NewElement("stray")
	doc.Root().AddChild(stray)

	tests := []struct {
		name          string
		setup         func(*DataTransfer)
		wantPrevented bool
	}{
		// Zero declared types from a non-draggable element is the host
		// dragging selected text; it must be left alone.
		{"text selection", func(*DataTransfer) {}, false},
		{"unknown payload", func(tr *DataTransfer) { tr.SetData("application/x-card", "ace") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transfer := NewDataTransfer()
			tt.setup(transfer)
			e := &Event{Kind: EventDragStart, Target: stray, Transfer: transfer}
			doc.Dispatch(e)
			if e.DefaultPrevented() != tt.wantPrevented {
				t.Errorf("prevented = %v, want %v", e.DefaultPrevented(), tt.wantPrevented)
			}
		})
	}
}

// --- Session sequencing ---

func TestFullGestureSequence(t *testing.T) {
	m, _, doc, card, slot := cardFixture(t)
	src := &stubSource{canDrag: true, item: "ace"}
	m.register("card-1", "card", src)

	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})
	doc.Step(time.Millisecond) // deferred publish
	transfer.setMode(transferProtected)
	doc.Dispatch(&Event{Kind: EventDragEnter, Target: slot, X: 310, Y: 110, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragOver, Target: slot, X: 320, Y: 120, Transfer: transfer})
	transfer.setMode(transferReadOnly)
	doc.Dispatch(&Event{Kind: EventDrop, Target: slot, X: 320, Y: 120, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragEnd, Target: card, Transfer: transfer})

	want := "beginDrag [card-1] publish=false, publish, hover [slot-1], hover [slot-1], hover [slot-1], drop move, endDrag"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
	if src.ended != 1 {
		t.Errorf("source EndDrag ran %d times, want 1", src.ended)
	}
	if m.IsDragging() {
		t.Error("session should be over")
	}
}

func TestPublishIsDeferredToNextStep(t *testing.T) {
	m, _, doc, card, _ := cardFixture(t)

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: NewDataTransfer()})

	want := "beginDrag [card-1] publish=false"
	if got := m.joined(); got != want {
		t.Fatalf("calls before step = %q, want %q", got, want)
	}

	doc.Step(time.Millisecond)
	want = "beginDrag [card-1] publish=false, publish"
	if got := m.joined(); got != want {
		t.Errorf("calls after step = %q, want %q", got, want)
	}
}

func TestCaptureDraggingStatePublishesInDispatch(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)

	opts := DefaultPreviewOptions()
	opts.CaptureDraggingState = true
	b.ConnectDragPreview("card-1", card, &opts)

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: NewDataTransfer()})

	want := "beginDrag [card-1] publish=false, publish"
	if got := m.joined(); got != want {
		t.Fatalf("calls = %q, want %q", got, want)
	}

	// Nothing left to publish on the pump.
	doc.Step(time.Millisecond)
	if got := m.joined(); got != want {
		t.Errorf("calls after step = %q, want %q", got, want)
	}
}

func TestDragEndIsIdempotent(t *testing.T) {
	m, _, doc, card, slot := cardFixture(t)

	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDrop, Target: slot, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragEnd, Target: card, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragEnd, Target: card, Transfer: transfer})

	if got := strings.Count(m.joined(), "endDrag"); got != 1 {
		t.Errorf("endDrag ran %d times, want 1: %q", got, m.joined())
	}
}

// --- Enter, over, leave ---

func TestNestedTargetsHoverInnermostFirst(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)

	outer := NewElement("outer")
	outer.Bounds = Rect{X: 250, Y: 200, Width: 200, Height: 120}
	inner := NewElement("inner")
	inner.Bounds = Rect{X: 280, Y: 220, Width: 100, Height: 60}
	doc.Root().AddChild(outer)
	outer.AddChild(inner)
	m.canDrop["outer-1"] = true
	m.canDrop["inner-1"] = true
	b.ConnectDropTarget("outer-1", outer)
	b.ConnectDropTarget("inner-1", inner)

	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})
	transfer.setMode(transferProtected)
	doc.Dispatch(&Event{Kind: EventDragEnter, Target: inner, X: 300, Y: 230, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragOver, Target: inner, X: 310, Y: 240, Transfer: transfer})
	transfer.setMode(transferReadOnly)
	doc.Dispatch(&Event{Kind: EventDrop, Target: inner, X: 310, Y: 240, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragEnd, Target: card, Transfer: transfer})

	// The inner target bubbles first, so every candidate list reaches the
	// dispatcher innermost-first.
	want := "beginDrag [card-1] publish=false, hover [inner-1 outer-1], hover [inner-1 outer-1], " +
		"hover [inner-1 outer-1], drop move, endDrag"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestEnterHoverCanBeDisabled(t *testing.T) {
	m, b, doc, card, slot := cardFixture(t)
	b.SetEnterHover(false)

	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})
	enter := &Event{Kind: EventDragEnter, Target: slot, X: 310, Y: 110, Transfer: transfer}
	doc.Dispatch(enter)
	doc.Dispatch(&Event{Kind: EventDragOver, Target: slot, X: 320, Y: 120, Transfer: transfer})

	want := "beginDrag [card-1] publish=false, hover [slot-1]"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
	// The enter still advertises the drop even without a hover.
	if !enter.DefaultPrevented() {
		t.Error("enter over a droppable target should still be prevented")
	}
}

func TestDragOverWithoutSessionIsCancelled(t *testing.T) {
	m, _, doc := backendFixture(t)

	transfer := NewDataTransfer()
	transfer.SetData("application/x-unknown", "?")
	transfer.DropEffect = DropEffectCopy
	e := &Event{Kind: EventDragOver, Target: doc.Root(), Transfer: transfer}
	doc.Dispatch(e)

	if !e.DefaultPrevented() {
		t.Error("an unrecognized external drag must still be cancelled")
	}
	if transfer.DropEffect != DropEffectNone {
		t.Errorf("drop effect = %v, want none", transfer.DropEffect)
	}
	if len(m.calls) != 0 {
		t.Errorf("calls = %q, want none", m.joined())
	}
}

func TestDetachedTargetStopsReceivingHovers(t *testing.T) {
	m, b, doc, card, slot := cardFixture(t)
	detach := b.ConnectDropTarget("slot-1", slot)

	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragEnter, Target: slot, X: 310, Y: 110, Transfer: transfer})

	detach()
	transfer.DropEffect = DropEffectMove
	over := &Event{Kind: EventDragOver, Target: slot, X: 320, Y: 120, Transfer: transfer}
	doc.Dispatch(over)

	if !strings.HasSuffix(m.joined(), "hover []") {
		t.Errorf("calls = %q, want a final empty hover", m.joined())
	}
	if !over.DefaultPrevented() {
		t.Error("the over must stay cancelled")
	}
	if transfer.DropEffect != DropEffectNone {
		t.Errorf("drop effect = %v, want none over a detached target", transfer.DropEffect)
	}
}

// --- Drop effects ---

func TestDropEffectPolicy(t *testing.T) {
	tests := []struct {
		name      string
		opts      *SourceOptions
		modifiers KeyModifiers
		want      DropEffect
	}{
		{"default is move", nil, 0, DropEffectMove},
		{"alt copies", nil, ModAlt, DropEffectCopy},
		{"source override wins", &SourceOptions{DropEffect: DropEffectLink}, 0, DropEffectLink},
		{"override beats alt", &SourceOptions{DropEffect: DropEffectLink}, ModAlt, DropEffectLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, b, doc, card, slot := cardFixture(t)
			b.ConnectDragSource("card-1", card, tt.opts)

			transfer := NewDataTransfer()
			doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})
			doc.Dispatch(&Event{Kind: EventDragOver, Target: slot, X: 310, Y: 110, Modifiers: tt.modifiers, Transfer: transfer})

			if transfer.DropEffect != tt.want {
				t.Errorf("drop effect = %v, want %v", transfer.DropEffect, tt.want)
			}
		})
	}
}

func TestNativeDropEffectIsCopy(t *testing.T) {
	m, b, doc := backendFixture(t)

	slot := NewElement("slot")
	doc.Root().AddChild(slot)
	m.canDrop["slot-1"] = true
	b.ConnectDropTarget("slot-1", slot)

	ft := NewFileTransfer(File{Name: "notes.txt", Size: 12})
	enter := &Event{Kind: EventDragEnter, Target: slot, X: 10, Y: 10, Transfer: ft}
	doc.Dispatch(enter)

	if ft.DropEffect != DropEffectCopy {
		t.Errorf("drop effect = %v, want copy for a native drag", ft.DropEffect)
	}
}

// --- Native sessions ---

func TestNativeFileDropDeliversPayload(t *testing.T) {
	m, b, doc := backendFixture(t)

	slot := NewElement("slot")
	doc.Root().AddChild(slot)
	m.canDrop["slot-1"] = true
	b.ConnectDropTarget("slot-1", slot)

	var got *NativeItem
	slot.On(EventDrop, func(e *Event) { got, _ = m.item.(*NativeItem) })

	ft := NewFileTransfer(File{Name: "notes.txt", Size: 12})
	doc.Dispatch(&Event{Kind: EventDragEnter, Target: slot, X: 10, Y: 10, Transfer: ft})
	doc.Dispatch(&Event{Kind: EventDragOver, Target: slot, X: 12, Y: 12, Transfer: ft})
	ft.setMode(transferReadOnly)
	doc.Dispatch(&Event{Kind: EventDrop, Target: slot, X: 12, Y: 12, Transfer: ft})

	want := "addSource " + string(NativeFile) + ", beginDrag [N1] publish=true, " +
		"hover [slot-1], hover [slot-1], hover [slot-1], drop copy, endDrag, removeSource"
	if calls := m.joined(); calls != want {
		t.Errorf("calls = %q, want %q", calls, want)
	}

	if got == nil {
		t.Fatal("drop handler saw no native item")
	}
	if len(got.Files) != 1 || got.Files[0].Name != "notes.txt" {
		t.Errorf("files = %v, want the dropped notes.txt", got.Files)
	}
}

func TestNativeSessionEndsAfterLastLeave(t *testing.T) {
	m, _, doc := backendFixture(t)

	zone := NewElement("zone")
	doc.Root().AddChild(zone)

	transfer := NewDataTransfer()
	transfer.SetData("text/uri-list", "https://example.com")
	transfer.setMode(transferProtected)

	doc.Dispatch(&Event{Kind: EventDragEnter, Target: zone, X: 10, Y: 10, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragLeave, Target: zone, X: 0, Y: 0, Transfer: transfer})

	if strings.Contains(m.joined(), "endDrag") {
		t.Fatalf("calls = %q, session must survive until the next frame", m.joined())
	}

	doc.Step(time.Millisecond)
	want := "addSource " + string(NativeURL) + ", beginDrag [N1] publish=true, hover [], endDrag, removeSource"
	if got := m.joined(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestNativeSessionSurvivesLeaveEnterPairs(t *testing.T) {
	m, _, doc := backendFixture(t)

	zone := NewElement("zone")
	inner := NewElement("inner")
	doc.Root().AddChild(zone)
	zone.AddChild(inner)

	transfer := NewDataTransfer()
	transfer.SetData("text/plain", "hello")
	transfer.setMode(transferProtected)

	// Crossing into a child fires enter at the child before leave at the
	// parent. The counter must keep the session alive through the pair.
	doc.Dispatch(&Event{Kind: EventDragEnter, Target: zone, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragEnter, Target: inner, Transfer: transfer})
	doc.Dispatch(&Event{Kind: EventDragLeave, Target: zone, Transfer: transfer})
	doc.Step(time.Millisecond)

	if strings.Contains(m.joined(), "endDrag") {
		t.Errorf("calls = %q, crossing into a child must not end the session", m.joined())
	}
}

// --- Source removal ---

func TestRemovalWatchEndsOrphanedSession(t *testing.T) {
	m, b, doc, card, _ := cardFixture(t)
	b.SetRemovalWatchDelay(30 * time.Millisecond)

	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: NewDataTransfer()})

	// Before the delay the watch is not armed.
	doc.Dispatch(&Event{Kind: EventPointerMove, Target: doc.Root(), X: 150, Y: 120})
	doc.Step(50 * time.Millisecond)

	// Armed, but the source is still in the document.
	doc.Dispatch(&Event{Kind: EventPointerMove, Target: doc.Root(), X: 160, Y: 120})
	if !m.IsDragging() {
		t.Fatal("session ended while the source was still attached")
	}

	card.RemoveFromParent()
	doc.Dispatch(&Event{Kind: EventPointerMove, Target: doc.Root(), X: 170, Y: 120})
	doc.Dispatch(&Event{Kind: EventPointerMove, Target: doc.Root(), X: 180, Y: 120})

	if got := strings.Count(m.joined(), "endDrag"); got != 1 {
		t.Errorf("endDrag ran %d times, want 1: %q", got, m.joined())
	}
	if m.IsDragging() {
		t.Error("session should be over")
	}
}

func TestDropEndsSessionWhenSourceWasRemoved(t *testing.T) {
	m, _, doc, card, slot := cardFixture(t)

	transfer := NewDataTransfer()
	doc.Dispatch(&Event{Kind: EventDragStart, Target: card, X: 140, Y: 120, Transfer: transfer})

	// A drop handler rearranging the tree takes the source with it; the
	// host then never fires dragend at the detached node.
	card.RemoveFromParent()
	doc.Dispatch(&Event{Kind: EventDrop, Target: slot, X: 310, Y: 110, Transfer: transfer})

	if got := strings.Count(m.joined(), "endDrag"); got != 1 {
		t.Fatalf("endDrag ran %d times, want 1: %q", got, m.joined())
	}

	// A late dragend must not end anything twice.
	doc.Dispatch(&Event{Kind: EventDragEnd, Target: card, Transfer: transfer})
	if got := strings.Count(m.joined(), "endDrag"); got != 1 {
		t.Errorf("endDrag ran %d times after late dragend, want 1", got)
	}
}

// --- Select start ---

func TestSelectStartActivation(t *testing.T) {
	tests := []struct {
		name          string
		kind          ElementKind
		hook          bool
		wantActivated bool
		wantPrevented bool
	}{
		{"generic with hook", KindGeneric, true, true, true},
		{"generic without hook", KindGeneric, false, false, false},
		{"text input keeps selection", KindTextInput, true, false, false},
		{"textarea keeps selection", KindTextArea, true, false, false},
		{"editable keeps selection", KindEditable, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, b, doc := backendFixture(t)

			el := NewElement("el")
			el.Kind = tt.kind
			doc.Root().AddChild(el)
			activated := false
			if tt.hook {
				el.ActivateDragDrop = func() { activated = true }
			}
			b.ConnectDragSource("src-1", el, nil)

			e := &Event{Kind: EventSelectStart, Target: el}
			doc.Dispatch(e)

			if activated != tt.wantActivated {
				t.Errorf("activated = %v, want %v", activated, tt.wantActivated)
			}
			if e.DefaultPrevented() != tt.wantPrevented {
				t.Errorf("prevented = %v, want %v", e.DefaultPrevented(), tt.wantPrevented)
			}
		})
	}
}
