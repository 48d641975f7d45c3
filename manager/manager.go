// Package manager provides a ready-made drag state store implementing the
// collaborator interfaces a grapple.Backend drives: it resolves which
// candidate source wins a gesture, tracks the hovered targets, and hands
// dropped items to the accepting target.
package manager

import (
	"strconv"

	"github.com/phanxgames/grapple"
)

// Target receives drops. CanDrop is consulted while the item hovers;
// Drop fires once if the gesture releases over the target.
type Target interface {
	CanDrop(item any) bool
	Drop(item any, effect grapple.DropEffect)
}

type targetEntry struct {
	accepts grapple.ItemType
	target  Target
}

type subscriberEntry struct {
	id uint32
	fn func()
}

// Manager is a single-threaded drag state store. One struct implements
// grapple.Manager and all three collaborator surfaces; like the rest of
// grapple it must only be used from the pump goroutine.
type Manager struct {
	sources     map[string]grapple.Source
	sourceTypes map[string]grapple.ItemType
	targets     map[string]targetEntry

	nextSourceID int
	nextTargetID int

	dragging            bool
	sourceID            string
	itemType            grapple.ItemType
	item                any
	sourcePublic        bool
	clientOffset        grapple.Point
	initialSourceOffset grapple.Point
	hasInitialOffset    bool
	lastHoverIDs        []string

	subscribers []subscriberEntry
	nextSubID   uint32
}

func New() *Manager {
	return &Manager{
		sources:     make(map[string]grapple.Source),
		sourceTypes: make(map[string]grapple.ItemType),
		targets:     make(map[string]targetEntry),
	}
}

func (m *Manager) Actions() grapple.Actions   { return m }
func (m *Manager) Monitor() grapple.Monitor   { return m }
func (m *Manager) Registry() grapple.Registry { return m }

// --- Registration ---

// AddSource registers src as draggable under a fresh id, producing items
// of type t.
func (m *Manager) AddSource(t grapple.ItemType, src grapple.Source) string {
	m.nextSourceID++
	id := "S" + strconv.Itoa(m.nextSourceID)
	m.sources[id] = src
	m.sourceTypes[id] = t
	return id
}

func (m *Manager) RemoveSource(id string) {
	delete(m.sources, id)
	delete(m.sourceTypes, id)
}

// RegisterTarget registers tgt under a fresh id to receive items of
// type t.
func (m *Manager) RegisterTarget(t grapple.ItemType, tgt Target) string {
	m.nextTargetID++
	id := "T" + strconv.Itoa(m.nextTargetID)
	m.targets[id] = targetEntry{accepts: t, target: tgt}
	return id
}

func (m *Manager) UnregisterTarget(id string) {
	delete(m.targets, id)
}

// --- Actions ---

// BeginDrag opens a session with the first candidate whose source agrees
// to drag. Candidates arrive innermost-first, so the most nested willing
// source wins. With no willing candidate, no session opens.
func (m *Manager) BeginDrag(sourceIDs []string, opts grapple.BeginDragOptions) {
	if m.dragging {
		panic("manager: BeginDrag called while a drag is active")
	}

	for _, id := range sourceIDs {
		src, ok := m.sources[id]
		if !ok || !src.CanDrag() {
			continue
		}

		m.dragging = true
		m.sourceID = id
		m.itemType = m.sourceTypes[id]
		m.item = src.BeginDrag()
		m.sourcePublic = opts.PublishSource
		m.clientOffset = opts.ClientOffset
		if opts.GetSourceClientOffset != nil {
			m.initialSourceOffset, m.hasInitialOffset = opts.GetSourceClientOffset(id)
		}
		m.notify()
		return
	}
}

// PublishDragSource makes a session begun unpublished visible to
// consumers. No-op outside that window.
func (m *Manager) PublishDragSource() {
	if !m.dragging || m.sourcePublic {
		return
	}
	m.sourcePublic = true
	m.notify()
}

// Hover records the targets currently under the pointer, innermost
// first. Ids whose targets have unregistered since the event fired, or
// whose accepted type doesn't match the dragged item, are dropped rather
// than erroring.
func (m *Manager) Hover(targetIDs []string, opts grapple.HoverOptions) {
	if !m.dragging {
		return
	}

	ids := make([]string, 0, len(targetIDs))
	for _, id := range targetIDs {
		entry, ok := m.targets[id]
		if !ok || entry.accepts != m.itemType {
			continue
		}
		ids = append(ids, id)
	}
	m.lastHoverIDs = ids
	m.clientOffset = opts.ClientOffset
	m.notify()
}

// Drop delivers the item to the innermost hovered target that accepts it.
func (m *Manager) Drop(opts grapple.DropOptions) {
	if !m.dragging {
		return
	}
	for _, id := range m.lastHoverIDs {
		if !m.CanDropOnTarget(id) {
			continue
		}
		m.targets[id].target.Drop(m.item, opts.DropEffect)
		break
	}
	m.notify()
}

// EndDrag closes the active session, whether it dropped or not.
func (m *Manager) EndDrag() {
	if !m.dragging {
		panic("manager: EndDrag called while no drag is active")
	}
	if src, ok := m.sources[m.sourceID]; ok {
		src.EndDrag()
	}
	m.dragging = false
	m.sourceID = ""
	m.itemType = ""
	m.item = nil
	m.sourcePublic = false
	m.lastHoverIDs = nil
	m.hasInitialOffset = false
	m.notify()
}

// --- Monitor ---

func (m *Manager) IsDragging() bool { return m.dragging }

func (m *Manager) ItemType() grapple.ItemType { return m.itemType }

func (m *Manager) SourceID() string { return m.sourceID }

// CanDropOnTarget reports whether the active item may land on the
// target: registered, accepting the dragged type, and agreeing to this
// particular item.
func (m *Manager) CanDropOnTarget(targetID string) bool {
	if !m.dragging {
		return false
	}
	entry, ok := m.targets[targetID]
	return ok && entry.accepts == m.itemType && entry.target.CanDrop(m.item)
}

// --- State accessors ---

// Item returns the payload produced by the active source's BeginDrag,
// or nil with no session.
func (m *Manager) Item() any { return m.item }

// IsSourcePublic reports whether consumers should reflect the active
// session yet; it trails IsDragging by a pump when publishing deferred.
func (m *Manager) IsSourcePublic() bool { return m.sourcePublic }

// ClientOffset returns the pointer position from the latest begin or
// hover.
func (m *Manager) ClientOffset() grapple.Point { return m.clientOffset }

// InitialSourceOffset returns the source element's top-left corner at
// gesture start. ok is false when the source had no connected element.
func (m *Manager) InitialSourceOffset() (p grapple.Point, ok bool) {
	return m.initialSourceOffset, m.hasInitialOffset
}

// HoverTargetIDs returns the targets from the latest hover, innermost
// first. The returned slice MUST NOT be mutated by the caller.
func (m *Manager) HoverTargetIDs() []string { return m.lastHoverIDs }

// --- Subscriptions ---

// Subscribe registers fn to run after every state change. The returned
// function unsubscribes and is safe to call more than once.
func (m *Manager) Subscribe(fn func()) func() {
	m.nextSubID++
	id := m.nextSubID
	m.subscribers = append(m.subscribers, subscriberEntry{id: id, fn: fn})
	return func() {
		for i := range m.subscribers {
			if m.subscribers[i].id == id {
				copy(m.subscribers[i:], m.subscribers[i+1:])
				m.subscribers[len(m.subscribers)-1] = subscriberEntry{}
				m.subscribers = m.subscribers[:len(m.subscribers)-1]
				return
			}
		}
	}
}

// notify runs over a snapshot so subscribers may unsubscribe mid-call.
func (m *Manager) notify() {
	subs := make([]subscriberEntry, len(m.subscribers))
	copy(subs, m.subscribers)
	for _, s := range subs {
		s.fn()
	}
}
