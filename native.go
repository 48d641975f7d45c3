package grapple

import "strings"

// --- Native drags ---

// Item types reported for drags that originate outside the application.
// Drop targets register against these to accept external files, URLs or
// plain text alongside application-defined types.
const (
	NativeFile ItemType = "__NATIVE_FILE__"
	NativeURL  ItemType = "__NATIVE_URL__"
	NativeText ItemType = "__NATIVE_TEXT__"
)

// NativeItem is the drag item produced for a native session. Which fields
// are populated depends on the session's item type; Types always lists the
// transfer's declared payload types.
type NativeItem struct {
	Files []File
	URLs  []string
	Text  string
	Types []string
}

type nativeTypeConfig struct {
	matchesTypes []string
	read         func(*NativeItem, *DataTransfer)
}

// nativeTypePriority orders detection: a transfer declaring both file and
// text types is a file drag.
var nativeTypePriority = []ItemType{NativeFile, NativeURL, NativeText}

var nativeTypeConfigs = map[ItemType]nativeTypeConfig{
	NativeFile: {
		matchesTypes: []string{"files"},
		read: func(item *NativeItem, t *DataTransfer) {
			item.Files = t.Files()
		},
	},
	NativeURL: {
		matchesTypes: []string{"url", "text/uri-list"},
		read: func(item *NativeItem, t *DataTransfer) {
			item.URLs = item.URLs[:0]
			for _, raw := range strings.Split(transferData(t, "url", "text/uri-list"), "\n") {
				raw = strings.TrimSuffix(raw, "\r")
				if raw != "" {
					item.URLs = append(item.URLs, raw)
				}
			}
		},
	},
	NativeText: {
		matchesTypes: []string{"text", "text/plain"},
		read: func(item *NativeItem, t *DataTransfer) {
			item.Text = transferData(t, "text", "text/plain")
		},
	},
}

// transferData reads the first declared type matching any of the given
// names. Transfers are protected until drop, so read failures mean "not
// yet" rather than "never"; they read as empty here and the caller retries
// from a later event.
func transferData(t *DataTransfer, names ...string) string {
	for _, typ := range t.Types() {
		for _, name := range names {
			if strings.EqualFold(typ, name) {
				s, err := t.Data(typ)
				if err != nil {
					return ""
				}
				return s
			}
		}
	}
	return ""
}

// matchNativeItemType returns the native item type matching the transfer's
// declared types, or "" for an application-internal drag.
func matchNativeItemType(t *DataTransfer) ItemType {
	if t == nil {
		return ""
	}
	for _, kind := range nativeTypePriority {
		cfg := nativeTypeConfigs[kind]
		for _, typ := range t.Types() {
			for _, name := range cfg.matchesTypes {
				if strings.EqualFold(typ, name) {
					return kind
				}
			}
		}
	}
	return ""
}

// nativeSource adapts a native session to the Source interface so the
// translator can register it like any application source.
type nativeSource struct {
	kind ItemType
	item NativeItem
}

func newNativeSource(kind ItemType, t *DataTransfer) *nativeSource {
	s := &nativeSource{kind: kind}
	if t != nil {
		s.loadDataTransfer(t)
	}
	return s
}

// loadDataTransfer refreshes the item from the transfer. Called on every
// enter and over so the item is as complete as the transfer's current mode
// allows, and once more at drop when the payload finally unlocks.
func (s *nativeSource) loadDataTransfer(t *DataTransfer) {
	s.item.Types = t.Types()
	if cfg, ok := nativeTypeConfigs[s.kind]; ok && cfg.read != nil {
		cfg.read(&s.item, t)
	}
}

func (s *nativeSource) CanDrag() bool { return true }

// BeginDrag returns a pointer so that later loadDataTransfer calls are
// visible to consumers holding the item.
func (s *nativeSource) BeginDrag() any { return &s.item }

func (s *nativeSource) EndDrag() {}
