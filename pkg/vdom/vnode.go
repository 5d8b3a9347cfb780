package vdom

import "strings"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindRaw                   // Raw HTML (trusted markup only)
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// VNode is a node of the virtual tree.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes and event handlers
	Children []*VNode // Child nodes
	Key      string   // Stable identity among siblings
	Text     string   // For KindText and KindRaw
	HID      string   // Hydration ID (assigned before render)
}

// Props holds attributes and event handlers.
type Props map[string]any

// IsInteractive returns true if this node has event handlers and needs a HID.
func (v *VNode) IsInteractive() bool {
	if v == nil || v.Kind != KindElement {
		return false
	}
	for key := range v.Props {
		if isEventKey(key) {
			return true
		}
	}
	return false
}

// Attr returns the string form of an attribute value, or "" when absent.
func (v *VNode) Attr(key string) string {
	if v == nil || v.Props == nil {
		return ""
	}
	switch val := v.Props[key].(type) {
	case string:
		return val
	case bool:
		if val {
			return key
		}
	case nil:
	default:
		return formatValue(val)
	}
	return ""
}

// HasAttr reports whether the attribute is set to a non-false value.
func (v *VNode) HasAttr(key string) bool {
	if v == nil || v.Props == nil {
		return false
	}
	val, ok := v.Props[key]
	if !ok || val == nil {
		return false
	}
	if b, isBool := val.(bool); isBool {
		return b
	}
	return true
}

func isEventKey(key string) bool {
	return strings.HasPrefix(key, "on") && len(key) > 2
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// EventHandler represents an event handler.
type EventHandler struct {
	Event   string // "onclick", "oninput", etc.
	Handler any    // func(), func(Event) or func(string)
}
