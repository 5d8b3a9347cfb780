package vdom

import (
	"strings"
)

// Walk visits node and its descendants depth-first until fn returns false.
func Walk(node *VNode, fn func(*VNode) bool) bool {
	if node == nil {
		return true
	}
	if !fn(node) {
		return false
	}
	for _, child := range node.Children {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// Find returns the first element matching pred, or nil.
func Find(node *VNode, pred func(*VNode) bool) *VNode {
	var found *VNode
	Walk(node, func(n *VNode) bool {
		if n.Kind == KindElement && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element matching pred in document order.
func FindAll(node *VNode, pred func(*VNode) bool) []*VNode {
	var found []*VNode
	Walk(node, func(n *VNode) bool {
		if n.Kind == KindElement && pred(n) {
			found = append(found, n)
		}
		return true
	})
	return found
}

// FindByID returns the element with the given id attribute.
func FindByID(node *VNode, id string) *VNode {
	return Find(node, func(n *VNode) bool { return n.Attr("id") == id })
}

// FindByClass returns every element carrying class.
func FindByClass(node *VNode, class string) []*VNode {
	return FindAll(node, func(n *VNode) bool { return n.HasClass(class) })
}

// FindByHID returns the element with the given hydration ID.
func FindByHID(node *VNode, hid string) *VNode {
	if hid == "" {
		return nil
	}
	return Find(node, func(n *VNode) bool { return n.HID == hid })
}

// HasClass reports whether the element's class list contains class.
func (v *VNode) HasClass(class string) bool {
	for _, c := range strings.Fields(v.Attr("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// TextContent concatenates the text of node and its descendants.
func TextContent(node *VNode) string {
	var b strings.Builder
	Walk(node, func(n *VNode) bool {
		if n.Kind == KindText {
			b.WriteString(n.Text)
		}
		return true
	})
	return b.String()
}
