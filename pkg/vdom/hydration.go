package vdom

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// HIDGenerator generates unique hydration IDs for interactive elements.
type HIDGenerator struct {
	counter uint32
	mu      sync.Mutex
}

// NewHIDGenerator creates a new HIDGenerator.
func NewHIDGenerator() *HIDGenerator {
	return &HIDGenerator{}
}

// Next returns the next hydration ID (e.g., "h1", "h2", ...).
func (g *HIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("h%d", g.counter)
}

// Reset resets the counter to 0.
func (g *HIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter = 0
}

// AssignHIDs walks the tree and assigns HIDs to interactive elements.
// An element is interactive if it has event handlers (props starting with "on").
func AssignHIDs(node *VNode, gen *HIDGenerator) {
	if node == nil {
		return
	}
	if node.IsInteractive() {
		node.HID = gen.Next()
	}
	for _, child := range node.Children {
		AssignHIDs(child, gen)
	}
}

// HandlerKey is the registry key for the handler of event on the element
// with the given hydration ID.
func HandlerKey(hid, event string) string {
	return hid + ":" + strings.TrimPrefix(event, "on")
}

// CollectHandlers returns every handler of the tree keyed by HandlerKey.
// HIDs must have been assigned.
func CollectHandlers(node *VNode) map[string]any {
	result := make(map[string]any)
	collectHandlers(node, result)
	return result
}

func collectHandlers(node *VNode, result map[string]any) {
	if node == nil {
		return
	}
	if node.HID != "" {
		for key, val := range node.Props {
			if isEventKey(key) && val != nil {
				result[HandlerKey(node.HID, key)] = val
			}
		}
	}
	for _, child := range node.Children {
		collectHandlers(child, result)
	}
}

// Events lists the event names (without "on") a node listens to, sorted.
func (v *VNode) Events() []string {
	if v == nil {
		return nil
	}
	var names []string
	for key, val := range v.Props {
		if isEventKey(key) && val != nil {
			names = append(names, strings.TrimPrefix(key, "on"))
		}
	}
	sort.Strings(names)
	return names
}
