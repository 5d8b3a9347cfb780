package render

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bartr-dev/bartr/pkg/vdom"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// HIDPrefix namespaces hydration IDs. Empty means "h".
	HIDPrefix string
}

// Renderer handles rendering of VNode trees to HTML.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	config     RendererConfig
	hidCounter uint32
	handlers   map[string]any
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.HIDPrefix == "" {
		config.HIDPrefix = "h"
	}
	return &Renderer{
		config:   config,
		handlers: make(map[string]any),
	}
}

// RenderToString renders a VNode tree to an HTML string.
func (r *Renderer) RenderToString(node *vdom.VNode) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a VNode tree to the given writer.
func (r *Renderer) RenderToWriter(w io.Writer, node *vdom.VNode) error {
	return r.renderNode(w, node)
}

// Handlers returns the handler registry collected during rendering, keyed
// by vdom.HandlerKey.
func (r *Renderer) Handlers() map[string]any {
	return r.handlers
}

// Reset clears the HID counter and handler registry.
func (r *Renderer) Reset() {
	r.hidCounter = 0
	r.handlers = make(map[string]any)
}

func (r *Renderer) renderNode(w io.Writer, node *vdom.VNode) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(w, node)
	case vdom.KindText:
		_, err := io.WriteString(w, escapeHTML(node.Text))
		return err
	case vdom.KindFragment:
		for _, child := range node.Children {
			if err := r.renderNode(w, child); err != nil {
				return err
			}
		}
		return nil
	case vdom.KindRaw:
		_, err := io.WriteString(w, node.Text)
		return err
	default:
		return fmt.Errorf("render: unknown node kind %d", node.Kind)
	}
}

func (r *Renderer) renderElement(w io.Writer, node *vdom.VNode) error {
	tag := node.Tag
	if tag == "" {
		return fmt.Errorf("render: element without tag")
	}

	if _, err := io.WriteString(w, "<"+tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, node); err != nil {
		return err
	}

	if node.IsInteractive() {
		node.HID = r.nextHID()
		events := node.Events()
		if _, err := fmt.Fprintf(w, ` data-hid="%s" data-on="%s"`, node.HID, strings.Join(events, " ")); err != nil {
			return err
		}
		r.registerHandlers(node)
	}

	if vdom.IsVoidElement(tag) {
		_, err := io.WriteString(w, ">")
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	for _, child := range node.Children {
		if err := r.renderNode(w, child); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "</%s>", tag)
	return err
}

// renderAttributes writes the element's attributes in sorted order so the
// output is deterministic.
func (r *Renderer) renderAttributes(w io.Writer, node *vdom.VNode) error {
	if len(node.Props) == 0 {
		return nil
	}

	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node.Props[key]
		if value == nil || strings.HasPrefix(key, "_") {
			continue
		}
		if strings.HasPrefix(key, "on") {
			continue
		}

		if b, ok := value.(bool); ok {
			if !b {
				continue
			}
			if isBooleanAttr(key) {
				if _, err := fmt.Fprintf(w, " %s", key); err != nil {
					return err
				}
				continue
			}
		}

		str := attrToString(value)
		if str == "" && key != "value" && key != "alt" {
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(str)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) nextHID() string {
	r.hidCounter++
	return fmt.Sprintf("%s%d", r.config.HIDPrefix, r.hidCounter)
}

func (r *Renderer) registerHandlers(node *vdom.VNode) {
	for key, value := range node.Props {
		if strings.HasPrefix(key, "on") && value != nil {
			r.handlers[vdom.HandlerKey(node.HID, key)] = value
		}
	}
}

func attrToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var booleanAttrs = map[string]bool{
	"autofocus":  true,
	"checked":    true,
	"defer":      true,
	"disabled":   true,
	"hidden":     true,
	"multiple":   true,
	"novalidate": true,
	"readonly":   true,
	"required":   true,
	"selected":   true,
}

func isBooleanAttr(key string) bool {
	return booleanAttrs[key]
}
