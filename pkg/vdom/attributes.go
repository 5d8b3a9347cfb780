package vdom

import (
	"strconv"
	"strings"
)

// attr creates an Attr with the given key and value.
func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// StyleAttr sets the style attribute (named to avoid conflict with Style element).
func StyleAttr(style string) Attr { return attr("style", style) }

// Data creates a data-* attribute.
// Example: Data("route", "/marketplace") → data-route="/marketplace"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Key sets the sibling identity of a node.
func Key(key string) Attr { return attr("key", key) }

// Role sets the role attribute.
func Role(role string) Attr { return attr("role", role) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Attr { return attr("aria-label", label) }

// AriaHidden sets the aria-hidden attribute.
func AriaHidden(hidden bool) Attr { return attr("aria-hidden", strconv.FormatBool(hidden)) }

// AriaLive sets the aria-live attribute.
func AriaLive(mode string) Attr { return attr("aria-live", mode) }

// AriaCurrent sets the aria-current attribute.
func AriaCurrent(value string) Attr { return attr("aria-current", value) }

// TitleAttr sets the title attribute (named to avoid conflict with Title element).
func TitleAttr(title string) Attr { return attr("title", title) }

// Lang sets the lang attribute.
func Lang(lang string) Attr { return attr("lang", lang) }

// Common attributes

func Href(url string) Attr       { return attr("href", url) }
func Target(target string) Attr  { return attr("target", target) }
func Rel(rel string) Attr        { return attr("rel", rel) }
func Charset(cs string) Attr     { return attr("charset", cs) }
func Content(c string) Attr      { return attr("content", c) }
func Src(url string) Attr        { return attr("src", url) }
func Alt(text string) Attr       { return attr("alt", text) }
func Loading(mode string) Attr   { return attr("loading", mode) }
func Defer() Attr                { return attr("defer", true) }
func Type(t string) Attr         { return attr("type", t) }
func Value(value string) Attr    { return attr("value", value) }
func Placeholder(s string) Attr  { return attr("placeholder", s) }
func Autocomplete(s string) Attr { return attr("autocomplete", s) }
func For(id string) Attr         { return attr("for", id) }

// Name sets the name attribute on form controls; the live client serializes
// named controls into Event.Form on submit.
func Name(name string) Attr { return attr("name", name) }

// Boolean form attributes

func Disabled() Attr   { return attr("disabled", true) }
func Required() Attr   { return attr("required", true) }
func Selected() Attr   { return attr("selected", true) }
func Autofocus() Attr  { return attr("autofocus", true) }
func Novalidate() Attr { return attr("novalidate", true) }

// MinLength sets the minlength attribute.
func MinLength(n int) Attr { return attr("minlength", n) }

// MaxLength sets the maxlength attribute.
func MaxLength(n int) Attr { return attr("maxlength", n) }

// Rows sets the rows attribute on textarea.
func Rows(n int) Attr { return attr("rows", n) }

// Accept sets the accept attribute on file inputs.
func Accept(types string) Attr { return attr("accept", types) }

// Conditional attributes

// ClassIf adds a class conditionally.
func ClassIf(condition bool, class string) Attr {
	if condition {
		return attr("class", class)
	}
	return Attr{}
}

// AttrIf adds any attribute conditionally.
func AttrIf(condition bool, a Attr) Attr {
	if condition {
		return a
	}
	return Attr{}
}

// Classes merges multiple class values.
// Accepts string, []string, and map[string]bool.
func Classes(classes ...any) Attr {
	var result []string
	for _, c := range classes {
		switch v := c.(type) {
		case string:
			if v != "" {
				result = append(result, v)
			}
		case []string:
			for _, s := range v {
				if s != "" {
					result = append(result, s)
				}
			}
		case map[string]bool:
			for class, include := range v {
				if include && class != "" {
					result = append(result, class)
				}
			}
		}
	}
	return attr("class", strings.Join(result, " "))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
