package render

import (
	"fmt"
	"io"

	"github.com/bartr-dev/bartr/pkg/vdom"
)

// ContentID is the id of the element whose children the live client swaps
// on every frame.
const ContentID = "page-content"

// PageData contains all data needed to render a complete HTML page.
type PageData struct {
	// Body is the view mounted inside #page-content.
	Body *vdom.VNode

	// Title is the page title.
	Title string

	// Lang is the language attribute for the html element. Defaults to "en".
	Lang string

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// ClientScript is the path to the thin client JavaScript.
	// Defaults to "/_bartr/client.js".
	ClientScript string

	// SessionID identifies the live session the client reconnects to.
	SessionID string

	// Path is the location the page was rendered for.
	Path string

	// Seq is the number of the frame in Body.
	Seq uint64
}

// DefaultClientScript is where the live server serves the client.
const DefaultClientScript = "/_bartr/client.js"

// RenderPage renders a complete HTML document to the given writer.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	script := page.ClientScript
	if script == "" {
		script = DefaultClientScript
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", escapeAttr(lang)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<meta charset=\"utf-8\">\n<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<title>%s</title>\n", escapeHTML(page.Title)); err != nil {
		return err
	}
	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, "<link rel=\"stylesheet\" href=\"%s\">\n", escapeAttr(href)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</head>\n<body>\n<div id=\"app\">"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<div id=\"%s\">", ContentID); err != nil {
		return err
	}
	if err := r.RenderToWriter(w, page.Body); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "</div></div>\n"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "<script src=\"%s\" data-session=\"%s\" data-path=\"%s\" data-seq=\"%d\" defer></script>\n</body>\n</html>\n",
		escapeAttr(script), escapeAttr(page.SessionID), escapeAttr(page.Path), page.Seq)
	return err
}
