// Package page renders the demo's HTML: the index document and the fragment
// swapped in by the data route.
package page

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
)

const (
	HTMXScript        = "https://unpkg.com/htmx.org@1.9.5"
	HyperscriptScript = "https://unpkg.com/hyperscript.org@0.9.11"
)

// Config is everything the index page depends on.
type Config struct {
	Title       string
	Stylesheet  string
	Scripts     []string
	ButtonID    string
	ButtonText  string
	DataRoute   string
	TargetID    string
	Placeholder string
	// Behavior is the _hyperscript attached to the notification element.
	// It runs in the browser and is passed through untouched.
	Behavior string
}

func DefaultConfig() Config {
	return Config{
		Title:       "HTMX Demo",
		Stylesheet:  "/styles.css",
		Scripts:     []string{HTMXScript, HyperscriptScript},
		ButtonID:    "myButton",
		ButtonText:  "Fetch data",
		DataRoute:   "/data",
		TargetID:    "data",
		Placeholder: "Our data will be swapped with this element",
		Behavior:    NotificationBehavior("myButton"),
	}
}

var (
	//go:embed page.html
	pageTmplStr string
	pageTmpl    = template.Must(template.New("page").Parse(pageTmplStr))

	fragmentTmpl = template.Must(template.New("fragment").Parse(`<div id="{{.ID}}">{{.Text}}</div>`))
)

// Render produces the index document for c.
func Render(c Config) ([]byte, error) {
	if c.TargetID == "" || c.DataRoute == "" || c.ButtonID == "" {
		return nil, fmt.Errorf("page: button id, data route and target id are required")
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, c); err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	return buf.Bytes(), nil
}

// DataText is the content of a successful data fragment.
const DataText = "Bitch please!"

// Fragment renders a single element with the given id and text content.
func Fragment(id, text string) []byte {
	var buf bytes.Buffer
	// The template only interpolates two strings; it cannot fail.
	if err := fragmentTmpl.Execute(&buf, struct{ ID, Text string }{id, text}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DataFragment is the body of a successful /data response.
var DataFragment = Fragment("data", DataText)

// NotificationBehavior returns the _hyperscript for the notification toast
// that reacts to requests issued by the button with the given id.
func NotificationBehavior(buttonID string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "on htmx:afterRequest from #%s\n", buttonID)
	branch(&sb, "if (event.detail.xhr.status == 422)", "bg-critical-500", "event.detail.xhr.responseText")
	branch(&sb, "else if (event.detail.xhr.status >= 400)", "bg-critical-500", "'Failed to fetch data'")
	branch(&sb, "else", "bg-success-500", "'Data fetch successful'")
	return strings.TrimSuffix(sb.String(), "\n")
}

func branch(sb *strings.Builder, cond, class, text string) {
	fmt.Fprintf(sb, "%s add .%s\n", cond, class)
	fmt.Fprintf(sb, "    then put %s into my.textContent\n", text)
	sb.WriteString("    then transition opacity to 1 over 200ms\n")
	sb.WriteString("    then wait 1500ms\n")
	sb.WriteString("    then transition opacity to 0 over 200ms\n")
	fmt.Fprintf(sb, "    then remove .%s\n", class)
}
