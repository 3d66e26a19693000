package page

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, b []byte) *html.Node {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader(b))
	require.NoError(t, err)
	return doc
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func text(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func render(t *testing.T) *html.Node {
	t.Helper()
	b, err := Render(DefaultConfig())
	require.NoError(t, err)
	return parse(t, b)
}

func TestRenderDataPlaceholder(t *testing.T) {
	doc := render(t)
	nodes := findAll(doc, func(n *html.Node) bool {
		id, _ := attr(n, "id")
		return id == "data"
	})
	require.Len(t, nodes, 1)
	assert.Equal(t, "Our data will be swapped with this element", text(nodes[0]))
}

func TestRenderButton(t *testing.T) {
	doc := render(t)
	buttons := findAll(doc, func(n *html.Node) bool { return n.Data == "button" })
	require.Len(t, buttons, 1)

	b := buttons[0]
	for key, want := range map[string]string{
		"id":        "myButton",
		"hx-get":    "/data",
		"hx-swap":   "outerHTML",
		"hx-target": "#data",
	} {
		got, ok := attr(b, key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	assert.Equal(t, "Fetch data", text(b))
}

func TestRenderHead(t *testing.T) {
	doc := render(t)

	links := findAll(doc, func(n *html.Node) bool { return n.Data == "link" })
	require.Len(t, links, 1)
	href, _ := attr(links[0], "href")
	assert.Equal(t, "/styles.css", href)
	rel, _ := attr(links[0], "rel")
	assert.Equal(t, "stylesheet", rel)

	var srcs []string
	for _, s := range findAll(doc, func(n *html.Node) bool { return n.Data == "script" }) {
		src, _ := attr(s, "src")
		srcs = append(srcs, src)
	}
	assert.Equal(t, []string{HTMXScript, HyperscriptScript}, srcs)

	h1 := findAll(doc, func(n *html.Node) bool { return n.Data == "h1" })
	require.Len(t, h1, 1)
	assert.Equal(t, "HTMX Demo", text(h1[0]))
}

func TestRenderNotification(t *testing.T) {
	doc := render(t)
	nodes := findAll(doc, func(n *html.Node) bool {
		_, ok := attr(n, "_")
		return ok
	})
	require.Len(t, nodes, 1)

	n := nodes[0]
	class, _ := attr(n, "class")
	assert.Contains(t, strings.Fields(class), "hidden")
	script, _ := attr(n, "_")
	assert.Equal(t, NotificationBehavior("myButton"), script)
	assert.Equal(t, "I'm a notification", text(n))
}

func TestRenderDeterministic(t *testing.T) {
	a, err := Render(DefaultConfig())
	require.NoError(t, err)
	b, err := Render(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderRequiresIDs(t *testing.T) {
	c := DefaultConfig()
	c.TargetID = ""
	_, err := Render(c)
	assert.Error(t, err)
}

func TestNotificationBehavior(t *testing.T) {
	s := NotificationBehavior("myButton")

	assert.True(t, strings.HasPrefix(s, "on htmx:afterRequest from #myButton\n"))
	assert.Contains(t, s, "if (event.detail.xhr.status == 422) add .bg-critical-500\n"+
		"    then put event.detail.xhr.responseText into my.textContent")
	assert.Contains(t, s, "else if (event.detail.xhr.status >= 400) add .bg-critical-500\n"+
		"    then put 'Failed to fetch data' into my.textContent")
	assert.Contains(t, s, "else add .bg-success-500\n"+
		"    then put 'Data fetch successful' into my.textContent")
	assert.Equal(t, 3, strings.Count(s, "then transition opacity to 1 over 200ms"))
	assert.Equal(t, 3, strings.Count(s, "then wait 1500ms"))
	assert.Equal(t, 3, strings.Count(s, "then transition opacity to 0 over 200ms"))
	assert.True(t, strings.HasSuffix(s, "then remove .bg-success-500"))
}

func TestDataFragment(t *testing.T) {
	assert.Equal(t, `<div id="data">Bitch please!</div>`, string(DataFragment))
	assert.Equal(t, `<div id="x">a &lt;b&gt;</div>`, string(Fragment("x", "a <b>")))
}
