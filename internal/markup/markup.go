// Package markup reads shader canvas content from HTML markup.
//
// A canvas element carries its content as children:
//
//	<shader-canvas dpr="2">
//	  <script type="vert">...</script>
//	  <script type="frag">...</script>
//	  <script type="buffer" name="position" data-size="2">[-1,-1, 1,-1, 0,1]</script>
//	</shader-canvas>
//
// The first [type=vert] and [type=frag] descendants supply the shader
// sources; every [type=buffer] descendant declares one vertex buffer.
package markup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"shadercanvas/internal/logging"
)

// TagName is the element name a shader canvas is registered under.
const TagName = "shader-canvas"

// MaxRecordSize is the most components a vertex attribute can have.
const MaxRecordSize = 4

// DefaultBufferName is the attribute a buffer binds to when it has no name.
const DefaultBufferName = "position"

// Built-in shader pair used when the markup supplies none.
const (
	DefaultVertex = `#version 410 core
in vec4 position;
void main() { gl_Position = position; }
`
	DefaultFragment = `#version 410 core
out vec4 fragColor;
void main() { fragColor = vec4(1.0, 0.0, 0.0, 1.0); }
`
)

// DefaultQuad is two triangles covering clip space, two components per vertex.
var DefaultQuad = []float32{-1, -1, -1, 1, 1, -1, 1, -1, 1, 1, -1, 1}

// Buffer is one declared vertex buffer.
type Buffer struct {
	Name       string
	RecordSize int
	Data       []float32
}

// Content is everything a canvas builds its resources from.
type Content struct {
	Vertex   string
	Fragment string
	Buffers  []Buffer
	// DPR is the density override, zero when the element has none.
	DPR float64
}

// ContentError reports a buffer whose payload could not be decoded.
type ContentError struct {
	Buffer string
	Index  int
	Err    error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("buffer %d (%s): %v", e.Index, e.Buffer, e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }

// Document is a parsed markup document.
type Document struct {
	root *html.Node
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return &Document{root: root}, nil
}

func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Elements returns every element named tag in document order.
func (d *Document) Elements(tag string) []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, &Element{node: n})
			return false
		}
		return true
	})
	return out
}

// Root returns the whole document as an element, for markup that holds a
// single canvas's children without the wrapping tag.
func (d *Document) Root() *Element {
	return &Element{node: d.root}
}

// Element is one canvas element.
type Element struct {
	node *html.Node
}

func (e *Element) Attr(key string) (string, bool) {
	return attr(e.node, key)
}

// DPR returns the element's density override.
func (e *Element) DPR() (float64, bool) {
	v, ok := e.Attr("dpr")
	if !ok {
		return 0, false
	}
	return ParseDPR(v)
}

// Content re-reads the element's children. It never caches, so markup edits
// made through the node tree are picked up by the next call.
func (e *Element) Content() (Content, error) {
	c := Content{Vertex: DefaultVertex, Fragment: DefaultFragment}
	if dpr, ok := e.DPR(); ok {
		c.DPR = dpr
	}
	if n := first(e.node, "vert"); n != nil {
		if src := textContent(n); src != "" {
			c.Vertex = src
		}
	}
	if n := first(e.node, "frag"); n != nil {
		if src := textContent(n); src != "" {
			c.Fragment = src
		}
	}
	var err error
	walk(e.node, func(n *html.Node) bool {
		if err != nil {
			return false
		}
		if n == e.node || !hasType(n, "buffer") {
			return true
		}
		var b Buffer
		b, err = parseBuffer(n, len(c.Buffers))
		if err == nil {
			c.Buffers = append(c.Buffers, b)
		}
		return false
	})
	if err != nil {
		return Content{}, err
	}
	return c, nil
}

func parseBuffer(n *html.Node, index int) (Buffer, error) {
	b := Buffer{Name: DefaultBufferName, RecordSize: 1}
	if v, ok := attr(n, "name"); ok && v != "" {
		b.Name = v
	}
	if v, ok := attr(n, "data-size"); ok {
		b.RecordSize = ParseRecordSize(v)
	}
	payload := strings.TrimSpace(textContent(n))
	if err := json.Unmarshal([]byte(payload), &b.Data); err != nil {
		return Buffer{}, &ContentError{Buffer: b.Name, Index: index, Err: err}
	}
	return b, nil
}

// ParseRecordSize reads a leading decimal integer the way the markup's
// numeric attributes are read in browsers: leading space and an optional
// sign are accepted, trailing garbage is ignored. Unparsable or
// non-positive sizes become 1; sizes above MaxRecordSize are clamped to it.
func ParseRecordSize(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) && s[0] != '-' {
		n, err = math.MaxInt, nil
	}
	if err != nil || n < 1 {
		return 1
	}
	if n > MaxRecordSize {
		logging.Logger().Warn("data-size above attribute component limit", "data-size", s, "max", MaxRecordSize)
		return MaxRecordSize
	}
	return n
}

// ParseDPR parses a positive, finite density scale.
func ParseDPR(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the visited node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func first(root *html.Node, typ string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n != root && hasType(n, typ) {
			found = n
			return false
		}
		return true
	})
	return found
}

func hasType(n *html.Node, typ string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	v, ok := attr(n, "type")
	return ok && v == typ
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}
