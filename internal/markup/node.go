// Package markup parses wiki markup into an owned tree of text spans and
// template invocations and serializes it back byte for byte.
package markup

import "strings"

// Node is one element of a Document: Text, *Template or *Link.
type Node interface {
	String() string
	isNode()
}

// Text is a literal span of markup, including links, comments and tables.
type Text string

func (t Text) String() string { return string(t) }
func (Text) isNode()          {}

// Link is a wiki link whose interior holds templates. Links with plain
// interiors stay Text.
type Link struct {
	inner *Document
}

func (l *Link) String() string { return "[[" + l.inner.String() + "]]" }
func (*Link) isNode()          {}

// Document is an ordered sequence of nodes. Template parameter values are
// documents too, so the tree is owned top-down without back references.
type Document struct {
	nodes []Node
}

// NewDocument builds a document from nodes, merging adjacent text.
func NewDocument(nodes ...Node) *Document {
	d := &Document{nodes: nodes}
	d.mergeText()
	return d
}

// Nodes returns the top-level nodes. The slice must not be modified.
func (d *Document) Nodes() []Node {
	if d == nil {
		return nil
	}
	return d.nodes
}

// String serializes the document.
func (d *Document) String() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	for _, n := range d.nodes {
		sb.WriteString(n.String())
	}
	return sb.String()
}

// Append adds nodes at the end of the document.
func (d *Document) Append(nodes ...Node) {
	d.nodes = append(d.nodes, nodes...)
	d.mergeText()
}

// AllTemplates lists templates in pre-order: each template is followed by the
// templates nested in its parameters, in document order. When recursive is
// false only top-level templates are returned; templates inside links are
// nested, not top-level.
func (d *Document) AllTemplates(recursive bool) []*Template {
	var out []*Template
	collectTemplates(d, recursive, &out)
	return out
}

// TopLevelTemplates is AllTemplates(false).
func (d *Document) TopLevelTemplates() []*Template {
	return d.AllTemplates(false)
}

// PostOrder lists every template after the templates nested in its
// parameters, so rewrites can see finished children.
func (d *Document) PostOrder() []*Template {
	var out []*Template
	collectPostOrder(d, &out)
	return out
}

func collectPostOrder(d *Document, out *[]*Template) {
	if d == nil {
		return
	}
	for _, n := range d.nodes {
		switch n := n.(type) {
		case *Link:
			collectPostOrder(n.inner, out)
		case *Template:
			for _, p := range n.params {
				collectPostOrder(p.Value, out)
			}
			*out = append(*out, n)
		}
	}
}

func collectTemplates(d *Document, recursive bool, out *[]*Template) {
	if d == nil {
		return
	}
	for _, n := range d.nodes {
		switch n := n.(type) {
		case *Link:
			if recursive {
				collectTemplates(n.inner, true, out)
			}
		case *Template:
			*out = append(*out, n)
			if !recursive {
				continue
			}
			for _, p := range n.params {
				collectTemplates(p.Value, true, out)
			}
		}
	}
}

// Remove detaches target, together with everything nested in it, from
// wherever it sits in the tree. It reports whether the template was found.
func (d *Document) Remove(target *Template) bool {
	if d == nil || target == nil {
		return false
	}
	for i, n := range d.nodes {
		switch n := n.(type) {
		case *Link:
			if n.inner.Remove(target) {
				return true
			}
		case *Template:
			if n == target {
				d.nodes = append(d.nodes[:i], d.nodes[i+1:]...)
				d.mergeText()
				return true
			}
			for _, p := range n.params {
				if p.Value.Remove(target) {
					return true
				}
			}
		}
	}
	return false
}

// MapText rewrites every top-level text span. Empty results are dropped.
// Links holding templates are left as they are.
func (d *Document) MapText(fn func(string) string) {
	if d == nil {
		return
	}
	for i, n := range d.nodes {
		if txt, ok := n.(Text); ok {
			d.nodes[i] = Text(fn(string(txt)))
		}
	}
	d.mergeText()
}

// Text concatenates the top-level text spans and links, skipping templates.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	for _, n := range d.nodes {
		if _, ok := n.(*Template); !ok {
			sb.WriteString(n.String())
		}
	}
	return sb.String()
}

func (d *Document) mergeText() {
	merged := d.nodes[:0]
	for _, n := range d.nodes {
		txt, ok := n.(Text)
		if !ok {
			merged = append(merged, n)
			continue
		}
		if txt == "" {
			continue
		}
		if last := len(merged) - 1; last >= 0 {
			if prev, ok := merged[last].(Text); ok {
				merged[last] = prev + txt
				continue
			}
		}
		merged = append(merged, txt)
	}
	for i := len(merged); i < len(d.nodes); i++ {
		d.nodes[i] = nil
	}
	d.nodes = merged
}
