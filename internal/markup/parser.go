package markup

import (
	"fmt"
	"strings"

	"WikiMover/internal/domain"
)

// ErrDegraded is reported when unbalanced markup had to be kept as literal text.
var ErrDegraded = domain.ErrParseDegraded

// DegradedError locates the first unbalanced opening in the input.
type DegradedError struct {
	Offset int
	Reason string
	Count  int
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("markup degraded at offset %d: %s (%d issue(s))", e.Offset, e.Reason, e.Count)
}

func (e *DegradedError) Unwrap() error { return ErrDegraded }

type mode int

const (
	modeTop mode = iota
	modeTitle
	modeParam
	modeLink
)

type segment struct {
	nodes []Node
	key   []Node
	named bool
	end   string
}

type parser struct {
	src   string
	pos   int
	issue *DegradedError
	// failed holds offsets of openings already known not to close. Parsing
	// from an offset does not depend on the enclosing mode, so each one is
	// tried once.
	failed map[int]struct{}
}

// Parse builds the tree for raw. The returned document is always usable and
// serializes back to raw; the error is non-nil only when some opening brace
// or bracket was unmatched and was kept as literal text.
func Parse(raw string) (*Document, error) {
	p := &parser{src: raw, failed: map[int]struct{}{}}
	seg, _ := p.parseSeq(modeTop)
	doc := &Document{nodes: seg.nodes}
	if p.issue != nil {
		return doc, p.issue
	}
	return doc, nil
}

func (p *parser) hasFailed(offset int) bool {
	_, ok := p.failed[offset]
	return ok
}

func (p *parser) degrade(offset int, reason string) {
	if p.issue == nil {
		p.issue = &DegradedError{Offset: offset, Reason: reason}
	}
	p.issue.Count++
}

// parseSeq consumes nodes until the terminator of m. It reports false when
// the input ended before the terminator; the caller then backs out.
func (p *parser) parseSeq(m mode) (segment, bool) {
	var (
		b   builder
		seg segment
	)
	inTemplate := m == modeTitle || m == modeParam

	for p.pos < len(p.src) {
		rest := p.src[p.pos:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			n := strings.Index(rest[4:], "-->")
			if n < 0 {
				b.text(rest)
				p.pos = len(p.src)
				continue
			}
			b.text(rest[:4+n+3])
			p.pos += 4 + n + 3

		case hasPrefixFold(rest, "<nowiki>"):
			n := indexFold(rest, "</nowiki>")
			if n < 0 {
				b.text(rest[:len("<nowiki>")])
				p.pos += len("<nowiki>")
				continue
			}
			b.text(rest[:n+len("</nowiki>")])
			p.pos += n + len("</nowiki>")

		case strings.HasPrefix(rest, "{{{"):
			if n := matchBraces(rest); n > 0 {
				b.text(rest[:n])
				p.pos += n
				continue
			}
			b.text("{")
			p.pos++

		case inTemplate && strings.HasPrefix(rest, "}}"):
			p.pos += 2
			seg.end = "}}"
			return b.finish(seg), true

		case inTemplate && rest[0] == '|':
			p.pos++
			seg.end = "|"
			return b.finish(seg), true

		case m == modeLink && strings.HasPrefix(rest, "]]"):
			p.pos += 2
			seg.end = "]]"
			return b.finish(seg), true

		case m == modeParam && rest[0] == '=' && !seg.named:
			seg.key = b.take()
			seg.named = true
			p.pos++

		case strings.HasPrefix(rest, "{{"):
			start := p.pos
			if !p.hasFailed(start) {
				if t, ok := p.parseTemplate(); ok {
					b.node(t)
					continue
				}
				p.failed[start] = struct{}{}
			}
			if m != modeTop {
				return seg, false
			}
			p.degrade(start, "unclosed template")
			b.text(p.src[start:])
			p.pos = len(p.src)

		case strings.HasPrefix(rest, "[["):
			start := p.pos
			p.pos += 2
			if !p.hasFailed(start) {
				if inner, ok := p.parseSeq(modeLink); ok {
					b.link(inner.nodes)
					continue
				}
				p.failed[start] = struct{}{}
				p.degrade(start, "unclosed link")
			}
			p.pos = start + 2
			b.text("[[")

		default:
			b.text(rest[:1])
			p.pos++
		}
	}

	return b.finish(seg), m == modeTop
}

func (p *parser) parseTemplate() (*Template, bool) {
	p.pos += 2
	title, ok := p.parseSeq(modeTitle)
	if !ok {
		return nil, false
	}

	t := &Template{title: render(title.nodes)}
	end := title.end
	positional := 0
	for end == "|" {
		seg, ok := p.parseSeq(modeParam)
		if !ok {
			return nil, false
		}
		param := &Param{Value: &Document{nodes: seg.nodes}}
		if seg.named {
			param.named = true
			param.rawKey = render(seg.key)
			param.Key = strings.TrimSpace(param.rawKey)
		} else {
			positional++
			param.Key = positionalKey(positional)
		}
		t.params = append(t.params, param)
		end = seg.end
	}
	return t, true
}

// matchBraces returns the length of the balanced brace run starting at s[0],
// or 0 when it never closes.
func matchBraces(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func render(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.String())
	}
	return sb.String()
}

type builder struct {
	out []Node
	buf strings.Builder
}

func (b *builder) text(s string) {
	b.buf.WriteString(s)
}

func (b *builder) node(n Node) {
	b.flush()
	b.out = append(b.out, n)
}

// link keeps a plain link as text. A link holding templates becomes a Link
// node so its templates stay out of the enclosing top level.
func (b *builder) link(inner []Node) {
	for _, n := range inner {
		if _, ok := n.(Text); !ok {
			b.node(&Link{inner: &Document{nodes: inner}})
			return
		}
	}
	b.text("[[")
	for _, n := range inner {
		b.text(n.String())
	}
	b.text("]]")
}

func (b *builder) flush() {
	if b.buf.Len() == 0 {
		return
	}
	b.out = append(b.out, Text(b.buf.String()))
	b.buf.Reset()
}

func (b *builder) take() []Node {
	b.flush()
	out := b.out
	b.out = nil
	return out
}

func (b *builder) finish(seg segment) segment {
	seg.nodes = b.take()
	return seg
}
