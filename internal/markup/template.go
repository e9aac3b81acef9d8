package markup

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var commentExpr = regexp.MustCompile(`(?s)<!--.*?-->`)

// Param is one template argument. Positional params carry their index as Key.
type Param struct {
	Key   string
	Value *Document

	named  bool
	rawKey string
}

// Named reports whether the param was written as key=value.
func (p *Param) Named() bool { return p.named }

// String returns the value markup.
func (p *Param) String() string { return p.Value.String() }

// Template is a parameterized invocation. The raw title keeps its original
// whitespace and comments so untouched templates serialize unchanged.
type Template struct {
	title  string
	params []*Param
}

func (*Template) isNode() {}

// NewTemplate creates an empty invocation of name.
func NewTemplate(name string) *Template {
	return &Template{title: name}
}

// Name is the title without comments and surrounding whitespace.
func (t *Template) Name() string {
	return strings.TrimSpace(commentExpr.ReplaceAllString(t.title, ""))
}

// SetName replaces the title, keeping the original leading and trailing whitespace.
func (t *Template) SetName(name string) {
	lead := t.title[:len(t.title)-len(strings.TrimLeftFunc(t.title, unicode.IsSpace))]
	rest := t.title[len(lead):]
	trail := rest[len(strings.TrimRightFunc(rest, unicode.IsSpace)):]
	t.title = lead + name + trail
}

// Params returns the parameters in written order. The slice must not be modified.
func (t *Template) Params() []*Param {
	return t.params
}

// Has reports whether a param with exactly this key exists.
func (t *Template) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Get returns the value markup of the param whose key matches exactly.
func (t *Template) Get(key string) (string, bool) {
	for _, p := range t.params {
		if p.Key == key {
			return p.Value.String(), true
		}
	}
	return "", false
}

// Lookup finds a param ignoring case, underscores and repeated spaces.
func (t *Template) Lookup(key string) (*Param, bool) {
	want := foldKey(key)
	for _, p := range t.params {
		if foldKey(p.Key) == want {
			return p, true
		}
	}
	return nil, false
}

// Set replaces the value of the param matching key (see Lookup) or appends
// a new named param. The value is parsed, so nested templates become nodes.
func (t *Template) Set(key, value string) {
	doc, _ := Parse(value)
	if p, ok := t.Lookup(key); ok {
		p.Value = doc
		return
	}
	t.params = append(t.params, &Param{Key: key, Value: doc, named: true, rawKey: key})
}

// String serializes the invocation.
func (t *Template) String() string {
	var sb strings.Builder
	sb.WriteString("{{")
	sb.WriteString(t.title)
	for _, p := range t.params {
		sb.WriteByte('|')
		if p.named {
			sb.WriteString(p.rawKey)
			sb.WriteByte('=')
		}
		sb.WriteString(p.Value.String())
	}
	sb.WriteString("}}")
	return sb.String()
}

func foldKey(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}

func positionalKey(n int) string {
	return strconv.Itoa(n)
}
