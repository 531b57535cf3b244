// Package decode converts extracted tagged text into typed values. It
// is deliberately more permissive than the documented schema, because
// generative output is unreliable: numbers may arrive quoted, booleans
// as natural-language synonyms, tags with stray attributes.
//
// The parser below handles only the constrained dialect needed for
// round-tripping typed values. It is not a general-purpose XML
// processor: no namespaces, no DTDs, no entity expansion. It does track
// character-data escape blocks explicitly, which the standard library
// tokenizer erases, and string-typed members require exactly that.
package decode

import (
	"fmt"
	"strings"
)

// Node is one element of a parsed document.
type Node struct {
	// Name is the tag name, with any attributes dropped.
	Name string
	// Children holds child elements in document order.
	Children []*Node
	// Text is the accumulated plain character data directly inside
	// this element (children excluded).
	Text string
	// CData holds the contents of character-data escape blocks
	// directly inside this element, in order.
	CData []string
}

// HasCData reports whether the element carried at least one
// character-data escape block.
func (n *Node) HasCData() bool { return n.CData != nil }

// Flat returns the leaf text of the element: the joined escape blocks
// when present, otherwise the trimmed plain text.
func (n *Node) Flat() string {
	if n.HasCData() {
		return strings.Join(n.CData, "")
	}
	return strings.TrimSpace(n.Text)
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all children with the given name, in document
// order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Parse builds the element tree for one extracted document. The input
// is expected to start at the root open tag; leading and trailing
// whitespace is tolerated, as are comments, processing instructions and
// attributes on any tag.
func Parse(raw string) (*Node, error) {
	p := &parser{src: raw}
	p.skipSpace()
	root, err := p.parseElement()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	// Trailing garbage after the root close tag is tolerated; the
	// extractor already clipped at the last close tag.
	return root, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; c {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseElement() (*Node, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '<' {
		return nil, fmt.Errorf("expected an open tag at offset %d", p.pos)
	}
	name, selfClosing, err := p.parseOpenTag()
	if err != nil {
		return nil, err
	}
	node := &Node{Name: name}
	if selfClosing {
		return node, nil
	}

	var text strings.Builder
	for {
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unexpected end of document inside <%s>", name)
		}
		if p.src[p.pos] != '<' {
			text.WriteByte(p.src[p.pos])
			p.pos++
			continue
		}

		switch {
		case strings.HasPrefix(p.src[p.pos:], "<![CDATA["):
			content, err := p.parseCData()
			if err != nil {
				return nil, err
			}
			if node.CData == nil {
				node.CData = []string{}
			}
			node.CData = append(node.CData, content)

		case strings.HasPrefix(p.src[p.pos:], "<!--"):
			if err := p.skipUntil("-->"); err != nil {
				return nil, fmt.Errorf("unterminated comment inside <%s>", name)
			}

		case strings.HasPrefix(p.src[p.pos:], "<?"):
			if err := p.skipUntil("?>"); err != nil {
				return nil, fmt.Errorf("unterminated processing instruction inside <%s>", name)
			}

		case strings.HasPrefix(p.src[p.pos:], "</"):
			closeName, err := p.parseCloseTag()
			if err != nil {
				return nil, err
			}
			if closeName != name {
				return nil, fmt.Errorf("mismatched close tag </%s> inside <%s>", closeName, name)
			}
			node.Text = text.String()
			return node, nil

		default:
			child, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}
}

// parseOpenTag consumes "<name ...>" or "<name ... />" and returns the
// tag name. Attributes are tolerated and dropped.
func (p *parser) parseOpenTag() (name string, selfClosing bool, err error) {
	p.pos++ // consume '<'
	start := p.pos
	for p.pos < len(p.src) && !isTagDelim(p.src[p.pos]) {
		p.pos++
	}
	name = p.src[start:p.pos]
	if name == "" {
		return "", false, fmt.Errorf("empty tag name at offset %d", start)
	}
	// Scan to '>' tracking a trailing '/'. Quoted attribute values are
	// opaque: a '/' inside or at the end of a value is not a
	// self-closing marker.
	var quote byte
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			selfClosing = false
			p.pos++
		case c == '"' || c == '\'':
			quote = c
			selfClosing = false
			p.pos++
		case c == '>':
			p.pos++
			return name, selfClosing, nil
		case c == '/':
			selfClosing = true
			p.pos++
		default:
			selfClosing = false
			p.pos++
		}
	}
	return "", false, fmt.Errorf("unterminated open tag <%s", name)
}

func (p *parser) parseCloseTag() (string, error) {
	p.pos += 2 // consume "</"
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("unterminated close tag at offset %d", start)
	}
	name := strings.TrimSpace(p.src[start:p.pos])
	p.pos++ // consume '>'
	return name, nil
}

func (p *parser) parseCData() (string, error) {
	p.pos += len("<![CDATA[")
	end := strings.Index(p.src[p.pos:], "]]>")
	if end < 0 {
		return "", fmt.Errorf("unterminated CDATA section at offset %d", p.pos)
	}
	content := p.src[p.pos : p.pos+end]
	p.pos += end + len("]]>")
	return content, nil
}

func (p *parser) skipUntil(marker string) error {
	idx := strings.Index(p.src[p.pos:], marker)
	if idx < 0 {
		return fmt.Errorf("marker %q not found", marker)
	}
	p.pos += idx + len(marker)
	return nil
}

func isTagDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}
