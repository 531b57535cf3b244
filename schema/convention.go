// Package schema renders the textual schema that instructs a
// generative model how to format a value of a given type, and defines
// the tag conventions that rendering and decoding both obey.
package schema

import "strings"

// Fixed tag names of the wire dialect. Every type obeys these:
// sequence elements are wrapped in <item>, map pairs in
// <entry><key>..</key><value>..</value></entry>.
const (
	ItemTag  = "item"
	EntryTag = "entry"
	KeyTag   = "key"
	ValueTag = "value"
)

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// OpenTag returns "<name>".
func OpenTag(name string) string { return "<" + name + ">" }

// CloseTag returns "</name>".
func CloseTag(name string) string { return "</" + name + ">" }

// WrapCDATA wraps literal text in a character-data escape block so
// markup-special characters in the value are not misinterpreted as
// structure. A "]]>" inside the text is split across two blocks.
func WrapCDATA(s string) string {
	if !strings.Contains(s, cdataClose) {
		return cdataOpen + s + cdataClose
	}
	var b strings.Builder
	for {
		i := strings.Index(s, cdataClose)
		if i < 0 {
			break
		}
		// Close after "]]" and reopen before ">".
		b.WriteString(cdataOpen)
		b.WriteString(s[:i+2])
		b.WriteString(cdataClose)
		s = s[i+2:]
	}
	b.WriteString(cdataOpen)
	b.WriteString(s)
	b.WriteString(cdataClose)
	return b.String()
}

// unwrapCDATA is the inverse of WrapCDATA: it extracts the literal
// text from one or more adjacent character-data blocks. The decode
// side tracks blocks in its parser instead; this stays as the
// round-trip oracle for WrapCDATA's split behavior.
func unwrapCDATA(s string) (text string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	var b strings.Builder
	for len(s) > 0 {
		if !strings.HasPrefix(s, cdataOpen) {
			return "", false
		}
		s = s[len(cdataOpen):]
		end := strings.Index(s, cdataClose)
		if end < 0 {
			return "", false
		}
		b.WriteString(s[:end])
		s = strings.TrimSpace(s[end+len(cdataClose):])
	}
	return b.String(), true
}
