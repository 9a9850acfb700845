package markup

import (
	"fmt"
	"io"
	"strings"
)

// Node is one element of a parsed document.
type Node interface {
	// Name returns the lower-cased qualified element name.
	Name() string
	// Attr looks an attribute up by name, ignoring case.
	Attr(name string) (string, bool)
	// Text returns the concatenated text of the element and its descendants.
	Text() string
	// FindFirst returns the first descendant, in document order, whose name
	// matches m, or nil.
	FindFirst(m Matcher) Node
	// FindAll returns every matching descendant in document order.
	FindAll(m Matcher) []Node
}

// Backend names the tree implementation used by Parse.
type Backend string

const (
	BackendHTML Backend = "html"
	BackendXML  Backend = "xml"
)

// ParseBackend turns a configuration string into a Backend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendHTML:
		return BackendHTML, nil
	case BackendXML:
		return BackendXML, nil
	}
	return "", fmt.Errorf("unknown tree backend %q", s)
}

// Parse builds a document tree with the selected backend. The returned
// node is the document root; FindAll on it walks the whole document.
func Parse(r io.Reader, backend Backend) (Node, error) {
	switch backend {
	case "", BackendHTML:
		return ParseHTML(r)
	case BackendXML:
		return ParseXML(r)
	}
	return nil, fmt.Errorf("unknown tree backend %q", backend)
}
