package markup

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var descendants = xpath.MustCompile("descendant::*")

// xmlNode wraps an xmlquery element or document node.
type xmlNode struct {
	node *xmlquery.Node
}

// ParseXML parses r as well-formed XML. Run the repair preprocessor first
// when the input may carry unterminated elements.
func ParseXML(r io.Reader) (Node, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return xmlNode{node: root}, nil
}

func (n xmlNode) Name() string {
	if n.node.Type == xmlquery.DocumentNode {
		return "#document"
	}
	return qualifiedName(n.node)
}

func (n xmlNode) Attr(name string) (string, bool) {
	for _, a := range n.node.Attr {
		key := a.Name.Local
		if a.Name.Space != "" && strings.Contains(name, ":") {
			key = a.Name.Space + ":" + a.Name.Local
		}
		if strings.EqualFold(key, name) {
			return a.Value, true
		}
	}
	return "", false
}

func (n xmlNode) Text() string {
	return n.node.InnerText()
}

func (n xmlNode) FindFirst(m Matcher) Node {
	for _, el := range xmlquery.QuerySelectorAll(n.node, descendants) {
		if m.Match(qualifiedName(el)) {
			return xmlNode{node: el}
		}
	}
	return nil
}

func (n xmlNode) FindAll(m Matcher) []Node {
	var nodes []Node
	for _, el := range xmlquery.QuerySelectorAll(n.node, descendants) {
		if m.Match(qualifiedName(el)) {
			nodes = append(nodes, xmlNode{node: el})
		}
	}
	return nodes
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix == "" {
		return strings.ToLower(n.Data)
	}
	return strings.ToLower(n.Prefix + ":" + n.Data)
}
