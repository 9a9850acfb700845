package markup

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// htmlNode wraps a single-node goquery selection.
type htmlNode struct {
	sel *goquery.Selection
}

// ParseHTML parses r with the HTML5 tree builder behind goquery. Tag and
// attribute names come back lower-cased and unknown elements (every
// namespaced XBRL tag) are kept as ordinary elements. A self-closing
// unknown element such as a nil fact is closed where it stands.
func ParseHTML(r io.Reader) (Node, error) {
	expanded, err := expandSelfClosing(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return htmlNode{sel: doc.Selection}, nil
}

// voidElements never take an end tag in HTML.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// expandSelfClosing rewrites "<x .../>" as "<x ...></x>" for every non-void
// element, since the HTML5 tree builder ignores the trailing slash. All
// other tokens are copied byte for byte.
func expandSelfClosing(r io.Reader) (io.Reader, error) {
	z := html.NewTokenizer(r)
	var b bytes.Buffer
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return &b, nil
			}
			return nil, z.Err()
		case html.SelfClosingTagToken:
			// TagName lower-cases the name in place, so copy first.
			raw := append([]byte(nil), z.Raw()...)
			name, _ := z.TagName()
			if voidElements[string(name)] || !bytes.HasSuffix(raw, []byte("/>")) {
				b.Write(raw)
				continue
			}
			b.Write(raw[:len(raw)-2])
			b.WriteString("></")
			b.Write(name)
			b.WriteByte('>')
		default:
			b.Write(z.Raw())
		}
	}
}

func (n htmlNode) Name() string {
	return strings.ToLower(goquery.NodeName(n.sel))
}

func (n htmlNode) Attr(name string) (string, bool) {
	if len(n.sel.Nodes) == 0 {
		return "", false
	}
	for _, a := range n.sel.Nodes[0].Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (n htmlNode) Text() string {
	return n.sel.Text()
}

func (n htmlNode) matching(m Matcher) *goquery.Selection {
	return n.sel.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return m.Match(strings.ToLower(goquery.NodeName(s)))
	})
}

func (n htmlNode) FindFirst(m Matcher) Node {
	found := n.matching(m)
	if found.Length() == 0 {
		return nil
	}
	return htmlNode{sel: found.First()}
}

func (n htmlNode) FindAll(m Matcher) []Node {
	found := n.matching(m)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, htmlNode{sel: s})
	})
	return nodes
}
