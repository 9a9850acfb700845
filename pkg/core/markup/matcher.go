// Package markup provides a small query surface over parsed filing markup.
// Two backends are available: an HTML-mode tree built with goquery, which
// lower-cases element and attribute names the way SEC tooling usually sees
// them, and a strict XML tree built with xmlquery.
package markup

import (
	"strings"
)

// Matcher decides whether an element name matches. Names handed to Match
// are always lower-cased qualified names such as "us-gaap:assets".
type Matcher interface {
	Match(name string) bool
}

// MatcherFunc adapts a plain function to the Matcher interface.
type MatcherFunc func(name string) bool

func (f MatcherFunc) Match(name string) bool { return f(name) }

// Exact matches a qualified name, case-insensitively.
type Exact string

func (e Exact) Match(name string) bool {
	return strings.EqualFold(string(e), name)
}

// Prefix matches names starting with the given text.
type Prefix string

func (p Prefix) Match(name string) bool {
	return strings.HasPrefix(name, strings.ToLower(string(p)))
}

// Contains matches names containing the given text anywhere.
type Contains string

func (c Contains) Match(name string) bool {
	return strings.Contains(name, strings.ToLower(string(c)))
}

// Concept matches a namespaced concept name.
//
// Namespace is the prefix before the colon ("us-gaap"). When Lead is set
// the local name must start with it and the remainder is compared against
// Local according to Mode. NotBefore lists characters that may not occur
// ahead of Local when Mode is "contains": Local "liabilities" with
// NotBefore "s" catches "us-gaap:otherliabilities" but not
// "us-gaap:assetsliabilities".
type Concept struct {
	Namespace string
	Lead      string
	Local     string
	Mode      MatchMode
	NotBefore string
}

// MatchMode selects how Concept compares the local name.
type MatchMode string

const (
	ModeExact    MatchMode = "exact"
	ModePrefix   MatchMode = "prefix"
	ModeContains MatchMode = "contains"
)

func (c Concept) Match(name string) bool {
	ns, local, ok := SplitName(name)
	if !ok || !strings.EqualFold(ns, c.Namespace) {
		return false
	}
	if c.Lead != "" {
		lead := strings.ToLower(c.Lead)
		if !strings.HasPrefix(local, lead) {
			return false
		}
		local = local[len(lead):]
	}
	want := strings.ToLower(c.Local)
	switch c.Mode {
	case ModePrefix:
		return strings.HasPrefix(local, want)
	case ModeContains:
		// Later occurrences only add characters ahead of the match, so the
		// first one decides.
		idx := strings.Index(local, want)
		if idx < 0 {
			return false
		}
		return c.NotBefore == "" || !strings.ContainsAny(local[:idx], strings.ToLower(c.NotBefore))
	default:
		return local == want
	}
}

// NamespaceExcept matches every qualified name whose namespace prefix is not
// one of the listed prefixes. Unqualified names never match.
type NamespaceExcept []string

func (n NamespaceExcept) Match(name string) bool {
	ns, _, ok := SplitName(name)
	if !ok || ns == "" {
		return false
	}
	for _, excluded := range n {
		if strings.EqualFold(ns, excluded) {
			return false
		}
	}
	return true
}

// AnyOf matches when at least one of its members matches.
type AnyOf []Matcher

func (a AnyOf) Match(name string) bool {
	for _, m := range a {
		if m.Match(name) {
			return true
		}
	}
	return false
}

// SplitName splits "ns:local" into its parts. ok is false for unqualified
// names.
func SplitName(name string) (ns, local string, ok bool) {
	i := strings.IndexByte(name, ':')
	if i < 0 {
		return "", name, false
	}
	return name[:i], name[i+1:], true
}

// LocalName strips any namespace prefix from name.
func LocalName(name string) string {
	_, local, _ := SplitName(name)
	return local
}
