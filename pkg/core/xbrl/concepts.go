package xbrl

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"xbrl_facts/pkg/core/markup"
)

//go:embed concepts.yaml
var defaultConceptsYAML []byte

// FactType is the declared type of a concept.
type FactType string

const (
	TypeNumber FactType = "number"
	TypeString FactType = "string"
)

// Group says which snapshot a concept belongs to.
type Group string

const (
	GroupGAAP Group = "gaap"
	GroupDEI  Group = "dei"
)

// Concept is one row of the mapping table.
type Concept struct {
	Key         string
	Group       Group
	Type        FactType
	Contextless bool
	Matcher     markup.Matcher
	// Difference, when set, derives the concept per context as
	// Difference[0] - Difference[1] if no tag matched.
	Difference []string
}

// ConceptTable is the parsed mapping table. It is read-only after loading.
type ConceptTable struct {
	concepts []Concept
	index    map[string]int
	// WellKnown lists namespace prefixes excluded from custom facts.
	WellKnown []string
}

type conceptFile struct {
	Concepts  []conceptEntry `yaml:"concepts"`
	WellKnown []string       `yaml:"well_known_namespaces"`
}

type conceptEntry struct {
	Key         string      `yaml:"key"`
	Group       string      `yaml:"group"`
	Type        string      `yaml:"type"`
	Contextless bool        `yaml:"contextless"`
	Match       []matchRule `yaml:"match"`
	Fallback    struct {
		Difference []string `yaml:"difference"`
	} `yaml:"fallback"`
}

type matchRule struct {
	Exact     string `yaml:"exact"`
	Namespace string `yaml:"namespace"`
	Lead      string `yaml:"lead"`
	Local     string `yaml:"local"`
	Prefix    string `yaml:"prefix"`
	Contains  string `yaml:"contains"`
	NotBefore string `yaml:"not_before"`
}

func (r matchRule) matcher() (markup.Matcher, error) {
	switch {
	case r.Exact != "":
		return markup.Exact(r.Exact), nil
	case r.Namespace == "":
		return nil, fmt.Errorf("matcher needs exact or namespace")
	case r.Prefix != "":
		return markup.Concept{Namespace: r.Namespace, Lead: r.Lead, Local: r.Prefix, Mode: markup.ModePrefix}, nil
	case r.Contains != "":
		return markup.Concept{Namespace: r.Namespace, Lead: r.Lead, Local: r.Contains, Mode: markup.ModeContains, NotBefore: r.NotBefore}, nil
	case r.Local != "":
		return markup.Concept{Namespace: r.Namespace, Lead: r.Lead, Local: r.Local, Mode: markup.ModeExact}, nil
	}
	return nil, fmt.Errorf("matcher for namespace %s has no name rule", r.Namespace)
}

// DefaultConcepts returns the built-in table.
func DefaultConcepts() *ConceptTable {
	t, err := ParseConcepts(defaultConceptsYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in concept table: %v", err))
	}
	return t
}

// LoadConcepts reads a table from a YAML file.
func LoadConcepts(path string) (*ConceptTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read concept table %s: %w", path, err)
	}
	return ParseConcepts(data)
}

// ParseConcepts builds a table from YAML.
func ParseConcepts(data []byte) (*ConceptTable, error) {
	var f conceptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse concept table: %w", err)
	}

	t := &ConceptTable{index: make(map[string]int), WellKnown: f.WellKnown}
	for _, e := range f.Concepts {
		if e.Key == "" {
			return nil, fmt.Errorf("concept without key")
		}
		if _, dup := t.index[e.Key]; dup {
			return nil, fmt.Errorf("duplicate concept %q", e.Key)
		}
		c := Concept{
			Key:         e.Key,
			Group:       Group(strings.ToLower(e.Group)),
			Type:        FactType(strings.ToLower(e.Type)),
			Contextless: e.Contextless,
			Difference:  e.Fallback.Difference,
		}
		if c.Group == "" {
			c.Group = GroupGAAP
		}
		if c.Type == "" {
			c.Type = TypeNumber
		}
		if c.Group != GroupGAAP && c.Group != GroupDEI {
			return nil, fmt.Errorf("concept %q: unknown group %q", e.Key, e.Group)
		}
		if c.Type != TypeNumber && c.Type != TypeString {
			return nil, fmt.Errorf("concept %q: unknown type %q", e.Key, e.Type)
		}
		if c.Group == GroupGAAP && (c.Type != TypeNumber || c.Contextless) {
			return nil, fmt.Errorf("concept %q: gaap concepts must be numbers read per context", e.Key)
		}
		if c.Group == GroupDEI && c.Type == TypeNumber && !c.Contextless {
			return nil, fmt.Errorf("concept %q: numeric dei concepts must be contextless", e.Key)
		}
		if len(c.Difference) != 0 && len(c.Difference) != 2 {
			return nil, fmt.Errorf("concept %q: difference needs two operands", e.Key)
		}
		if len(e.Match) == 0 {
			return nil, fmt.Errorf("concept %q has no matchers", e.Key)
		}
		var matchers markup.AnyOf
		for _, r := range e.Match {
			m, err := r.matcher()
			if err != nil {
				return nil, fmt.Errorf("concept %q: %w", e.Key, err)
			}
			matchers = append(matchers, m)
		}
		if len(matchers) == 1 {
			c.Matcher = matchers[0]
		} else {
			c.Matcher = matchers
		}
		t.index[c.Key] = len(t.concepts)
		t.concepts = append(t.concepts, c)
	}
	for _, c := range t.concepts {
		for _, op := range c.Difference {
			if _, ok := t.index[op]; !ok {
				return nil, fmt.Errorf("concept %q: difference operand %q is not defined", c.Key, op)
			}
		}
	}
	return t, nil
}

// Concepts returns every concept in table order.
func (t *ConceptTable) Concepts() []Concept {
	return append([]Concept(nil), t.concepts...)
}

// Lookup finds a concept by key.
func (t *ConceptTable) Lookup(key string) (Concept, bool) {
	i, ok := t.index[key]
	if !ok {
		return Concept{}, false
	}
	return t.concepts[i], true
}

// Keys returns the keys of every concept in g, in table order.
func (t *ConceptTable) Keys(g Group) []string {
	var keys []string
	for _, c := range t.concepts {
		if c.Group == g {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// CustomMatcher matches company-specific concepts: any namespaced tag
// outside the well-known prefixes.
func (t *ConceptTable) CustomMatcher() markup.Matcher {
	return markup.NamespaceExcept(t.WellKnown)
}
