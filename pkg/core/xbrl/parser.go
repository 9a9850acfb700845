// Package xbrl extracts financial facts from XBRL instance documents.
//
// A parse runs the repair preprocessor, builds a markup tree, reads the
// context catalog and then extracts every concept of the mapping table.
// The resulting ParseResult is immutable and safe for concurrent readers.
package xbrl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"xbrl_facts/pkg/core/markup"
	"xbrl_facts/pkg/core/repair"
)

// ParseResult holds everything extracted from one document.
type ParseResult struct {
	Contexts *Catalog `json:"contexts"`
	// GAAP maps concept key -> context id -> value. Every GAAP concept of
	// the table has an entry, possibly empty.
	GAAP map[string]map[string]Value `json:"gaap"`
	// DEI maps concept key -> value.
	DEI map[string]Value `json:"dei"`
	// Custom maps the local name of company-specific numeric tags to their
	// raw text.
	Custom map[string]string `json:"custom"`
}

// Parser turns documents into ParseResults. A Parser is safe for
// concurrent use when its diagnostic sink is.
type Parser struct {
	concepts *ConceptTable
	repairer *repair.Repairer
	backend  markup.Backend
	policy   ErrorPolicy
	sink     DiagnosticSink
}

// Option configures a Parser.
type Option func(*Parser)

// WithConcepts replaces the built-in concept table.
func WithConcepts(t *ConceptTable) Option {
	return func(p *Parser) { p.concepts = t }
}

// WithRepairMode selects the preprocessor strategy.
func WithRepairMode(m repair.Mode) Option {
	return func(p *Parser) { p.repairer = repair.New(m) }
}

// WithBackend selects the markup tree implementation.
func WithBackend(b markup.Backend) Option {
	return func(p *Parser) { p.backend = b }
}

// WithErrorPolicy sets how extraction failures are handled.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(p *Parser) { p.policy = policy }
}

// WithDiagnosticSink sets where PolicyLogging reports skipped facts.
func WithDiagnosticSink(s DiagnosticSink) Option {
	return func(p *Parser) { p.sink = s }
}

// NewParser returns a parser using the built-in concept table,
// single-slot repair, the HTML backend and the permissive policy unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		repairer: repair.New(repair.ModeSingle),
		backend:  markup.BackendHTML,
		policy:   PolicyPermissive,
		sink:     NopSink{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concepts == nil {
		p.concepts = DefaultConcepts()
	}
	if p.sink == nil {
		p.sink = NopSink{}
	}
	return p
}

// ParseDocument parses r with default settings and the given policy.
func ParseDocument(r io.Reader, policy ErrorPolicy) (*ParseResult, error) {
	return NewParser(WithErrorPolicy(policy)).Parse(r)
}

// Concepts returns the table the parser extracts.
func (p *Parser) Concepts() *ConceptTable { return p.concepts }

// Parse reads the whole document from r and extracts its facts.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return p.ParseBytes(raw)
}

// ParseBytes extracts facts from an in-memory document.
func (p *Parser) ParseBytes(raw []byte) (*ParseResult, error) {
	repaired := p.repairer.Repair(string(raw))
	doc, err := markup.Parse(strings.NewReader(repaired), p.backend)
	if err != nil {
		return nil, err
	}

	contexts, err := BuildContexts(doc)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{
		Contexts: contexts,
		GAAP:     make(map[string]map[string]Value),
		DEI:      make(map[string]Value),
		Custom:   make(map[string]string),
	}

	ex := NewExtractor(p.policy, p.sink)
	for _, c := range p.concepts.concepts {
		out, err := ex.Extract(findFacts(doc, c.Matcher), c)
		if err != nil {
			return nil, err
		}
		switch c.Group {
		case GroupGAAP:
			res.GAAP[c.Key] = declaredOnly(out.Contexts, contexts)
		case GroupDEI:
			res.DEI[c.Key] = out.Value
		}
	}

	for _, c := range p.concepts.concepts {
		if len(c.Difference) == 2 && len(res.GAAP[c.Key]) == 0 {
			res.GAAP[c.Key] = difference(res.GAAP[c.Difference[0]], res.GAAP[c.Difference[1]])
		}
	}

	for _, n := range doc.FindAll(p.concepts.CustomMatcher()) {
		if text := n.Text(); IsNumber(text) {
			res.Custom[markup.LocalName(n.Name())] = text
		}
	}
	return res, nil
}

// findFacts returns the nodes matched by m. A union is searched member by
// member and the results concatenated, so when two members report the same
// context the later member wins.
func findFacts(doc markup.Node, m markup.Matcher) []markup.Node {
	union, ok := m.(markup.AnyOf)
	if !ok {
		return doc.FindAll(m)
	}
	var nodes []markup.Node
	for _, member := range union {
		nodes = append(nodes, findFacts(doc, member)...)
	}
	return nodes
}

// declaredOnly drops facts whose context is not in the catalog, which is
// where segment-qualified contexts end up.
func declaredOnly(values map[string]Value, contexts *Catalog) map[string]Value {
	kept := make(map[string]Value, len(values))
	for id, v := range values {
		if contexts.Has(id) {
			kept[id] = v
		}
	}
	return kept
}

// difference subtracts b from a in every context both report.
func difference(a, b map[string]Value) map[string]Value {
	out := make(map[string]Value)
	for id, av := range a {
		bv, ok := b[id]
		if !ok || !av.IsNumber() || !bv.IsNumber() {
			continue
		}
		if av.Kind == KindInt && bv.Kind == KindInt {
			out[id] = IntValue(av.Int - bv.Int)
		} else {
			out[id] = FloatValue(av.Float64() - bv.Float64())
		}
	}
	return out
}

// Report is a flat view of every GAAP concept at one context.
type Report struct {
	ContextID string           `json:"context_id"`
	Period    Period           `json:"period"`
	Values    map[string]Value `json:"values"`
}

// Get returns the value of key, or 0 when the concept is unknown.
func (r *Report) Get(key string) Value {
	if v, ok := r.Values[key]; ok {
		return v
	}
	return FloatValue(0)
}

// ReportAt resolves sel against the catalog and reads every GAAP concept
// at the chosen context. Concepts without a value there read as 0.
func (r *ParseResult) ReportAt(sel Selector, end time.Time) (*Report, error) {
	id, err := Resolve(r.Contexts, sel, end)
	if err != nil {
		return nil, err
	}
	period, _ := r.Contexts.Get(id)
	rep := &Report{ContextID: id, Period: period, Values: make(map[string]Value, len(r.GAAP))}
	for key, byContext := range r.GAAP {
		v, ok := byContext[id]
		if !ok {
			v = FloatValue(0)
		}
		rep.Values[key] = v
	}
	return rep, nil
}
