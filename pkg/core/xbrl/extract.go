package xbrl

import (
	"fmt"
	"strconv"
	"strings"

	"xbrl_facts/pkg/core/markup"
)

// ErrorPolicy decides what happens when a single fact cannot be read.
type ErrorPolicy int

const (
	// PolicyStrict aborts the concept batch on the first failure.
	PolicyStrict ErrorPolicy = iota
	// PolicyPermissive skips the failing fact.
	PolicyPermissive
	// PolicyLogging skips the failing fact and reports it to the sink.
	PolicyLogging
)

func (p ErrorPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyPermissive:
		return "permissive"
	case PolicyLogging:
		return "logging"
	}
	return fmt.Sprintf("ErrorPolicy(%d)", int(p))
}

// ParseErrorPolicy accepts a policy name or the numeric levels 0, 1 and 2.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "0":
		return PolicyStrict, nil
	case "", "permissive", "ignore", "1":
		return PolicyPermissive, nil
	case "logging", "log", "2":
		return PolicyLogging, nil
	}
	return 0, fmt.Errorf("unknown error policy %q", s)
}

// Extraction is the outcome of extracting one concept. Contextful numeric
// concepts fill Contexts; string and contextless concepts fill Value.
type Extraction struct {
	Value    Value
	Contexts map[string]Value
}

// Extractor turns matched concept nodes into values.
type Extractor struct {
	Policy ErrorPolicy
	Sink   DiagnosticSink
}

// NewExtractor returns an extractor. A nil sink discards diagnostics.
func NewExtractor(policy ErrorPolicy, sink DiagnosticSink) *Extractor {
	if sink == nil {
		sink = NopSink{}
	}
	return &Extractor{Policy: policy, Sink: sink}
}

// Extract reads the value(s) of concept from nodes.
func (e *Extractor) Extract(nodes []markup.Node, concept Concept) (Extraction, error) {
	if concept.Type == TypeString {
		if len(nodes) == 0 {
			return Extraction{Value: StringValue("")}, nil
		}
		return Extraction{Value: StringValue(nodes[0].Text())}, nil
	}

	if concept.Contextless {
		if len(nodes) > 0 && IsNumber(nodes[0].Text()) {
			return Extraction{Value: StringValue(nodes[0].Text())}, nil
		}
		return Extraction{}, nil
	}

	values := make(map[string]Value)
	for _, n := range nodes {
		ctx, v, err := readFact(n, concept.Key)
		if err != nil {
			if e.Policy == PolicyStrict {
				return Extraction{}, err
			}
			if e.Policy == PolicyLogging && e.Sink != nil {
				e.Sink.ReportExtractionFailure(err)
			}
			continue
		}
		if v.IsNull() {
			continue
		}
		values[ctx] = v
	}
	return Extraction{Contexts: values}, nil
}

// readFact converts one contextful numeric node. Non-numeric text is not an
// error and yields a null value.
func readFact(n markup.Node, concept string) (string, Value, *ValueExtractionError) {
	text := n.Text()
	ctx, ok := n.Attr("contextref")
	if !ok {
		return "", Value{}, &ValueExtractionError{Concept: concept, Text: text, Reason: "missing contextref"}
	}
	if !IsNumber(text) {
		return ctx, Value{}, nil
	}

	precision := int64(0)
	if raw, ok := n.Attr("decimals"); ok {
		p, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return "", Value{}, &ValueExtractionError{Concept: concept, ContextRef: ctx, Text: text, Reason: "malformed decimals " + strconv.Quote(raw), Err: err}
		}
		precision = p
	}

	lit := strings.TrimSpace(text)
	if precision > 0 {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return "", Value{}, &ValueExtractionError{Concept: concept, ContextRef: ctx, Text: text, Reason: "malformed number", Err: err}
		}
		return ctx, FloatValue(f), nil
	}
	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return "", Value{}, &ValueExtractionError{Concept: concept, ContextRef: ctx, Text: text, Reason: "not an integer", Err: err}
	}
	return ctx, IntValue(i), nil
}
