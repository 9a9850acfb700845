package markup

import (
	"strings"
	"testing"
)

const filing = `<?xml version="1.0"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance" xmlns:us-gaap="http://fasb.org/us-gaap/2020-01-31" xmlns:abc="http://abc.example.com">
<xbrli:context id="I1"><xbrli:period><xbrli:instant>2020-06-30</xbrli:instant></xbrli:period></xbrli:context>
<us-gaap:Assets contextRef="I1" decimals="-6">350</us-gaap:Assets>
<us-gaap:AssetsCurrent contextRef="I1" decimals="-6">150</us-gaap:AssetsCurrent>
<abc:Backlog contextRef="I1">42</abc:Backlog>
</xbrli:xbrl>`

func TestBackends(t *testing.T) {
	for _, backend := range []Backend{BackendHTML, BackendXML} {
		t.Run(string(backend), func(t *testing.T) {
			root, err := Parse(strings.NewReader(filing), backend)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			assets := root.FindFirst(Exact("us-gaap:Assets"))
			if assets == nil {
				t.Fatal("FindFirst(us-gaap:Assets) = nil")
			}
			if assets.Name() != "us-gaap:assets" {
				t.Errorf("Name() = %q, want lower-cased qualified name", assets.Name())
			}
			if v, ok := assets.Attr("contextref"); !ok || v != "I1" {
				t.Errorf("Attr(contextref) = %q, %v", v, ok)
			}
			if v, ok := assets.Attr("DECIMALS"); !ok || v != "-6" {
				t.Errorf("Attr(DECIMALS) = %q, %v", v, ok)
			}
			if _, ok := assets.Attr("unitref"); ok {
				t.Error("Attr(unitref) should be missing")
			}
			if assets.Text() != "350" {
				t.Errorf("Text() = %q", assets.Text())
			}

			all := root.FindAll(Prefix("us-gaap:assets"))
			if len(all) != 2 || all[0].Text() != "350" || all[1].Text() != "150" {
				t.Errorf("FindAll(prefix) returned %d nodes out of document order", len(all))
			}

			ctx := root.FindFirst(Exact("xbrli:context"))
			if ctx == nil || ctx.FindFirst(Exact("xbrli:instant")).Text() != "2020-06-30" {
				t.Error("nested FindFirst did not reach the instant")
			}
			if ctx.FindFirst(Exact("us-gaap:assets")) != nil {
				t.Error("FindFirst escaped the context subtree")
			}

			if got := root.FindAll(NamespaceExcept{"xbrli", "us-gaap"}); len(got) != 1 || LocalName(got[0].Name()) != "backlog" {
				t.Errorf("FindAll(custom) = %d nodes", len(got))
			}
			if root.FindFirst(Exact("us-gaap:liabilities")) != nil {
				t.Error("FindFirst(missing) should be nil")
			}
		})
	}
}

func TestBackends_SelfClosingElements(t *testing.T) {
	const doc = `<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance" xmlns:us-gaap="http://fasb.org/us-gaap/2020-01-31" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<us-gaap:Assets contextRef="I1" decimals="0" xsi:nil="true"/>
<us-gaap:Liabilities contextRef="I1" decimals="0">500</us-gaap:Liabilities>
<br/>
<us-gaap:Equity contextRef = "I1" />
</xbrli:xbrl>`
	for _, backend := range []Backend{BackendHTML, BackendXML} {
		t.Run(string(backend), func(t *testing.T) {
			root, err := Parse(strings.NewReader(doc), backend)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			assets := root.FindFirst(Exact("us-gaap:assets"))
			if assets == nil {
				t.Fatal("FindFirst(us-gaap:assets) = nil")
			}
			if assets.Text() != "" {
				t.Errorf("nil fact Text() = %q, want empty", assets.Text())
			}
			if v, ok := assets.Attr("contextref"); !ok || v != "I1" {
				t.Errorf("Attr(contextref) = %q, %v", v, ok)
			}
			if assets.FindFirst(Exact("us-gaap:liabilities")) != nil {
				t.Error("self-closing element swallowed its next sibling")
			}
			if got := root.FindFirst(Exact("us-gaap:liabilities")); got == nil || got.Text() != "500" {
				t.Errorf("liabilities = %v", got)
			}
			if got := root.FindFirst(Exact("us-gaap:equity")); got == nil || got.Text() != "" {
				t.Errorf("equity = %v", got)
			}
		})
	}
}

func TestParseXML_Malformed(t *testing.T) {
	if _, err := Parse(strings.NewReader(`<a><b></a>`), BackendXML); err == nil {
		t.Error("Parse(xml) should reject mismatched tags")
	}
}

func TestParseBackend(t *testing.T) {
	tests := map[string]Backend{"": BackendHTML, "HTML": BackendHTML, " xml ": BackendXML}
	for in, want := range tests {
		if got, err := ParseBackend(in); err != nil || got != want {
			t.Errorf("ParseBackend(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseBackend("lxml"); err == nil {
		t.Error("ParseBackend(lxml) should fail")
	}
}

func TestConceptMatcher(t *testing.T) {
	tests := []struct {
		name    string
		matcher Concept
		tag     string
		want    bool
	}{
		{"exact local", Concept{Namespace: "us-gaap", Local: "Assets"}, "us-gaap:assets", true},
		{"exact rejects longer", Concept{Namespace: "us-gaap", Local: "assets"}, "us-gaap:assetscurrent", false},
		{"namespace must match", Concept{Namespace: "us-gaap", Local: "assets"}, "ifrs:assets", false},
		{"unqualified never matches", Concept{Namespace: "us-gaap", Local: "assets"}, "assets", false},
		{"prefix", Concept{Namespace: "us-gaap", Local: "costofrevenue", Mode: ModePrefix}, "us-gaap:costofrevenuegoods", true},
		{"contains anywhere", Concept{Namespace: "us-gaap", Local: "liabilities", Mode: ModeContains}, "us-gaap:totalliabilities", true},
		{"not before allows clean lead", Concept{Namespace: "us-gaap", Local: "liabilities", Mode: ModeContains, NotBefore: "s"}, "us-gaap:otherliabilities", true},
		{"not before rejects", Concept{Namespace: "us-gaap", Local: "liabilities", Mode: ModeContains, NotBefore: "s"}, "us-gaap:assetsliabilities", false},
		{"lead then contains", Concept{Namespace: "us-gaap", Lead: "operating", Local: "expenses", Mode: ModeContains, NotBefore: "s"}, "us-gaap:operatingotherexpenses", true},
		{"lead required", Concept{Namespace: "us-gaap", Lead: "operating", Local: "expenses", Mode: ModeContains}, "us-gaap:otherexpenses", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher.Match(tt.tag); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestSimpleMatchers(t *testing.T) {
	if !Exact("US-GAAP:Assets").Match("us-gaap:assets") {
		t.Error("Exact should ignore case")
	}
	if !Contains("Context").Match("xbrli:context") {
		t.Error("Contains should lower-case its needle")
	}
	union := AnyOf{Exact("a:x"), Prefix("b:")}
	if !union.Match("b:y") || union.Match("c:z") {
		t.Error("AnyOf should union its members")
	}
	if (NamespaceExcept{"xbrli"}).Match("plain") {
		t.Error("NamespaceExcept should skip unqualified names")
	}
	matchAll := MatcherFunc(func(string) bool { return true })
	if !matchAll.Match("anything") {
		t.Error("MatcherFunc should delegate")
	}
}

func TestSplitName(t *testing.T) {
	ns, local, ok := SplitName("us-gaap:assets")
	if ns != "us-gaap" || local != "assets" || !ok {
		t.Errorf("SplitName = %q, %q, %v", ns, local, ok)
	}
	if _, local, ok := SplitName("body"); ok || local != "body" {
		t.Errorf("SplitName(body) = %q, %v", local, ok)
	}
}
