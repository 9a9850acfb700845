package repair

import (
	"strings"
	"testing"
)

// sgmlHeader mimics the EDGAR submission header that wraps many instance
// documents: bare <TAG>value lines that are never closed.
const sgmlHeader = `<SEC-DOCUMENT>
<TYPE>10-Q
<SEQUENCE>1
<FILENAME>abc-20200630.xml
<TEXT>
<XBRL>
<?xml version="1.0"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance">
<!-- generated -->
<us-gaap:Assets contextRef="I1" decimals="-6">1000</us-gaap:Assets>
<br>
<dei:TradingSymbol contextRef="D1">ABC</dei:TradingSymbol>
</xbrli:xbrl>
</XBRL>
</TEXT>
</SEC-DOCUMENT>`

func TestTokenize_RoundTrip(t *testing.T) {
	inputs := []string{
		sgmlHeader,
		"",
		"plain text only",
		"a < b and c > d",
		`<a href="x">link</a><br/><![CDATA[<not a tag>]]><!-- <b> -->`,
		"<unterminated <b>x</b>",
	}
	for _, in := range inputs {
		var b strings.Builder
		for _, tok := range Tokenize(in) {
			b.WriteString(tok.Text)
		}
		if b.String() != in {
			t.Errorf("Tokenize(%q) concatenation = %q", in, b.String())
		}
	}
}

func TestTokenize_Kinds(t *testing.T) {
	tokens := Tokenize(`<?xml version="1.0"?><a x="1">t</a><b/><!-- c -->`)
	want := []struct {
		kind TokenKind
		name string
	}{
		{TokenProcInst, ""},
		{TokenOpen, "a"},
		{TokenText, ""},
		{TokenClose, "a"},
		{TokenSelfClosing, "b"},
		{TokenComment, ""},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].Kind != w.kind || tokens[i].Name != w.name {
			t.Errorf("token %d = %s %q, want %s %q", i, tokens[i].Kind, tokens[i].Name, w.kind, w.name)
		}
	}
}

func TestRepair_SingleSlot(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "unclosed header lines close at the next tag",
			in:   "<TYPE>10-Q\n<SEQUENCE>1\n<DOC>x</DOC>",
			want: "<TYPE>10-Q\n</TYPE><SEQUENCE>1\n</SEQUENCE><DOC>x</DOC>",
		},
		{
			name: "explicitly closed elements are left alone",
			in:   "<a><b>x</b></a>",
			want: "<a><b>x</b></a>",
		},
		{
			name: "known-closed set is case-insensitive",
			in:   "<Item>1<ITEM>2</item>",
			want: "<Item>1<ITEM>2</item>",
		},
		{
			name: "processing instruction is a boundary",
			in:   "<TYPE>10-K<?xml version=\"1.0\"?>",
			want: "<TYPE>10-K</TYPE><?xml version=\"1.0\"?>",
		},
		{
			name: "comments do not end a pending element",
			in:   "<TYPE>10-K<!-- c --><x/>",
			want: "<TYPE>10-K<!-- c --></TYPE><x/>",
		},
		{
			name: "trailing pending element stays open",
			in:   "<a>x</a><TYPE>10-K",
			want: "<a>x</a><TYPE>10-K",
		},
		{
			name: "nested unclosed elements close one per boundary",
			in:   "<OUTER><INNER>v<z/>",
			want: "<OUTER></OUTER><INNER>v</INNER><z/>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Repair(tt.in); got != tt.want {
				t.Errorf("Repair() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRepair_Stack(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "leaf elements behave like the single slot",
			in:   "<TYPE>10-Q\n<SEQUENCE>1\n<DOC>x</DOC>",
			want: "<TYPE>10-Q\n</TYPE><SEQUENCE>1\n</SEQUENCE><DOC>x</DOC>",
		},
		{
			name: "containers close with their enclosing element",
			in:   "<doc><GROUP>\n<b>x</b>\n<ITEM>a\n</doc>",
			want: "<doc><GROUP>\n<b>x</b>\n<ITEM>a\n</ITEM></GROUP></doc>",
		},
		{
			name: "an unterminated first child closes its empty parent",
			in:   "<doc><GROUP>\n<ITEM>a\n<ITEM>b\n</doc>",
			want: "<doc><GROUP>\n</GROUP><ITEM>a\n</ITEM><ITEM>b\n</ITEM></doc>",
		},
		{
			name: "empty fact before another fact is not a container",
			in:   "<xbrl><Assets ref=\"I1\">\n<Liabilities ref=\"I1\">500\n</xbrl>",
			want: "<xbrl><Assets ref=\"I1\">\n</Assets><Liabilities ref=\"I1\">500\n</Liabilities></xbrl>",
		},
		{
			name: "self-closing first child closes its empty parent",
			in:   "<xbrl><Assets>\n<Nil/>\n<Liabilities>500\n</xbrl>",
			want: "<xbrl><Assets>\n</Assets><Nil/>\n<Liabilities>500\n</Liabilities></xbrl>",
		},
		{
			name: "text inside a known child does not make a container a leaf",
			in:   "<root><WRAP><b>x</b>tail</root>",
			want: "<root><WRAP><b>x</b>tail</WRAP></root>",
		},
		{
			name: "containers with no enclosing close stay open",
			in:   "<WRAP>\n<b>x</b>",
			want: "<WRAP>\n<b>x</b>",
		},
	}
	r := New(ModeStack)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Repair(tt.in); got != tt.want {
				t.Errorf("Repair() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		sgmlHeader,
		"<TYPE>10-Q\n<SEQUENCE>1\n<DOC>x</DOC>",
		"<doc><GROUP>\n<ITEM>a\n<ITEM>b\n</doc>",
		"<doc><GROUP>\n<b>x</b>\n<ITEM>a\n</doc>",
		"<xbrl><Assets>\n<Nil/>\n<Liabilities>500\n</xbrl>",
		"<root><WRAP><b>x</b>tail</root>",
		"<A><B>x</K><L>y",
		"<OUTER><INNER>v<z/>",
		"no markup",
	}
	for _, mode := range []Mode{ModeSingle, ModeStack} {
		r := New(mode)
		for _, in := range inputs {
			once := r.Repair(in)
			twice := r.Repair(once)
			if once != twice {
				t.Errorf("%s: repair not idempotent for %q:\n once  %q\n twice %q", mode, in, once, twice)
			}
		}
	}
}

func TestRepair_RemovingInsertionsRestoresInput(t *testing.T) {
	inputs := []string{
		sgmlHeader,
		"<doc><GROUP>\n<ITEM>a\n<ITEM>b\n</doc>",
		"<OUTER><INNER>v<z/>",
	}
	for _, mode := range []Mode{ModeSingle, ModeStack} {
		for _, in := range inputs {
			out, inserted := New(mode).RepairWithReport(in)
			if len(out) < len(in) {
				t.Fatalf("%s: output shorter than input", mode)
			}
			stripped := out
			for i := len(inserted) - 1; i >= 0; i-- {
				ins := inserted[i]
				if stripped[ins.Offset:ins.Offset+len(ins.Text)] != ins.Text {
					t.Fatalf("%s: insertion %d not at its recorded offset", mode, i)
				}
				stripped = stripped[:ins.Offset] + stripped[ins.Offset+len(ins.Text):]
			}
			if stripped != in {
				t.Errorf("%s: stripped output differs from input:\n got  %q\n want %q", mode, stripped, in)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeSingle {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("STACK"); err != nil || m != ModeStack {
		t.Errorf("ParseMode(STACK) = %v, %v", m, err)
	}
	if _, err := ParseMode("deep"); err == nil {
		t.Error("ParseMode(deep) should fail")
	}
}
