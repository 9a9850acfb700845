// Package repair heals quasi-XML filing markup before it is handed to a
// tree parser. Repairs only ever insert synthesized end tags; original text
// is passed through untouched and in order.
package repair

import (
	"regexp"
	"strings"
)

// TokenKind classifies a Token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenOpen
	TokenSelfClosing
	TokenClose
	TokenProcInst
	// TokenComment covers comments, CDATA sections and <!DOCTYPE>-style
	// declarations. They behave like text during repair.
	TokenComment
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenOpen:
		return "open"
	case TokenSelfClosing:
		return "self-closing"
	case TokenClose:
		return "close"
	case TokenProcInst:
		return "procinst"
	case TokenComment:
		return "comment"
	}
	return "unknown"
}

// Token is either a text run or a markup delimiter. Text holds the exact
// source bytes; Name is set for open, self-closing and close tags.
type Token struct {
	Kind TokenKind
	Text string
	Name string
}

// boundary reports whether the token ends a pending unterminated element.
func (t Token) boundary() bool {
	switch t.Kind {
	case TokenOpen, TokenSelfClosing, TokenClose, TokenProcInst:
		return true
	}
	return false
}

var markupPattern = regexp.MustCompile(`<!--[\s\S]*?-->|<!\[CDATA\[[\s\S]*?\]\]>|<\?[\s\S]*?\?>|<![^<>]*>|</?[A-Za-z_][^<>]*>`)

// Tokenize splits raw into alternating text and markup tokens. A '<' that
// does not start a recognisable tag stays inside the surrounding text.
// Concatenating the Text of every token reproduces raw exactly.
func Tokenize(raw string) []Token {
	var tokens []Token
	last := 0
	for _, loc := range markupPattern.FindAllStringIndex(raw, -1) {
		if loc[0] > last {
			tokens = append(tokens, Token{Kind: TokenText, Text: raw[last:loc[0]]})
		}
		tokens = append(tokens, classify(raw[loc[0]:loc[1]]))
		last = loc[1]
	}
	if last < len(raw) {
		tokens = append(tokens, Token{Kind: TokenText, Text: raw[last:]})
	}
	return tokens
}

func classify(tag string) Token {
	switch {
	case strings.HasPrefix(tag, "<!"):
		return Token{Kind: TokenComment, Text: tag}
	case strings.HasPrefix(tag, "<?"):
		return Token{Kind: TokenProcInst, Text: tag}
	case strings.HasPrefix(tag, "</"):
		return Token{Kind: TokenClose, Text: tag, Name: tagName(tag[2:])}
	case strings.HasSuffix(tag, "/>"):
		return Token{Kind: TokenSelfClosing, Text: tag, Name: tagName(tag[1:])}
	default:
		return Token{Kind: TokenOpen, Text: tag, Name: tagName(tag[1:])}
	}
}

// tagName reads the element name from the inside of a tag, stopping at
// whitespace, '/' or '>'.
func tagName(s string) string {
	end := strings.IndexAny(s, " \t\r\n/>")
	if end < 0 {
		return s
	}
	return s[:end]
}
