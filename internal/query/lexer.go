package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenPlus
	tokenMinus
	tokenColon
	tokenLParen
	tokenRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of query"
	case tokenIdent:
		return "identifier"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenColon:
		return "':'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer is a pull-based scanner over the query alphabet. The parser drives
// it token by token; metatag values are scanned on demand via value() since
// their alphabet differs from the rest of the grammar.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isValueRune reports whether r may appear in a bare (unquoted) metatag
// value.
func isValueRune(r rune) bool {
	return isWordRune(r) || strings.ContainsRune(`.*?\-`, r)
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// next returns the next token, or a LexError for a character outside the
// grammar's alphabet.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	switch r {
	case '+':
		l.pos += size
		return token{kind: tokenPlus, text: "+", pos: start}, nil
	case '-':
		l.pos += size
		return token{kind: tokenMinus, text: "-", pos: start}, nil
	case ':':
		l.pos += size
		return token{kind: tokenColon, text: ":", pos: start}, nil
	case '(':
		l.pos += size
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case ')':
		l.pos += size
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	}

	if isWordRune(r) {
		for l.pos < len(l.input) {
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			if !isWordRune(r) {
				break
			}
			l.pos += size
		}
		return token{kind: tokenIdent, text: l.input[start:l.pos], pos: start}, nil
	}

	return token{}, &LexError{Char: r, Pos: start}
}

// value scans a metatag value: either a double-quoted string or a bare run
// of value characters. Called by the parser immediately after the second
// colon of a metatag.
func (l *lexer) value() (string, int, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.input) {
		return "", start, &SyntaxError{Pos: start}
	}

	if l.input[l.pos] == '"' {
		return l.quotedValue()
	}

	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isValueRune(r) {
			break
		}
		l.pos += size
	}
	if l.pos == start {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		return "", start, &SyntaxError{Fragment: string(r), Pos: start}
	}
	return l.input[start:l.pos], start, nil
}

// quotedValue scans a double-quoted value. The sequence \" escapes a quote;
// every other backslash passes through verbatim so regex-mode values keep
// their escapes.
func (l *lexer) quotedValue() (string, int, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		switch r {
		case '"':
			l.pos += size
			return b.String(), start, nil
		case '\\':
			if l.pos+size < len(l.input) && l.input[l.pos+size] == '"' {
				b.WriteByte('"')
				l.pos += size + 1
				continue
			}
			b.WriteRune(r)
			l.pos += size
		default:
			b.WriteRune(r)
			l.pos += size
		}
	}
	return "", start, &SyntaxError{Fragment: l.input[start:], Pos: start}
}
