package fixture

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenInt
	tokenRegion
	tokenString
	tokenArrow
	tokenPunct
)

var tokenKindNames = map[tokenKind]string{
	tokenEOF:    "end of input",
	tokenIdent:  "identifier",
	tokenInt:    "integer",
	tokenRegion: "region",
	tokenString: "string",
	tokenArrow:  "->",
	tokenPunct:  "punctuation",
}

func (k tokenKind) String() string {
	v, ok := tokenKindNames[k]
	if !ok {
		return fmt.Sprintf("token-invalid(%d)", k)
	}

	return v
}

type token struct {
	kind tokenKind
	text string
	off  int
}

func (t token) String() string {
	if t.kind == tokenEOF {
		return t.kind.String()
	}

	return fmt.Sprintf("%q", t.text)
}

const punctuation = "(){}[]<>,;:=&*.@-"

// lex splits the source into tokens. The last token is always tokenEOF.
func lex(src string) ([]token, error) {
	var res []token
	for off := 0; off < len(src); {
		r, size := utf8.DecodeRuneInString(src[off:])
		switch {
		case unicode.IsSpace(r):
			off += size

		case r == '_' || unicode.IsLetter(r):
			end := scan(src, off, func(r rune) bool {
				return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
			})
			res = append(res, token{kind: tokenIdent, text: src[off:end], off: off})
			off = end

		case unicode.IsDigit(r):
			end := scan(src, off, unicode.IsDigit)
			res = append(res, token{kind: tokenInt, text: src[off:end], off: off})
			off = end

		case r == '\'':
			end := scan(src, off+1, unicode.IsDigit)
			if end == off+1 {
				return nil, &SyntaxError{Offset: off, Msg: "region number expected after '"}
			}
			res = append(res, token{kind: tokenRegion, text: src[off+1 : end], off: off})
			off = end

		case r == '"':
			end := off + 1
			for end < len(src) && src[end] != '"' {
				end++
			}
			if end == len(src) {
				return nil, &SyntaxError{Offset: off, Msg: "unterminated string"}
			}
			res = append(res, token{kind: tokenString, text: src[off+1 : end], off: off})
			off = end + 1

		case r == '-' && off+1 < len(src) && src[off+1] == '>':
			res = append(res, token{kind: tokenArrow, text: "->", off: off})
			off += 2

		case r < utf8.RuneSelf && strings.IndexByte(punctuation, byte(r)) >= 0:
			res = append(res, token{kind: tokenPunct, text: string(r), off: off})
			off += size

		default:
			return nil, &SyntaxError{Offset: off, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}

	return append(res, token{kind: tokenEOF, off: len(src)}), nil
}

func scan(src string, off int, accept func(rune) bool) int {
	for off < len(src) {
		r, size := utf8.DecodeRuneInString(src[off:])
		if !accept(r) {
			break
		}
		off += size
	}

	return off
}
