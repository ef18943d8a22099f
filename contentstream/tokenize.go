package contentstream

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokName
	tokString
	tokOperator
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// tokenize splits a content stream into operands and operators. Literal
// strings keep embedded whitespace and resolve backslash escapes; balanced
// parentheses inside strings are allowed.
func tokenize(src []byte) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case isWhitespace(c):
			i++
		case c == '%':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/':
			start := i + 1
			i = start
			for i < len(src) && isRegularByte(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokName, text: string(src[start:i])})
		case c == '(':
			s, next, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s})
			i = next
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			start := i
			i++
			for i < len(src) && (src[i] == '.' || (src[i] >= '0' && src[i] <= '9')) {
				i++
			}
			v, err := strconv.ParseFloat(string(src[start:i]), 64)
			if err != nil {
				return nil, fmt.Errorf("contentstream: bad number %q", src[start:i])
			}
			toks = append(toks, token{kind: tokNumber, num: v})
		default:
			start := i
			for i < len(src) && isRegularByte(src[i]) {
				i++
			}
			if i == start {
				// Lone delimiter byte with no meaning here; skip it.
				i++
				continue
			}
			toks = append(toks, token{kind: tokOperator, text: string(src[start:i])})
		}
	}
	return toks, nil
}

func scanString(src []byte, open int) (string, int, error) {
	out := make([]byte, 0, 16)
	depth := 1
	i := open + 1
	for i < len(src) {
		c := src[i]
		i++
		switch c {
		case '\\':
			if i >= len(src) {
				return "", 0, fmt.Errorf("contentstream: dangling escape")
			}
			e := src[i]
			i++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, e)
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return string(out), i, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return "", 0, fmt.Errorf("contentstream: unterminated string")
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isRegularByte(c byte) bool {
	if isWhitespace(c) {
		return false
	}
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}
