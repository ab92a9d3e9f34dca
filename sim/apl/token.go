// Package apl parses and executes the priority-list rule language: an
// ordered set of action lists whose entries pair an ability with a
// conditional expression over the combat state.
package apl

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokPath // dotted identifier, e.g. buff.rising_fury.remains
	tokAnd  // &
	tokOr   // |
	tokNot  // !
	tokLT   // <
	tokLE   // <=
	tokGT   // >
	tokGE   // >=
	tokEQ   // = or ==
	tokNE   // !=
	tokPlus
	tokMinus
	tokStar
	tokSlash // '%' is division in the rule language; '/' accepted as alias
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int // byte offset into the expression, for error messages
}

// lex tokenizes a conditional expression. Errors carry the offending byte
// offset so the parser can name the exact position within the rule.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '&':
			toks = append(toks, token{kind: tokAnd, text: "&", pos: i})
			i++
			// '&&' is tolerated
			if i < len(input) && input[i] == '&' {
				i++
			}
		case c == '|':
			toks = append(toks, token{kind: tokOr, text: "|", pos: i})
			i++
			if i < len(input) && input[i] == '|' {
				i++
			}
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokNE, text: "!=", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokNot, text: "!", pos: i})
				i++
			}
		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokLE, text: "<=", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokLT, text: "<", pos: i})
				i++
			}
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokGE, text: ">=", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokGT, text: ">", pos: i})
				i++
			}
		case c == '=':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokEQ, text: "==", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokEQ, text: "=", pos: i})
				i++
			}
		case c == '+':
			toks = append(toks, token{kind: tokPlus, text: "+", pos: i})
			i++
		case c == '-':
			toks = append(toks, token{kind: tokMinus, text: "-", pos: i})
			i++
		case c == '*':
			toks = append(toks, token{kind: tokStar, text: "*", pos: i})
			i++
		case c == '%' || c == '/':
			toks = append(toks, token{kind: tokSlash, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c >= '0' && c <= '9':
			start := i
			seenDot := false
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.' && !seenDot) {
				if input[i] == '.' {
					// A digit must follow for this to be a decimal point.
					if i+1 >= len(input) || input[i+1] < '0' || input[i+1] > '9' {
						break
					}
					seenDot = true
				}
				i++
			}
			text := input[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at offset %d", text, start)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, pos: start})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokPath, text: input[start:i], pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", string(c), i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

// isIdentPart includes '.' so dotted field paths lex as a single token.
func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.'
}
