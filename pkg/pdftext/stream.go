package pdftext

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// kerningSpace is the TJ displacement, in thousandths of an em, past which
// a gap between two strings is read as a word break.
const kerningSpace = -200

// DecodeContent returns the text shown by the Tj, TJ, ' and " operators of a
// page content stream. Text positioning operators become line breaks or
// spaces. String bytes are read as PDFDocEncoding unless they carry a
// UTF-16BE byte order mark.
func DecodeContent(content []byte) string {
	s := &scanner{data: content}
	w := &textWriter{}

	var operands []token
	depth := 0
	var array []token

	for {
		tok, ok := s.next()
		if !ok {
			break
		}

		switch tok.kind {
		case tokArrayOpen:
			depth++
			array = array[:0]
			continue
		case tokArrayClose:
			if depth > 0 {
				depth--
			}
			operands = append(operands, token{kind: tokArray, items: append([]token(nil), array...)})
			continue
		case tokOperator:
		default:
			if depth > 0 {
				array = append(array, tok)
			} else {
				operands = append(operands, tok)
			}
			continue
		}

		switch tok.text {
		case "Tj":
			if str, ok := lastOf(operands, tokString); ok {
				w.write(str.text)
			}
		case "'", "\"":
			w.newline()
			if str, ok := lastOf(operands, tokString); ok {
				w.write(str.text)
			}
		case "TJ":
			if arr, ok := lastOf(operands, tokArray); ok {
				for _, item := range arr.items {
					switch item.kind {
					case tokString:
						w.write(item.text)
					case tokNumber:
						if item.num <= kerningSpace {
							w.space()
						}
					}
				}
			}
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].num != 0 {
				w.newline()
			} else {
				w.space()
			}
		case "T*", "Tm", "ET":
			w.newline()
		case "ID":
			s.skipInlineImage()
		}
		operands = operands[:0]
	}

	return w.String()
}

func lastOf(tokens []token, kind tokenKind) (token, bool) {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].kind == kind {
			return tokens[i], true
		}
	}
	return token{}, false
}

type textWriter struct {
	lines []string
	line  strings.Builder
}

func (w *textWriter) write(s string) {
	w.line.WriteString(s)
}

func (w *textWriter) space() {
	if w.line.Len() > 0 {
		w.line.WriteByte(' ')
	}
}

func (w *textWriter) newline() {
	if line := strings.Join(strings.Fields(w.line.String()), " "); line != "" {
		w.lines = append(w.lines, line)
	}
	w.line.Reset()
}

func (w *textWriter) String() string {
	w.newline()
	if len(w.lines) == 0 {
		return ""
	}
	return strings.Join(w.lines, "\n") + "\n"
}

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokNumber
	tokString
	tokName
	tokArrayOpen
	tokArrayClose
	tokArray
	tokDict
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	items []token
}

type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) next() (token, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return token{}, false
	}

	c := s.data[s.pos]
	switch {
	case c == '(':
		s.pos++
		return token{kind: tokString, text: decodeString(s.literal())}, true
	case c == '<' && s.peek(1) == '<':
		s.pos += 2
		return token{kind: tokDict}, true
	case c == '>' && s.peek(1) == '>':
		s.pos += 2
		return token{kind: tokDict}, true
	case c == '<':
		s.pos++
		return token{kind: tokString, text: decodeString(s.hexString())}, true
	case c == '[':
		s.pos++
		return token{kind: tokArrayOpen}, true
	case c == ']':
		s.pos++
		return token{kind: tokArrayClose}, true
	case c == '/':
		s.pos++
		return token{kind: tokName, text: s.word()}, true
	case c == '{' || c == '}' || c == ')' || c == '>':
		s.pos++
		return s.next()
	}

	w := s.word()
	if n, err := strconv.ParseFloat(w, 64); err == nil {
		return token{kind: tokNumber, text: w, num: n}, true
	}
	return token{kind: tokOperator, text: w}, true
}

func (s *scanner) peek(offset int) byte {
	if s.pos+offset < len(s.data) {
		return s.data[s.pos+offset]
	}
	return 0
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *scanner) word() string {
	start := s.pos
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelimiter(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *scanner) literal() []byte {
	var out []byte
	depth := 1

	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++

		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			out = s.escape(out)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (s *scanner) escape(out []byte) []byte {
	if s.pos >= len(s.data) {
		return out
	}

	c := s.data[s.pos]
	s.pos++

	switch c {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '\r':
		if s.peek(0) == '\n' {
			s.pos++
		}
		return out
	case '\n':
		return out
	}

	if c >= '0' && c <= '7' {
		v := int(c - '0')
		for i := 0; i < 2 && s.pos < len(s.data); i++ {
			d := s.data[s.pos]
			if d < '0' || d > '7' {
				break
			}
			v = v*8 + int(d-'0')
			s.pos++
		}
		return append(out, byte(v))
	}

	return append(out, c)
}

func (s *scanner) hexString() []byte {
	end := bytes.IndexByte(s.data[s.pos:], '>')
	if end < 0 {
		end = len(s.data) - s.pos
	}

	raw := make([]byte, 0, end)
	for _, c := range s.data[s.pos : s.pos+end] {
		if !isSpace(c) {
			raw = append(raw, c)
		}
	}
	s.pos += end + 1

	if len(raw)%2 == 1 {
		raw = append(raw, '0')
	}
	out, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil
	}
	return out
}

// skipInlineImage advances past inline image data to its EI operator.
func (s *scanner) skipInlineImage() {
	for s.pos+2 < len(s.data) {
		if isSpace(s.data[s.pos]) && s.data[s.pos+1] == 'E' && s.data[s.pos+2] == 'I' &&
			(s.pos+3 == len(s.data) || isSpace(s.data[s.pos+3])) {
			s.pos += 3
			return
		}
		s.pos++
	}
	s.pos = len(s.data)
}

func decodeString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return printable(string(utf16.Decode(units)))
	}

	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return printable(string(runes))
}

func printable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
