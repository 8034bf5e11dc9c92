/*
Copyright 2018 The pdfcpu Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pdfdoc

import (
	"io"
)

// scanner turns a byte stream into the PDF lexical tokens of spec.md's
// table 4.3, grounded on the recognizer decomposition of
// read/parse.go (trimLeftSpace, hexString, delimiter) but re-expressed
// as a byte-stream peek/consume state machine instead of that file's
// string-slice scanning, so it can run over an arbitrarily large
// buffered reader without loading the input whole.
type scanner struct {
	b        *buffer
	pushback []token
}

func newScanner(b *buffer) *scanner {
	return &scanner{b: b}
}

func isWhitespace(c byte) bool {
	switch c {
	case 0x00, '\t', '\n', '\f', '\r', ' ':
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

// pushBack returns t to the front of the stream; up to pushBackDepth
// tokens may be pending at once.
func (s *scanner) pushBack(t token) error {
	if len(s.pushback) >= pushBackDepth {
		return newErr(ParseError, "push-back stack exhausted")
	}
	s.pushback = append(s.pushback, t)
	return nil
}

// next returns the next token, skipping whitespace and % comments.
func (s *scanner) next() (token, error) {
	if n := len(s.pushback); n > 0 {
		t := s.pushback[n-1]
		s.pushback = s.pushback[:n-1]
		return t, nil
	}

	if err := s.skipWhitespaceAndComments(); err != nil {
		if err == io.EOF {
			return token{kind: tokEOF}, nil
		}
		return token{}, err
	}

	c, err := s.peekByte()
	if err != nil {
		if err == io.EOF {
			return token{kind: tokEOF}, nil
		}
		return token{}, err
	}

	switch {
	case c == '/':
		return s.scanName()
	case c == '(':
		return s.scanLiteralString()
	case c == '<':
		return s.scanAngleBracket()
	case c == '>':
		return s.scanCloseAngle()
	case c == '[':
		s.b.ReadByte()
		return token{kind: tokArrayOpen, text: "["}, nil
	case c == ']':
		s.b.ReadByte()
		return token{kind: tokArrayClose, text: "]"}, nil
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return s.scanNumber()
	default:
		return s.scanKeyword()
	}
}

func (s *scanner) peekByte() (byte, error) {
	bb, err := s.b.Peek(1)
	if err != nil {
		return 0, err
	}
	if len(bb) == 0 {
		return 0, io.EOF
	}
	return bb[0], nil
}

func (s *scanner) skipWhitespaceAndComments() error {
	for {
		c, err := s.peekByte()
		if err != nil {
			return err
		}
		if isWhitespace(c) {
			s.b.ReadByte()
			continue
		}
		if c == '%' {
			for {
				c, err := s.peekByte()
				if err != nil {
					return err
				}
				s.b.ReadByte()
				if c == '\n' || c == '\r' {
					break
				}
			}
			continue
		}
		return nil
	}
}

func (s *scanner) scanAngleBracket() (token, error) {
	s.b.ReadByte() // consume first '<'
	c, err := s.peekByte()
	if err == nil && c == '<' {
		s.b.ReadByte()
		return token{kind: tokDictOpen, text: "<<"}, nil
	}
	return s.scanHexStringBody()
}

func (s *scanner) scanCloseAngle() (token, error) {
	s.b.ReadByte() // consume first '>'
	c, err := s.peekByte()
	if err == nil && c == '>' {
		s.b.ReadByte()
		return token{kind: tokDictClose, text: ">>"}, nil
	}
	return token{}, newErr(ParseError, "lone '>' outside a hex string or dict close")
}

func (s *scanner) scanHexStringBody() (token, error) {
	var buf []byte
	for {
		c, err := s.peekByte()
		if err != nil {
			return token{}, wrapErr(ParseError, err, "unterminated hex string")
		}
		s.b.ReadByte()
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		if len(buf) >= maxTokenLen {
			return token{}, newErr(ParseError, "hex string token exceeds 255 bytes")
		}
		buf = append(buf, c)
	}
	return token{kind: tokHexString, text: string(buf)}, nil
}

func (s *scanner) scanLiteralString() (token, error) {
	s.b.ReadByte() // consume '('
	var buf []byte
	depth := 1
	for depth > 0 {
		c, err := s.peekByte()
		if err != nil {
			return token{}, wrapErr(ParseError, err, "unterminated literal string")
		}
		s.b.ReadByte()

		switch c {
		case '(':
			depth++
			buf = append(buf, c)
		case ')':
			depth--
			if depth == 0 {
				continue
			}
			buf = append(buf, c)
		case '\\':
			nc, err := s.peekByte()
			if err != nil {
				return token{}, wrapErr(ParseError, err, "unterminated escape in literal string")
			}
			s.b.ReadByte()
			buf = append(buf, '\\', nc)
		default:
			buf = append(buf, c)
		}

		if len(buf) > maxTokenLen {
			return token{}, newErr(ParseError, "literal string token exceeds 255 bytes")
		}
	}
	return token{kind: tokLiteralString, text: string(buf)}, nil
}

func regularNameChar(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}

func (s *scanner) scanName() (token, error) {
	s.b.ReadByte() // consume '/'
	var buf []byte
	for {
		c, err := s.peekByte()
		if err != nil {
			break
		}
		if !regularNameChar(c) {
			break
		}
		s.b.ReadByte()
		buf = append(buf, c)
		if len(buf) > maxTokenLen {
			return token{}, newErr(ParseError, "name token exceeds 255 bytes")
		}
	}
	return token{kind: tokName, text: string(buf)}, nil
}

func (s *scanner) scanNumber() (token, error) {
	var buf []byte
	for {
		c, err := s.peekByte()
		if err != nil {
			break
		}
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			s.b.ReadByte()
			buf = append(buf, c)
			if len(buf) > maxTokenLen {
				return token{}, newErr(ParseError, "number token exceeds 255 bytes")
			}
			continue
		}
		break
	}
	return token{kind: tokNumber, text: string(buf)}, nil
}

func (s *scanner) scanKeyword() (token, error) {
	var buf []byte
	for {
		c, err := s.peekByte()
		if err != nil {
			break
		}
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		s.b.ReadByte()
		buf = append(buf, c)
		if len(buf) > maxTokenLen {
			return token{}, newErr(ParseError, "keyword token exceeds 255 bytes")
		}
	}
	if len(buf) == 0 {
		// An unrecognized delimiter byte (e.g. stray '{', '}') on its own.
		c, err := s.peekByte()
		if err != nil {
			return token{}, wrapErr(ParseError, err, "unexpected end of input")
		}
		s.b.ReadByte()
		buf = append(buf, c)
	}

	text := string(buf)
	switch text {
	case "true", "false":
		return token{kind: tokBoolean, text: text}, nil
	case "null":
		return token{kind: tokNull, text: text}, nil
	default:
		return token{kind: tokKeyword, text: text}, nil
	}
}
