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
	"strconv"
	"strings"

	"github.com/mechiko/pdfdoc/pkg/types"
)

// maxParseDepth bounds both the value reader's recursion (§4.5) and the
// xref engine's /Prev chain walk (§4.7); the two share one constant
// because both are instances of the same "don't trust a hostile or
// truncated file to terminate on its own" rule.
const maxParseDepth = 32

// valueReader assembles scanner tokens into types.Object values, the
// restructured counterpart of read/parse.go's parseObject dispatch -
// same per-type recognizers, now driven by the scanner's token stream
// instead of direct byte-slice inspection.
type valueReader struct {
	s   *scanner
	buf *buffer // shared with s, needed to locate stream bodies by offset
}

func newValueReader(b *buffer) *valueReader {
	return &valueReader{s: newScanner(b), buf: b}
}

// parseObject reads one complete value starting at the scanner's
// current position. depth counts enclosing arrays/dicts and is checked
// against maxParseDepth.
func (r *valueReader) parseObject(depth int) (types.Object, error) {
	if depth > maxParseDepth {
		return nil, ErrMaxParseDepth
	}

	t, err := r.s.next()
	if err != nil {
		return nil, err
	}
	return r.parseFromToken(t, depth)
}

func (r *valueReader) parseFromToken(t token, depth int) (types.Object, error) {
	switch t.kind {
	case tokEOF:
		return nil, wrapErr(ParseError, errEOF, "unexpected end of input while reading a value")
	case tokBoolean:
		return types.Boolean(t.text == "true"), nil
	case tokNull:
		return nil, nil
	case tokNumber:
		return parseNumberOrRef(r.s, t, depth)
	case tokName:
		name, err := types.DecodeName(t.text)
		if err != nil {
			return nil, wrapErr(ParseError, err, "decoding name object")
		}
		return types.Name(name), nil
	case tokLiteralString:
		return types.StringLiteral(t.text), nil
	case tokHexString:
		s := t.text
		if len(s)%2 == 1 {
			s += "0"
		}
		return types.HexLiteral(strings.ToUpper(s)), nil
	case tokArrayOpen:
		return r.parseArray(depth + 1)
	case tokDictOpen:
		return r.parseDictOrStream(depth + 1)
	default:
		return nil, newErr(ParseError, "unexpected token while reading a value")
	}
}

// parseNumberOrRef disambiguates a bare integer from the first two
// components of an "n g R" indirect reference by looking ahead up to
// two tokens, pushing back whatever doesn't fit.
func parseNumberOrRef(s *scanner, first token, depth int) (types.Object, error) {
	if depth > maxParseDepth {
		return nil, ErrMaxParseDepth
	}

	num, isInt, err := parseNumberToken(first.text)
	if err != nil {
		return nil, err
	}
	if !isInt {
		return types.Float(num), nil
	}

	second, err := s.next()
	if err != nil {
		return nil, err
	}
	if second.kind != tokNumber {
		if err := s.pushBack(second); err != nil {
			return nil, err
		}
		return types.Integer(int(num)), nil
	}
	gen, isGenInt, err := parseNumberToken(second.text)
	if err != nil || !isGenInt {
		if err := s.pushBack(second); err != nil {
			return nil, err
		}
		return types.Integer(int(num)), nil
	}

	third, err := s.next()
	if err != nil {
		return nil, err
	}
	if third.kind == tokKeyword && third.text == "R" {
		return types.IndirectRef{ObjectNumber: types.Integer(int(num)), GenerationNumber: types.Integer(int(gen))}, nil
	}

	if err := s.pushBack(third); err != nil {
		return nil, err
	}
	if err := s.pushBack(second); err != nil {
		return nil, err
	}
	return types.Integer(int(num)), nil
}

func parseNumberToken(s string) (value float64, isInt bool, err error) {
	if i, err := strconv.Atoi(s); err == nil {
		return float64(i), true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, wrapErr(ParseError, err, "malformed number "+strconv.Quote(s))
	}
	return f, false, nil
}

func (r *valueReader) parseArray(depth int) (types.Object, error) {
	if depth > maxParseDepth {
		return nil, ErrMaxParseDepth
	}
	arr := types.Array{}
	for {
		t, err := r.s.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokArrayClose {
			return arr, nil
		}
		if t.kind == tokEOF {
			return nil, newErr(ParseError, "unterminated array")
		}
		v, err := r.parseFromToken(t, depth)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

func (r *valueReader) parseDictOrStream(depth int) (types.Object, error) {
	if depth > maxParseDepth {
		return nil, ErrMaxParseDepth
	}
	d := types.NewDict()
	for {
		kt, err := r.s.next()
		if err != nil {
			return nil, err
		}
		if kt.kind == tokDictClose {
			break
		}
		if kt.kind != tokName {
			return nil, newErr(ParseError, "expected a name key in dict")
		}
		key, err := types.DecodeName(kt.text)
		if err != nil {
			return nil, wrapErr(ParseError, err, "decoding dict key")
		}
		val, err := r.parseObject(depth)
		if err != nil {
			return nil, err
		}
		d.Insert(key, val)
	}

	// A dict immediately followed by the "stream" keyword is promoted
	// to a stream object header; its body is located by byte offset,
	// not tokenized (§4.3's "the tokenizer does not interpret stream
	// bodies").
	t, err := r.s.next()
	if err != nil {
		return nil, err
	}
	if t.kind != tokKeyword || t.text != "stream" {
		if t.kind != tokEOF {
			if err := r.s.pushBack(t); err != nil {
				return nil, err
			}
		}
		return d, nil
	}

	return r.readStreamHeader(d)
}

// readStreamHeader consumes the EOL after "stream", records the
// body's starting offset and builds the filter pipeline from /Filter
// and /DecodeParms; the body itself is read later by readStreamRaw
// (xref.go) once /Length has been resolved (it may be an indirect
// reference not yet available while still inside the outer object).
func (r *valueReader) readStreamHeader(d types.Dict) (types.Object, error) {
	c, err := r.buf.ReadByte()
	if err != nil {
		return nil, wrapErr(ParseError, err, "reading stream keyword terminator")
	}
	if c == '\r' {
		c, err = r.buf.ReadByte()
		if err != nil {
			return nil, wrapErr(ParseError, err, "reading stream keyword terminator")
		}
	}
	if c != '\n' {
		return nil, newErr(ParseError, "\"stream\" keyword must be followed by CRLF or LF")
	}

	offset := r.buf.Tell()

	var length *int64
	var lengthObjNr *int
	length, lengthObjNr = d.Length()

	var pipeline []types.Filter
	f, _ := d.Find("Filter")
	names, _ := f.(types.Array)
	if n, ok := f.(types.Name); ok {
		names = types.Array{n}
	}
	parms, _ := d.DictEntry("DecodeParms")
	for _, n := range names {
		pipeline = append(pipeline, types.Filter{Name: n.String(), DecodeParms: parms})
	}

	sd := types.NewStreamDict(d, offset, length, lengthObjNr, pipeline)
	return sd, nil
}

var errEOF = newErr(IoError, "end of file")
