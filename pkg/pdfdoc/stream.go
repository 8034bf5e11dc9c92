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
	"bytes"
	"io"

	"github.com/mechiko/pdfdoc/pkg/types"
)

// streamMode is the direction a Stream was opened in.
type streamMode int

const (
	streamReading streamMode = iota
	streamWriting
)

// streamState implements spec.md's "Stream: Opened -> (reading |
// writing) -> Closed" state machine; reopen is not supported.
type streamState int

const (
	streamOpen streamState = iota
	streamClosed
)

// Stream is the C9 stream object: an eagerly-decoded byte pipeline over
// one indirect stream dict, grounded on read/read.go's
// LoadEncodedStreamContent/setDecodedStreamContent (decrypt-then-
// filter-decode on the way in) and write/write.go's stream framing
// (encode-then-frame on the way out).
type Stream struct {
	doc   *Document
	objNr int
	genNr int
	dict  *types.StreamDict

	mode  streamMode
	state streamState

	pos int // read cursor into dict.Content
	sc  *scanner

	writeBuf *bytes.Buffer // accumulates Content while streamWriting
}

// openStreamForReading decrypts (if the document is encrypted) and
// filter-decodes sd, returning a Stream positioned at its start.
// Reading the filter pipeline eagerly here is deliberate: spec.md's
// DataError/FilterError for a corrupt stream must surface at Open
// time, not silently on the first Read.
func openStreamForReading(doc *Document, objNr, genNr int, sd *types.StreamDict) (*Stream, error) {
	if doc.openStream != nil {
		return nil, ErrStreamAlreadyOpen
	}

	if doc.security != nil && !isSignatureStreamDict(*sd) {
		raw, err := doc.security.DecryptStream(sd.Raw, objNr, genNr)
		if err != nil {
			return nil, wrapErr(CryptoError, err, "decrypting stream")
		}
		sd.Raw = raw
	}

	if err := sd.Decode(); err != nil {
		return nil, wrapErr(FilterError, err, "decoding stream content")
	}

	s := &Stream{doc: doc, objNr: objNr, genNr: genNr, dict: sd, mode: streamReading, state: streamOpen}
	s.sc = newScanner(newReadBuffer(bytes.NewReader(sd.Content)))
	doc.openStream = s
	return s, nil
}

func isSignatureStreamDict(sd types.StreamDict) bool {
	t := sd.Type()
	return t != nil && (*t == "Sig" || *t == "DocTimeStamp")
}

// createStreamForWriting allocates a fresh object number and returns a
// Stream ready to accumulate content via Write, the C6
// "create-stream-object" operation driving a C9 stream.
func createStreamForWriting(doc *Document, dict types.Dict, filters []types.Filter) (*Stream, error) {
	if doc.openStream != nil {
		return nil, ErrStreamAlreadyOpen
	}
	if doc.state == docSealed {
		return nil, ErrDocumentSealed
	}

	sd := types.NewStreamDict(dict, 0, nil, nil, filters)
	if len(filters) > 0 {
		names := types.Array{}
		for _, f := range filters {
			names = append(names, types.Name(f.Name))
		}
		if len(names) == 1 {
			sd.Insert("Filter", names[0])
		} else {
			sd.Insert("Filter", names)
		}
	}

	objNr := doc.xref.createStreamObject(sd)
	entry := doc.xref.entries[objNr]

	s := &Stream{doc: doc, objNr: objNr, genNr: 0, dict: &sd, mode: streamWriting, state: streamOpen, writeBuf: &bytes.Buffer{}}
	entry.Object = sd
	doc.openStream = s
	return s, nil
}

// Read implements io.Reader over the stream's decoded content.
func (s *Stream) Read(p []byte) (int, error) {
	if s.state == streamClosed {
		return 0, newErr(StateError, "read from a closed stream")
	}
	if s.mode != streamReading {
		return 0, newErr(StateError, "read on a stream opened for writing")
	}
	if s.pos >= len(s.dict.Content) {
		return 0, io.EOF
	}
	n := copy(p, s.dict.Content[s.pos:])
	s.pos += n
	return n, nil
}

// Peek returns the next n bytes of decoded content without advancing.
func (s *Stream) Peek(n int) ([]byte, error) {
	if s.mode != streamReading {
		return nil, newErr(StateError, "peek on a stream opened for writing")
	}
	end := s.pos + n
	if end > len(s.dict.Content) {
		end = len(s.dict.Content)
	}
	return s.dict.Content[s.pos:end], nil
}

// Gets reads one line (through the next '\n') of decoded content.
func (s *Stream) Gets() (string, error) {
	if s.mode != streamReading {
		return "", newErr(StateError, "gets on a stream opened for writing")
	}
	start := s.pos
	for s.pos < len(s.dict.Content) && s.dict.Content[s.pos] != '\n' {
		s.pos++
	}
	if s.pos < len(s.dict.Content) {
		s.pos++ // consume the '\n'
	}
	if start == s.pos {
		return "", io.EOF
	}
	return string(s.dict.Content[start:s.pos]), nil
}

// Token returns the next lexical token of a content stream, reusing
// the C3 scanner over the stream's own decoded bytes - content streams
// (page/form operator streams) are tokenized with exactly the same
// grammar as the object-level file body.
func (s *Stream) Token() (token, error) {
	if s.mode != streamReading {
		return token{}, newErr(StateError, "token on a stream opened for writing")
	}
	return s.sc.next()
}

// Write appends p to the stream being built; only valid while open for
// writing and before Close has run Encode.
func (s *Stream) Write(p []byte) (int, error) {
	if s.state == streamClosed {
		return 0, newErr(StateError, "write to a closed stream")
	}
	if s.mode != streamWriting {
		return 0, newErr(StateError, "write on a stream opened for reading")
	}
	return s.writeBuf.Write(p)
}

// Close finalizes the stream: for a write stream this means encoding
// Content through its filter pipeline, setting /Length and emitting
// the "n g obj ... endobj" framing (or, if the document has no writer
// yet, storing the encoded stream in the object table for
// Document.Close to write out); for a read stream it simply
// releases the document's single-open-stream slot. A stream left open
// when its document is closed is implicitly closed this way too,
// per §5's resource-scope rule.
func (s *Stream) Close() error {
	if s.state == streamClosed {
		return nil
	}
	s.state = streamClosed
	if s.doc.openStream == s {
		s.doc.openStream = nil
	}

	if s.mode == streamReading {
		return nil
	}

	s.dict.Content = s.writeBuf.Bytes()
	if err := s.dict.Encode(); err != nil {
		return wrapErr(FilterError, err, "encoding stream content")
	}

	if s.doc.security != nil && !isSignatureStreamDict(*s.dict) {
		raw, err := s.doc.security.EncryptStream(s.dict.Raw, s.objNr, s.genNr)
		if err != nil {
			return wrapErr(CryptoError, err, "encrypting stream")
		}
		s.dict.Raw = raw
	}

	if s.doc.wb == nil {
		s.doc.xref.entries[s.objNr].Object = *s.dict
		return nil
	}
	return s.doc.writePendingObject(s.objNr, s.genNr, *s.dict)
}

// ObjectNumber returns the (object number, generation) pair identifying
// this stream's indirect object, for building an IndirectRef to it.
func (s *Stream) ObjectNumber() (int, int) { return s.objNr, s.genNr }
