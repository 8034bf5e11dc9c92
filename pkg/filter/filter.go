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

// Package filter implements the stream filter pipeline: the encode/decode
// pairs a PDF stream's /Filter entry can name.
package filter

// See ISO 32000-1 "7.4 Filters" for the full list of defined filters.

import (
	"bytes"
	"io"

	"github.com/mechiko/pdfdoc/pkg/log"
	"github.com/pkg/errors"
)

// Names of the filters defined by the PDF spec.
const (
	ASCII85   = "ASCII85Decode"
	ASCIIHex  = "ASCIIHexDecode"
	RunLength = "RunLengthDecode"
	LZW       = "LZWDecode"
	Flate     = "FlateDecode"
	CCITTFax  = "CCITTFaxDecode"
	JBIG2     = "JBIG2Decode"
	DCT       = "DCTDecode"
	JPX       = "JPXDecode"
	Crypt     = "Crypt"
)

// ErrUnsupportedFilter signals an unsupported filter type.
var ErrUnsupportedFilter = errors.New("pdfdoc: filter not supported")

// Filter defines an interface for encoding/decoding a stream's bytes.
type Filter interface {
	Encode(r io.Reader) (io.Reader, error)
	Decode(r io.Reader) (io.Reader, error)
}

// LengthLimitedFilter is implemented by filters that can stop decoding
// once maxLen bytes of output have been produced - used while peeking
// into a stream whose /Length entry is an unresolved indirect reference.
type LengthLimitedFilter interface {
	DecodeLength(r io.Reader, maxLen int64) (io.Reader, error)
}

type baseFilter struct {
	parms map[string]int
}

// NewFilter returns a filter implementation for filterName, configured
// with the given (already-resolved-to-int) decode parameters.
func NewFilter(filterName string, parms map[string]int) (Filter, error) {

	switch filterName {

	case ASCII85:
		return ascii85Decode{baseFilter{parms}}, nil

	case ASCIIHex:
		return asciiHexDecode{baseFilter{parms}}, nil

	case RunLength:
		return runLengthDecode{baseFilter{parms}}, nil

	case LZW:
		return lzwDecode{baseFilter{parms}}, nil

	case Flate:
		return flate{baseFilter{parms}}, nil

	case CCITTFax, JBIG2, DCT, JPX:
		return passThrough{baseFilter{parms}}, nil
	}

	log.Info.Printf("filter not supported: <%s>", filterName)
	return nil, ErrUnsupportedFilter
}

// List returns the names of all filters pdfdoc actively encodes/decodes
// (as opposed to passing through unexamined).
func List() []string {
	return []string{ASCII85, ASCIIHex, RunLength, LZW, Flate}
}

func readAll(r io.Reader) ([]byte, error) {
	var b bytes.Buffer
	if _, err := io.Copy(&b, r); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// passThrough implements the image-codec filters pdfdoc does not
// decode: DCTDecode, CCITTFaxDecode, JBIG2Decode, JPXDecode. Their raw
// bytes are carried through unchanged; a caller that needs the decoded
// image must hand sd.Content to its own image decoder.
type passThrough struct {
	baseFilter
}

func (f passThrough) Encode(r io.Reader) (io.Reader, error) { return r, nil }

func (f passThrough) Decode(r io.Reader) (io.Reader, error) { return r, nil }
