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

package types

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mechiko/pdfdoc/pkg/filter"
	"github.com/mechiko/pdfdoc/pkg/log"
	"github.com/pkg/errors"
)

// Filter names one stage of a stream's filter pipeline plus its
// optional decode parameters, as found in a /Filter + /DecodeParms pair.
type Filter struct {
	Name        string
	DecodeParms Dict
}

// StreamDict represents a PDF stream object: a Dict describing the
// stream plus its raw (encoded) and, once decoded, plain bytes.
type StreamDict struct {
	Dict
	StreamOffset      int64
	StreamLength      *int64
	StreamLengthObjNr *int
	FilterPipeline    []Filter
	Raw               []byte // as it appears between "stream" and "endstream"
	Content           []byte // after the filter pipeline has been applied
	IsPageContent     bool
	CSComponents      int // color space component count, relevant to DCTDecode
}

// NewStreamDict creates a new StreamDict for the given dict, stream
// offset and length.
func NewStreamDict(d Dict, streamOffset int64, streamLength *int64, streamLengthObjNr *int, filterPipeline []Filter) StreamDict {
	return StreamDict{
		Dict:              d,
		StreamOffset:      streamOffset,
		StreamLength:      streamLength,
		StreamLengthObjNr: streamLengthObjNr,
		FilterPipeline:    filterPipeline,
	}
}

// Clone returns a deep copy of sd.
func (sd StreamDict) Clone() Object {
	sd1 := sd
	sd1.Dict = sd.Dict.Clone().(Dict)
	pl := make([]Filter, len(sd.FilterPipeline))
	for k, v := range sd.FilterPipeline {
		f := Filter{Name: v.Name}
		if v.DecodeParms.entries != nil {
			f.DecodeParms = v.DecodeParms.Clone().(Dict)
		}
		pl[k] = f
	}
	sd1.FilterPipeline = pl
	return sd1
}

// HasSoleFilterNamed reports whether sd has exactly one filter, named filterName.
func (sd StreamDict) HasSoleFilterNamed(filterName string) bool {
	return len(sd.FilterPipeline) == 1 && sd.FilterPipeline[0].Name == filterName
}

// Image reports whether sd is an image XObject.
func (sd StreamDict) Image() bool {
	s := sd.Type()
	if s == nil || *s != "XObject" {
		return false
	}
	s = sd.Subtype()
	return s != nil && *s == "Image"
}

func parmsForFilter(d Dict) map[string]int {
	m := map[string]int{}
	if d.entries == nil {
		return m
	}
	for _, e := range d.items() {
		switch v := e.Value.(type) {
		case Integer:
			m[e.Key] = v.Value()
		case Boolean:
			if v.Value() {
				m[e.Key] = 1
			} else {
				m[e.Key] = 0
			}
		}
	}
	return m
}

// Encode applies sd's filter pipeline to sd.Content to produce sd.Raw,
// updating the dict's /Length entry to the encoded size.
func (sd *StreamDict) Encode() error {
	if sd.Content == nil && sd.Raw != nil {
		return nil
	}

	if sd.FilterPipeline == nil {
		log.Trace.Println("Encode: returning uncompressed stream.")
		sd.Raw = sd.Content
		n := int64(len(sd.Raw))
		sd.StreamLength = &n
		sd.Update("Length", Integer(n))
		return nil
	}

	var b, c io.Reader
	b = bytes.NewReader(sd.Content)

	for i := len(sd.FilterPipeline) - 1; i >= 0; i-- {
		f := sd.FilterPipeline[i]
		parms := parmsForFilter(f.DecodeParms)

		fi, err := filter.NewFilter(f.Name, parms)
		if err != nil {
			return err
		}

		c, err = fi.Encode(b)
		if err != nil {
			return errors.Wrapf(err, "Encode: filter %s", f.Name)
		}
		b = c
	}

	raw, err := io.ReadAll(c)
	if err != nil {
		return err
	}
	sd.Raw = raw

	n := int64(len(sd.Raw))
	sd.StreamLength = &n
	sd.Update("Length", Integer(n))

	return nil
}

func fixParms(f Filter, parms map[string]int, sd *StreamDict) error {
	if f.Name == filter.CCITTFax {
		if _, ok := parms["Rows"]; !ok {
			h := sd.IntEntry("Height")
			if h == nil {
				return errors.New("pdfdoc: CCITTFaxDecode: \"Height\" required")
			}
			parms["Rows"] = *h
		}
	}
	return nil
}

// Decode applies sd's filter pipeline to sd.Raw to produce sd.Content.
func (sd *StreamDict) Decode() error {
	_, err := sd.DecodeLength(-1)
	return err
}

func (sd *StreamDict) decodeLength(maxLen int64) ([]byte, error) {
	var b, c io.Reader
	b = bytes.NewReader(sd.Raw)
	c = b // an empty filter pipeline decodes to the raw bytes unchanged

	for idx, f := range sd.FilterPipeline {

		if f.Name == filter.JPX {
			break
		}
		if f.Name == filter.DCT && sd.CSComponents != 4 {
			break
		}

		parms := parmsForFilter(f.DecodeParms)
		if err := fixParms(f, parms, sd); err != nil {
			return nil, err
		}

		fi, err := filter.NewFilter(f.Name, parms)
		if err != nil {
			return nil, err
		}

		if maxLen >= 0 && idx == len(sd.FilterPipeline)-1 {
			if ll, ok := fi.(filter.LengthLimitedFilter); ok {
				c, err = ll.DecodeLength(b, maxLen)
			} else {
				c, err = fi.Decode(b)
			}
		} else {
			c, err = fi.Decode(b)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Decode: filter %s", f.Name)
		}

		b = c
	}

	data, err := io.ReadAll(c)
	if err != nil {
		return nil, err
	}

	if maxLen < 0 {
		sd.Content = data
		return data, nil
	}
	if int64(len(data)) > maxLen {
		data = data[:maxLen]
	}
	return data, nil
}

// DecodeLength decodes at most maxLen bytes of content, or the entire
// stream when maxLen < 0. A fully decoded stream is cached in sd.Content.
func (sd *StreamDict) DecodeLength(maxLen int64) ([]byte, error) {
	if sd.Content != nil {
		if maxLen < 0 || int64(len(sd.Content)) <= maxLen {
			return sd.Content, nil
		}
		return sd.Content[:maxLen], nil
	}

	fpl := sd.FilterPipeline

	if fpl == nil || (len(fpl) == 1 && ((fpl[0].Name == filter.DCT && sd.CSComponents != 4) || fpl[0].Name == filter.JPX)) {
		sd.Content = sd.Raw
		if maxLen < 0 || int64(len(sd.Content)) <= maxLen {
			return sd.Content, nil
		}
		return sd.Content[:maxLen], nil
	}

	return sd.decodeLength(maxLen)
}

// ObjectStreamDict represents a /Type /ObjStm compact object container
// (PDF 1.5+): a stream whose decoded content packs several indirect
// objects back to back, indexed by a small integer prolog.
type ObjectStreamDict struct {
	StreamDict
	Prolog         []byte
	ObjCount       int
	FirstObjOffset int
	ObjArray       Array
}

// NewObjectStreamDict creates an empty object stream, Flate-compressed
// by default.
func NewObjectStreamDict() *ObjectStreamDict {
	sd := StreamDict{Dict: NewDict()}
	sd.Insert("Type", Name("ObjStm"))
	sd.Insert("Filter", Name(filter.Flate))
	sd.FilterPipeline = []Filter{{Name: filter.Flate}}
	return &ObjectStreamDict{StreamDict: sd}
}

// IndexedObject returns the object at given index of a decoded object stream.
func (osd *ObjectStreamDict) IndexedObject(index int) (Object, error) {
	if osd.ObjArray == nil {
		return nil, errors.Errorf("IndexedObject(%d): object not available", index)
	}
	if index < 0 || index >= len(osd.ObjArray) {
		return nil, errors.Errorf("IndexedObject(%d): index out of range", index)
	}
	return osd.ObjArray[index], nil
}

// AddObject appends another indirect object's PDF-string rendering to
// this object stream. Relies on osd.Content already being the decoded
// (uncompressed) accumulator, finalized later by Finalize.
func (osd *ObjectStreamDict) AddObject(objNumber int, pdfString string) error {
	offset := len(osd.Content)
	s := ""
	if osd.ObjCount > 0 {
		s = " "
	}
	s += fmt.Sprintf("%d %d", objNumber, offset)
	osd.Prolog = append(osd.Prolog, []byte(s)...)
	osd.Content = append(osd.Content, []byte(pdfString)...)
	osd.ObjCount++
	log.Trace.Printf("AddObject: ObjCount:%d prolog=<%s> content=<%s>\n", osd.ObjCount, osd.Prolog, osd.Content)
	return nil
}

// Finalize prepends the accumulated prolog to the object data and
// records /First, readying the stream to be encoded and written.
func (osd *ObjectStreamDict) Finalize() {
	osd.Content = append(osd.Prolog, osd.Content...)
	osd.FirstObjOffset = len(osd.Prolog)
	osd.Insert("N", Integer(osd.ObjCount))
	osd.Insert("First", Integer(osd.FirstObjOffset))
	log.Trace.Printf("Finalize: firstObjOffset:%d content=<%s>\n", osd.FirstObjOffset, osd.Content)
}

// XRefStreamDict represents a /Type /XRef cross-reference stream dictionary.
type XRefStreamDict struct {
	StreamDict
	Size           int
	Objects        []int
	W              [3]int
	PreviousOffset *int64
}
