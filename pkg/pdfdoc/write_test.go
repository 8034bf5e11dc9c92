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
	"strings"
	"testing"

	"github.com/mechiko/pdfdoc/pkg/types"
)

func TestWriteIndirectObjectRoundTrips(t *testing.T) {
	var out bytes.Buffer
	wb := newWriteBuffer(&out)
	vw := newValueWriter(wb)

	d := types.NewDict()
	d.InsertName("Type", "Catalog")

	offset, err := vw.writeIndirectObject(3, 0, d)
	if err != nil {
		t.Fatalf("writeIndirectObject: %v", err)
	}
	if offset != 0 {
		t.Errorf("offset = %d, want 0", offset)
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	vr := newValueReader(newReadBuffer(strings.NewReader(out.String())))
	if tok, err := vr.s.next(); err != nil || tok.kind != tokNumber || tok.text != "3" {
		t.Fatalf("object number token = %+v, err %v", tok, err)
	}
	if tok, err := vr.s.next(); err != nil || tok.kind != tokNumber || tok.text != "0" {
		t.Fatalf("generation token = %+v, err %v", tok, err)
	}
	if tok, err := vr.s.next(); err != nil || tok.kind != tokKeyword || tok.text != "obj" {
		t.Fatalf("obj keyword token = %+v, err %v", tok, err)
	}
	obj, err := vr.parseObject(0)
	if err != nil {
		t.Fatalf("parseObject: %v", err)
	}
	got, ok := obj.(types.Dict)
	if !ok {
		t.Fatalf("got %#v, want Dict", obj)
	}
	if nm := got.NameEntry("Type"); nm == nil || *nm != "Catalog" {
		t.Errorf("Type = %v", nm)
	}
}

func TestWriteNullObject(t *testing.T) {
	var out bytes.Buffer
	wb := newWriteBuffer(&out)
	vw := newValueWriter(wb)
	if _, err := vw.writeIndirectObject(1, 0, nil); err != nil {
		t.Fatalf("writeIndirectObject: %v", err)
	}
	wb.Close()
	if !strings.Contains(out.String(), "null") {
		t.Errorf("output %q should contain \"null\"", out.String())
	}
}

func TestWriteStreamBodyFraming(t *testing.T) {
	var out bytes.Buffer
	wb := newWriteBuffer(&out)
	vw := newValueWriter(wb)

	d := types.NewDict()
	sd := types.NewStreamDict(d, 0, nil, nil, nil)
	sd.Raw = []byte("raw-bytes")
	sd.Update("Length", types.Integer(len(sd.Raw)))

	if _, err := vw.writeIndirectObject(5, 0, sd); err != nil {
		t.Fatalf("writeIndirectObject: %v", err)
	}
	wb.Close()

	s := out.String()
	if !strings.Contains(s, "stream\nraw-bytes\nendstream") {
		t.Errorf("output %q missing stream framing", s)
	}
}
