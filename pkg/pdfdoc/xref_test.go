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

func TestXRefTableAllocateReusesFreedSlots(t *testing.T) {
	xt := newXRefTable()
	a := xt.allocate()
	b := xt.allocate()
	if a == 0 || b == 0 || a == b {
		t.Fatalf("allocate returned a=%d b=%d", a, b)
	}
	xt.entries[a] = nil
	c := xt.allocate()
	if c != a {
		t.Errorf("allocate() = %d, want reused slot %d", c, a)
	}
}

func TestXRefTableGrowsInSteps(t *testing.T) {
	xt := newXRefTable()
	xt.ensureCapacity(xrefTableGrowStep + 5)
	if len(xt.entries) != 2*xrefTableGrowStep {
		t.Errorf("len(entries) = %d, want %d", len(xt.entries), 2*xrefTableGrowStep)
	}
}

func TestXRefTableGetOrLoadCachesResult(t *testing.T) {
	xt := newXRefTable()
	n := xt.allocate()
	calls := 0
	load := func(e *xrefEntry) (types.Object, error) {
		calls++
		return types.Integer(7), nil
	}
	v1, err := xt.getOrLoad(n, load)
	if err != nil {
		t.Fatalf("getOrLoad: %v", err)
	}
	v2, err := xt.getOrLoad(n, load)
	if err != nil {
		t.Fatalf("getOrLoad (cached): %v", err)
	}
	if v1 != v2 || calls != 1 {
		t.Errorf("load called %d times, want 1 (v1=%v v2=%v)", calls, v1, v2)
	}
}

func TestXRefTableGetOrLoadMissingIsNotFound(t *testing.T) {
	xt := newXRefTable()
	_, err := xt.getOrLoad(99, func(e *xrefEntry) (types.Object, error) { return nil, nil })
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestXRefTableMappedObjects(t *testing.T) {
	xt := newXRefTable()
	xt.registerMapped("doc-a", 5, 12)
	if n, ok := xt.lookupMapped("doc-a", 5); !ok || n != 12 {
		t.Errorf("lookupMapped = (%d, %v), want (12, true)", n, ok)
	}
	if _, ok := xt.lookupMapped("doc-b", 5); ok {
		t.Error("lookupMapped for an unregistered source should miss")
	}
}

// buildClassicFile assembles a minimal one-object classic xref PDF body
// for exercising the reader; offsets are computed, not hard-coded.
func buildClassicFile(t *testing.T) string {
	t.Helper()
	header := "%PDF-1.7\n"
	obj := "1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	xrefOffset := int64(len(header) + len(obj))
	xref := "xref\n0 2\n0000000000 65535 f \n"
	objOffset := len(header)
	xref += padXRefLine(int64(objOffset)) + "\n"
	trailer := "trailer\n<< /Size 2 /Root 1 0 R >>\nstartxref\n"
	return header + obj + xref + trailer + itoa(xrefOffset) + "\n%%EOF\n"
}

func padXRefLine(offset int64) string {
	s := itoa(offset)
	for len(s) < 10 {
		s = "0" + s
	}
	return s + " 00000 n "
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

func TestReadClassicXRefTable(t *testing.T) {
	body := buildClassicFile(t)
	b := newReadBuffer(strings.NewReader(body))
	xt, err := readXRefTable(b, int64(len(body)))
	if err != nil {
		t.Fatalf("readXRefTable: %v", err)
	}
	e, ok := xt.find(1)
	if !ok || e.Kind != xrefInUse {
		t.Fatalf("entry 1 = %+v, ok=%v", e, ok)
	}
	if ref := xt.Trailer.IndirectRefEntry("Root"); ref == nil || ref.ObjectNumber.Value() != 1 {
		t.Errorf("trailer /Root = %v", ref)
	}
}

func TestReadXRefTableRecoversFromMissingStartxref(t *testing.T) {
	// No "startxref" at all - forces the one-shot recovery scan.
	body := "%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	b := newReadBuffer(strings.NewReader(body))
	xt, err := readXRefTable(b, int64(len(body)))
	if err != nil {
		t.Fatalf("readXRefTable (recovery): %v", err)
	}
	e, ok := xt.find(1)
	if !ok || e.Kind != xrefInUse {
		t.Fatalf("recovered entry 1 = %+v, ok=%v", e, ok)
	}
}

func TestReadXRefTableRecoveryFailsOnEmptyFile(t *testing.T) {
	body := "%PDF-1.7\n"
	b := newReadBuffer(strings.NewReader(body))
	if _, err := readXRefTable(b, int64(len(body))); err == nil {
		t.Error("expected an error recovering from a file with no objects")
	}
}

func TestWriteClassicXRefRoundTrip(t *testing.T) {
	xt := newXRefTable()
	rootNr := xt.allocate()
	xt.entries[rootNr].Object = types.NewDict()

	var out bytes.Buffer
	wb := newWriteBuffer(&out)
	root := types.NewIndirectRef(rootNr, 0)
	offsets := map[int]int64{rootNr: 9}

	if err := writeClassicXRef(wb, xt, offsets, root, nil, nil); err != nil {
		t.Fatalf("writeClassicXRef: %v", err)
	}
	wb.Close()

	s := out.String()
	if !strings.Contains(s, "xref\n") || !strings.Contains(s, "trailer\n") || !strings.Contains(s, "startxref\n") {
		t.Fatalf("missing section keywords in %q", s)
	}
	if !strings.Contains(s, "/Root 1 0 R") {
		t.Errorf("trailer missing /Root reference: %q", s)
	}
}

func TestNewFileIDIsSixteenBytes(t *testing.T) {
	id, err := newFileID()
	if err != nil {
		t.Fatalf("newFileID: %v", err)
	}
	if len(id) != 16 {
		t.Errorf("len(id) = %d, want 16", len(id))
	}
}
