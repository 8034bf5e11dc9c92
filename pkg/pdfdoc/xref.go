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
	"crypto/rand"
	"io"
	"strconv"
	"strings"

	"github.com/mechiko/pdfdoc/pkg/types"
)

// xrefEntryKind is one row of spec.md §3's Indirect Object record's
// "free | offset | compressed" discriminant.
type xrefEntryKind int

const (
	xrefFree xrefEntryKind = iota
	xrefInUse
	xrefCompressed
)

// xrefEntry is one slot of the object table (C6), grounded on
// pkg/pdfcpu/model/xreftable.go's XRefTableEntry.
type xrefEntry struct {
	Kind       xrefEntryKind
	Offset     int64 // byte offset of "n g obj", Kind == xrefInUse
	Generation int

	ObjectStreamNr  int // containing object stream's object number, Kind == xrefCompressed
	ObjectStreamIdx int // index within that object stream

	Object types.Object // cached once loaded; nil until get-or-load runs
	Loaded bool
}

// xrefTableGrowStep is spec.md §4.6's "the table grows in steps of 16
// entries" rule.
const xrefTableGrowStep = 16

// mapKey cross-references an object of a foreign document (identified
// by its file ID) to this document's renumbered copy, per §4.6's
// "register-mapped / lookup" operation used when copying pages across
// documents.
type mapKey struct {
	SourceID string
	ObjNr    int
}

// XRefTable is the object table (C6) plus trailer/header state the
// xref/trailer engine (C7) reads and writes. Index 0 is reserved, the
// way a classic xref table's first entry always describes the free
// list head.
type XRefTable struct {
	entries []*xrefEntry
	mapped  map[mapKey]int

	Trailer types.Dict
	Version string // header version, e.g. "1.7"

	lastXRefOffset int64
}

func newXRefTable() *XRefTable {
	return &XRefTable{
		entries: make([]*xrefEntry, 1, xrefTableGrowStep+1),
		mapped:  make(map[mapKey]int),
		Trailer: types.NewDict(),
	}
}

func (xt *XRefTable) ensureCapacity(objNr int) {
	if objNr < len(xt.entries) {
		return
	}
	newLen := ((objNr / xrefTableGrowStep) + 1) * xrefTableGrowStep
	grown := make([]*xrefEntry, newLen)
	copy(grown, xt.entries)
	xt.entries = grown
}

// allocate reserves the next unused object number for a new indirect
// object, the C6 "allocate" operation.
func (xt *XRefTable) allocate() int {
	for i := 1; i < len(xt.entries); i++ {
		if xt.entries[i] == nil {
			xt.entries[i] = &xrefEntry{Kind: xrefInUse}
			return i
		}
	}
	n := len(xt.entries)
	if n == 0 {
		n = 1
	}
	xt.ensureCapacity(n)
	xt.entries[n] = &xrefEntry{Kind: xrefInUse}
	return n
}

// createStreamObject allocates an object number and installs sd as its
// cached value, the C6 "create-stream-object" operation used by
// Stream.Create (C9).
func (xt *XRefTable) createStreamObject(sd types.StreamDict) int {
	n := xt.allocate()
	xt.entries[n].Object = sd
	xt.entries[n].Loaded = true
	return n
}

// find returns the table entry for objNr, the C6 "find" operation.
func (xt *XRefTable) find(objNr int) (*xrefEntry, bool) {
	if objNr <= 0 || objNr >= len(xt.entries) || xt.entries[objNr] == nil {
		return nil, false
	}
	return xt.entries[objNr], true
}

// getOrLoad returns an object's cached value, invoking load to
// populate the cache on first access - the C6 "get-or-load" operation
// backing lazy object loading (§9's three-state field design note).
func (xt *XRefTable) getOrLoad(objNr int, load func(e *xrefEntry) (types.Object, error)) (types.Object, error) {
	e, ok := xt.find(objNr)
	if !ok {
		return nil, ErrNotFound
	}
	if e.Loaded {
		return e.Object, nil
	}
	obj, err := load(e)
	if err != nil {
		return nil, err
	}
	e.Object = obj
	e.Loaded = true
	return obj, nil
}

// registerMapped records that sourceID's object srcNr was copied into
// this document as object dstNr, the C6 "register-mapped" operation.
func (xt *XRefTable) registerMapped(sourceID string, srcNr, dstNr int) {
	xt.mapped[mapKey{sourceID, srcNr}] = dstNr
}

// lookupMapped is C6's "lookup" counterpart to registerMapped.
func (xt *XRefTable) lookupMapped(sourceID string, srcNr int) (int, bool) {
	n, ok := xt.mapped[mapKey{sourceID, srcNr}]
	return n, ok
}

// size returns the highest allocated object number plus
// one, i.e. the trailer's /Size value.
func (xt *XRefTable) size() int {
	n := 0
	for i, e := range xt.entries {
		if e != nil {
			n = i + 1
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// ---- reading -----------------------------------------------------

// maxPrevChainDepth is spec.md §4.7's "follow /Prev at most 32 times,
// then report a ParseError" rule. It intentionally reuses
// maxParseDepth: both guard against a hostile or corrupt file forcing
// unbounded work.
const maxPrevChainDepth = maxParseDepth

// eofScanWindow is spec.md §4.7's "%%EOF must occur somewhere in the
// last 1024 bytes of the file" rule.
const eofScanWindow = 1024

// readXRefTable reads the full xref/trailer chain starting from the
// tail of the file, falling back once to a brute-force recovery scan
// if the chain cannot be followed - grounded on read/read.go's
// buildXRefTableStartingAt / readXRefTable, restructured onto the
// buffer/scanner primitives instead of a fully-buffered byte slice.
func readXRefTable(b *buffer, size int64) (*XRefTable, error) {
	xt := newXRefTable()

	off, err := offsetOfLastXRefSection(b, size)
	if err != nil {
		return recoverXRefTable(b, size)
	}

	seen := map[int64]bool{}
	depth := 0
	for {
		if depth > maxPrevChainDepth {
			return nil, newErr(ParseError, "xref /Prev chain exceeds maximum depth")
		}
		if seen[off] {
			return nil, newErr(ParseError, "xref /Prev chain contains a cycle")
		}
		seen[off] = true

		trailer, prev, err := parseXRefSectionAt(b, xt, off)
		if err != nil {
			return recoverXRefTable(b, size)
		}
		if depth == 0 {
			xt.Trailer = trailer
		} else {
			for _, k := range trailer.Keys() {
				if _, found := xt.Trailer.Find(k); !found {
					v, _ := trailer.Find(k)
					xt.Trailer.Insert(k, v)
				}
			}
		}
		if prev == nil {
			break
		}
		off = *prev
		depth++
	}

	return xt, nil
}

// offsetOfLastXRefSection locates "startxref\n<offset>\n%%EOF" within
// the last eofScanWindow bytes of the file.
func offsetOfLastXRefSection(b *buffer, size int64) (int64, error) {
	start := size - eofScanWindow
	if start < 0 {
		start = 0
	}
	if _, err := b.Seek(start, 0); err != nil {
		return 0, err
	}
	tail := make([]byte, size-start)
	n, err := readFull(b, tail)
	if err != nil {
		return 0, err
	}
	tail = tail[:n]

	s := string(tail)
	i := strings.LastIndex(s, "startxref")
	if i < 0 {
		return 0, newErr(ParseError, "startxref keyword not found in trailing bytes")
	}
	rest := strings.TrimLeft(s[i+len("startxref"):], "\x00\t\n\f\r ")
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, newErr(ParseError, "startxref not followed by an offset")
	}
	off, err := strconv.ParseInt(rest[:j], 10, 64)
	if err != nil {
		return 0, wrapErr(ParseError, err, "malformed startxref offset")
	}
	return off, nil
}

func readFull(b *buffer, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := b.Read(p[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}

// parseXRefSectionAt parses one xref section (classic table or xref
// stream) at off, merging discovered entries into xt and returning its
// trailer dict and /Prev offset, if any.
func parseXRefSectionAt(b *buffer, xt *XRefTable, off int64) (types.Dict, *int64, error) {
	if _, err := b.Seek(off, 0); err != nil {
		return types.Dict{}, nil, err
	}
	sc := newScanner(b)
	t, err := sc.next()
	if err != nil {
		return types.Dict{}, nil, err
	}
	if t.kind == tokKeyword && t.text == "xref" {
		return parseClassicXRefSection(b, sc, xt)
	}
	// Otherwise this is an xref stream object: "n g obj <<...>> stream".
	if err := sc.pushBack(t); err != nil {
		return types.Dict{}, nil, err
	}
	return parseXRefStreamSection(b, sc, xt, off)
}

func parseClassicXRefSection(b *buffer, sc *scanner, xt *XRefTable) (types.Dict, *int64, error) {
	for {
		t, err := sc.next()
		if err != nil {
			return types.Dict{}, nil, err
		}
		if t.kind == tokKeyword && t.text == "trailer" {
			break
		}
		if t.kind != tokNumber {
			return types.Dict{}, nil, newErr(ParseError, "expected xref subsection header")
		}
		startNr, err := strconv.Atoi(t.text)
		if err != nil {
			return types.Dict{}, nil, wrapErr(ParseError, err, "malformed xref subsection start")
		}
		ct, err := sc.next()
		if err != nil || ct.kind != tokNumber {
			return types.Dict{}, nil, newErr(ParseError, "expected xref subsection count")
		}
		count, err := strconv.Atoi(ct.text)
		if err != nil {
			return types.Dict{}, nil, wrapErr(ParseError, err, "malformed xref subsection count")
		}
		// Entries are read line-by-line below; flush the remainder of
		// the subsection header line first so line boundaries line up
		// (the scanner's token reader stops right after the count
		// digits, mid-line).
		if _, err := b.ReadLine(); err != nil {
			return types.Dict{}, nil, wrapErr(ParseError, err, "reading xref subsection header")
		}
		if err := readClassicEntries(b, xt, startNr, count); err != nil {
			return types.Dict{}, nil, err
		}
	}

	vr := newValueReader(b)
	trailerObj, err := vr.parseObject(0)
	if err != nil {
		return types.Dict{}, nil, err
	}
	trailer, ok := trailerObj.(types.Dict)
	if !ok {
		return types.Dict{}, nil, newErr(ParseError, "trailer is not a dict")
	}
	return trailer, trailer.Int64Entry("Prev"), nil
}

// readClassicEntries reads count consecutive fixed 20-byte classic
// xref table entries starting at object number startNr: "nnnnnnnnnn
// ggggg n\r\n" / "nnnnnnnnnn ggggg f\r\n".
func readClassicEntries(b *buffer, xt *XRefTable, startNr, count int) error {
	for i := 0; i < count; i++ {
		line, err := b.ReadLine()
		if err != nil {
			return wrapErr(ParseError, err, "reading classic xref entry")
		}
		line = strings.TrimRight(line, "\r\n")
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return newErr(ParseError, "malformed classic xref entry")
		}
		objNr := startNr + i
		xt.ensureCapacity(objNr)
		if xt.entries[objNr] != nil {
			continue // an earlier (more recent) section already defined this object
		}
		offset, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return wrapErr(ParseError, err, "malformed xref entry offset")
		}
		gen, err := strconv.Atoi(fields[1])
		if err != nil {
			return wrapErr(ParseError, err, "malformed xref entry generation")
		}
		switch fields[2] {
		case "n":
			xt.entries[objNr] = &xrefEntry{Kind: xrefInUse, Offset: offset, Generation: gen}
		case "f":
			xt.entries[objNr] = &xrefEntry{Kind: xrefFree, Generation: gen}
		default:
			return newErr(ParseError, "malformed xref entry type")
		}
	}
	return nil
}

// parseXRefStreamSection parses a PDF 1.5+ cross-reference stream
// object, decoding its /W-width packed rows into table entries.
func parseXRefStreamSection(b *buffer, sc *scanner, xt *XRefTable, off int64) (types.Dict, *int64, error) {
	if _, err := b.Seek(off, 0); err != nil {
		return types.Dict{}, nil, err
	}
	vr := newValueReader(b)

	if t, err := vr.s.next(); err != nil || t.kind != tokNumber {
		return types.Dict{}, nil, newErr(ParseError, "expected object number")
	}
	if t, err := vr.s.next(); err != nil || t.kind != tokNumber {
		return types.Dict{}, nil, newErr(ParseError, "expected generation number")
	}
	if t, err := vr.s.next(); err != nil || t.kind != tokKeyword || t.text != "obj" {
		return types.Dict{}, nil, newErr(ParseError, "expected \"obj\" keyword")
	}

	obj, err := vr.parseObject(0)
	if err != nil {
		return types.Dict{}, nil, err
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return types.Dict{}, nil, newErr(ParseError, "cross-reference section is not a stream")
	}

	if err := readStreamRaw(b, &sd); err != nil {
		return types.Dict{}, nil, err
	}
	if err := sd.Decode(); err != nil {
		return types.Dict{}, nil, wrapErr(FilterError, err, "decoding cross-reference stream")
	}

	w := sd.W()
	if len(w) != 3 {
		return types.Dict{}, nil, newErr(ParseError, "cross-reference stream missing /W")
	}
	w0, w1, w2 := intOf(w[0]), intOf(w[1]), intOf(w[2])
	rowLen := w0 + w1 + w2

	index := sd.Index()
	var ranges [][2]int
	if len(index) == 0 {
		size := 0
		if s := sd.Size(); s != nil {
			size = *s
		}
		ranges = [][2]int{{0, size}}
	} else {
		for i := 0; i+1 < len(index); i += 2 {
			ranges = append(ranges, [2]int{intOf(index[i]), intOf(index[i+1])})
		}
	}

	data := sd.Content
	pos := 0
	for _, rg := range ranges {
		start, count := rg[0], rg[1]
		for i := 0; i < count; i++ {
			if pos+rowLen > len(data) {
				return types.Dict{}, nil, newErr(ParseError, "truncated cross-reference stream")
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			typ := int64(1)
			if w0 > 0 {
				typ = beInt(row[:w0])
			}
			f2 := beInt(row[w0 : w0+w1])
			f3 := beInt(row[w0+w1 : w0+w1+w2])

			objNr := start + i
			xt.ensureCapacity(objNr)
			if xt.entries[objNr] != nil {
				continue
			}
			switch typ {
			case 0:
				xt.entries[objNr] = &xrefEntry{Kind: xrefFree, Generation: int(f3)}
			case 1:
				xt.entries[objNr] = &xrefEntry{Kind: xrefInUse, Offset: f2, Generation: int(f3)}
			case 2:
				xt.entries[objNr] = &xrefEntry{Kind: xrefCompressed, ObjectStreamNr: int(f2), ObjectStreamIdx: int(f3)}
			}
		}
	}

	return sd.Dict, sd.Int64Entry("Prev"), nil
}

func intOf(o types.Object) int {
	if i, ok := o.(types.Integer); ok {
		return i.Value()
	}
	return 0
}

func beInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// readStreamRaw reads sd.Raw from sd.StreamOffset using sd's already
// (possibly indirectly) resolved length.
func readStreamRaw(b *buffer, sd *types.StreamDict) error {
	length := sd.StreamLength
	if length == nil {
		return newErr(ParseError, "cross-reference stream has no resolvable /Length")
	}
	if _, err := b.Seek(sd.StreamOffset, 0); err != nil {
		return err
	}
	raw := make([]byte, *length)
	if _, err := readFull(b, raw); err != nil {
		return err
	}
	sd.Raw = raw
	return nil
}

// recoverXRefTable rebuilds the object table by scanning the entire
// file for "n g obj" markers, the one-shot recovery path spec.md's
// "Failure semantics" section describes: tried once, permanently
// failing the open if it too comes up empty.
func recoverXRefTable(b *buffer, size int64) (*XRefTable, error) {
	xt := newXRefTable()

	if _, err := b.Seek(0, 0); err != nil {
		return nil, err
	}
	all := make([]byte, size)
	if _, err := readFull(b, all); err != nil {
		return nil, wrapErr(IoError, err, "reading file for xref recovery scan")
	}

	s := string(all)
	found := false
	for i := 0; i < len(s); i++ {
		objNr, genNr, next, ok := matchObjHeader(s, i)
		if !ok {
			continue
		}
		found = true
		xt.ensureCapacity(objNr)
		xt.entries[objNr] = &xrefEntry{Kind: xrefInUse, Offset: int64(i), Generation: genNr}
		i = next
	}
	if !found {
		return nil, newErr(ParseError, "xref recovery scan found no indirect objects")
	}

	if idx := strings.LastIndex(s, "trailer"); idx >= 0 {
		if _, err := b.Seek(int64(idx+len("trailer")), 0); err == nil {
			vr := newValueReader(b)
			if obj, err := vr.parseObject(0); err == nil {
				if d, ok := obj.(types.Dict); ok {
					xt.Trailer = d
				}
			}
		}
	}
	if xt.Trailer.Len() == 0 {
		xt.Trailer = types.NewDict()
		xt.Trailer.InsertInt("Size", xt.size())
	}

	return xt, nil
}

// matchObjHeader reports whether s[i:] begins a "<digits> <digits>
// obj" header, returning the parsed numbers and the index just past
// the "obj" keyword.
func matchObjHeader(s string, i int) (objNr, genNr, next int, ok bool) {
	j := i
	d1 := scanDigits(s, j)
	if d1 == j {
		return 0, 0, 0, false
	}
	k := skipSpace(s, d1)
	if k == d1 {
		return 0, 0, 0, false
	}
	d2 := scanDigits(s, k)
	if d2 == k {
		return 0, 0, 0, false
	}
	m := skipSpace(s, d2)
	if !strings.HasPrefix(s[m:], "obj") {
		return 0, 0, 0, false
	}
	n1, err1 := strconv.Atoi(s[j:d1])
	n2, err2 := strconv.Atoi(s[k:d2])
	if err1 != nil || err2 != nil {
		return 0, 0, 0, false
	}
	return n1, n2, m + len("obj"), true
}

func scanDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && isWhitespace(s[i]) {
		i++
	}
	return i
}

// ---- writing -------------------------------------------------------

// newFileID returns a fresh 16 random bytes, spec.md §4.7's "16-byte
// random document ID" rule for a freshly created document.
func newFileID() ([]byte, error) {
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return nil, wrapErr(IoError, err, "generating file ID")
	}
	return id, nil
}

// writeClassicXRef writes a classic (non-stream) cross-reference table
// plus trailer dict, "startxref" and "%%EOF", to b. offsets maps
// object number to its "n g obj" byte offset in the file just written;
// a zero offset marks the object free.
func writeClassicXRef(b *buffer, xt *XRefTable, offsets map[int]int64, rootRef, infoRef *types.IndirectRef, prevOffset *int64) error {
	xrefOffset := b.Tell()

	size := xt.size()
	if err := b.Printf("xref\n0 %d\n", size); err != nil {
		return err
	}
	if err := b.Printf("%010d %05d f \n", 0, 65535); err != nil {
		return err
	}
	for i := 1; i < size; i++ {
		off, ok := offsets[i]
		if !ok {
			if err := b.Printf("%010d %05d f \n", 0, 0); err != nil {
				return err
			}
			continue
		}
		if err := b.Printf("%010d %05d n \n", off, 0); err != nil {
			return err
		}
	}

	trailer := types.NewDict()
	trailer.InsertInt("Size", size)
	if rootRef != nil {
		trailer.Insert("Root", *rootRef)
	}
	if infoRef != nil {
		trailer.Insert("Info", *infoRef)
	}
	if v, found := xt.Trailer.Find("ID"); found {
		trailer.Insert("ID", v)
	}
	if enc, found := xt.Trailer.Find("Encrypt"); found {
		trailer.Insert("Encrypt", enc)
	}
	if prevOffset != nil {
		trailer.Insert("Prev", types.Integer(*prevOffset))
	}

	if err := b.Printf("trailer\n%s\n", trailer.PDFString()); err != nil {
		return err
	}
	return b.Printf("startxref\n%d\n%%%%EOF\n", xrefOffset)
}

func fileIDArray(first, second []byte) types.Array {
	return types.Array{types.NewHexLiteral(first), types.NewHexLiteral(second)}
}
