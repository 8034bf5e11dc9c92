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

// Package pdfdoc is the object-level PDF reader/writer: buffered I/O,
// tokenizer, value reader/writer, object table, xref/trailer engine,
// stream objects and the Document facade built on top of them. It is
// the restructured, from-scratch counterpart of the teacher's
// read/write/pkg/pdfcpu packages (deleted from this module once this
// package subsumed their responsibilities - see DESIGN.md), expressed
// as a byte-stream engine instead of a whole-file-in-memory one.
package pdfdoc

import (
	"bytes"
	"io"

	"github.com/mechiko/pdfdoc/pkg/security"
	"github.com/mechiko/pdfdoc/pkg/types"
)

// docState implements spec.md's Document "Building -> Sealed" lifecycle.
type docState int

const (
	docBuilding docState = iota
	docSealed
	docPoisoned
)

// PDFAFlavor names the PDF/A conformance level a Document was tagged
// with by SetPDFA, per §4.11's PDF/A-vs-encryption mutual exclusion.
type PDFAFlavor string

const (
	PDFANone  PDFAFlavor = ""
	PDFA1B    PDFAFlavor = "PDF/A-1b"
	PDFA2B    PDFAFlavor = "PDF/A-2b"
	PDFA3B    PDFAFlavor = "PDF/A-3b"
)

// Document is the C11 facade: the public entry point for creating,
// reading and writing a PDF file, grounded on
// pkg/pdfcpu/model/context.go's Context (trimmed to the fields
// spec.md's Document type actually names: catalog/info/encrypt
// references, version, and the object table, which holds the
// cross-document object map). There is no page-tree field.
type Document struct {
	xref    *XRefTable
	state   docState
	version string

	rootRef *types.IndirectRef
	infoRef *types.IndirectRef
	encRef  *types.IndirectRef

	security *security.Handler
	pdfa     PDFAFlavor

	openStream *Stream

	// write-mode only
	wb       *buffer
	written  map[int]int64 // object number -> byte offset, for the xref table
	firstID  []byte
	secondID []byte

	// read-mode only
	rb *buffer
}

// Create starts a new, empty Document for writing, version "1.7" by
// default. Use SetPDFA before adding content to tag it as a PDF/A
// file; PDF/A and encryption are mutually exclusive (§4.11).
func Create() *Document {
	d := &Document{
		xref:    newXRefTable(),
		state:   docBuilding,
		version: "1.7",
		written: map[int]int64{},
	}
	rootDict := types.NewDict()
	rootDict.InsertName("Type", "Catalog")
	rootNr := d.xref.allocate()
	d.xref.entries[rootNr].Object = rootDict
	d.xref.entries[rootNr].Loaded = true
	d.rootRef = types.NewIndirectRef(rootNr, 0)
	return d
}

// SetPDFA tags the document with a PDF/A conformance flavor. Returns a
// PolicyError if the document is already (or becomes) encrypted.
func (d *Document) SetPDFA(flavor PDFAFlavor) error {
	if d.security != nil && flavor != PDFANone {
		return ErrPDFACombinesWithEncryption
	}
	d.pdfa = flavor
	return nil
}

// SetPermissions encrypts the document being built with the standard
// security handler, generating a fresh file key. Returns a
// PolicyError if the document is tagged PDF/A.
func (d *Document) SetPermissions(userpw, ownerpw string, p security.LockParams) error {
	if d.pdfa != PDFANone {
		return ErrPDFACombinesWithEncryption
	}
	if d.firstID == nil {
		id, err := newFileID()
		if err != nil {
			return err
		}
		d.firstID = id
	}
	p.ID = d.firstID

	enc, key, err := security.Lock(ownerpw, userpw, p)
	if err != nil {
		return wrapErr(CryptoError, err, "locking document")
	}
	h := security.NewHandler(enc)
	h.EncKey = key
	d.security = h

	ref, err := d.CreateObject(security.NewEncryptDict(enc))
	if err != nil {
		return err
	}
	d.encRef = ref
	d.xref.Trailer.Update("Encrypt", *ref)
	return nil
}

// Open parses an existing PDF from rs: locates and follows the
// xref/trailer chain (falling back once to a recovery scan), resolves
// the catalog/info/encrypt references and, if encrypted, requires a
// call to Unlock before any object content can be read.
func Open(rs io.ReadSeeker) (*Document, error) {
	size, err := sizeOf(rs)
	if err != nil {
		return nil, err
	}
	b := newReadBuffer(rs)

	version, err := readHeaderVersion(b)
	if err != nil {
		return nil, err
	}

	xt, err := readXRefTable(b, size)
	if err != nil {
		return nil, err
	}

	d := &Document{xref: xt, state: docBuilding, version: version, rb: b}

	if ref := xt.Trailer.IndirectRefEntry("Root"); ref != nil {
		d.rootRef = ref
	} else {
		return nil, newErr(DataError, "trailer is missing /Root")
	}
	if ref := xt.Trailer.IndirectRefEntry("Info"); ref != nil {
		d.infoRef = ref
	}
	if ref := xt.Trailer.IndirectRefEntry("Encrypt"); ref != nil {
		d.encRef = ref
		encDict, err := d.loadDictAt(ref.ObjectNumber.Value())
		if err != nil {
			return nil, wrapErr(DataError, err, "loading /Encrypt dict")
		}
		enc, err := decodeEncDict(encDict, xt.Trailer)
		if err != nil {
			return nil, err
		}
		d.security = security.NewHandler(enc)
	}

	return d, nil
}

func sizeOf(rs io.ReadSeeker) (int64, error) {
	n, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, wrapErr(IoError, err, "seeking to end of file")
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, wrapErr(IoError, err, "seeking to start of file")
	}
	return n, nil
}

// readHeaderVersion reads "%PDF-X.Y" from the first bytes of the file.
func readHeaderVersion(b *buffer) (string, error) {
	line, err := b.ReadLine()
	if err != nil {
		return "", wrapErr(ParseError, err, "reading PDF header")
	}
	const prefix = "%PDF-"
	i := indexOf(line, prefix)
	if i < 0 {
		return "", newErr(ParseError, "missing %PDF- header")
	}
	v := line[i+len(prefix):]
	v = trimEOL(v)
	return v, nil
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Unlock authenticates against an encrypted document's security
// handler; required before any stream content or encrypted string can
// be read.
func (d *Document) Unlock(userpw, ownerpw string) error {
	if d.security == nil {
		return newErr(StateError, "document is not encrypted")
	}
	return d.security.Unlock(userpw, ownerpw)
}

// Version returns the document's "%PDF-X.Y" version string.
func (d *Document) Version() string { return d.version }

// loadDictAt loads and returns the dict (or stream dict's Dict) for objNr.
func (d *Document) loadDictAt(objNr int) (types.Dict, error) {
	obj, err := d.GetObject(objNr, 0)
	if err != nil {
		return types.Dict{}, err
	}
	switch o := obj.(type) {
	case types.Dict:
		return o, nil
	case types.StreamDict:
		return o.Dict, nil
	default:
		return types.Dict{}, newErr(DataError, "object is not a dict")
	}
}

// GetObject resolves objNr to its value, loading and caching it from
// the file on first access (lazy loading, §9's three-state field).
func (d *Document) GetObject(objNr, genNr int) (types.Object, error) {
	if d.state == docPoisoned {
		return nil, ErrDocumentPoisoned
	}
	return d.xref.getOrLoad(objNr, func(e *xrefEntry) (types.Object, error) {
		switch e.Kind {
		case xrefFree:
			return nil, nil
		case xrefCompressed:
			return d.loadCompressedObject(e)
		default:
			return d.loadObjectAt(e.Offset)
		}
	})
}

// Resolve follows obj one level if it is an IndirectRef, otherwise
// returns it unchanged - the graph-ownership-by-(objNr,genNr)-pair
// pattern §9 documents in place of direct pointers.
func (d *Document) Resolve(obj types.Object) (types.Object, error) {
	ref, ok := obj.(types.IndirectRef)
	if !ok {
		return obj, nil
	}
	return d.GetObject(ref.ObjectNumber.Value(), ref.GenerationNumber.Value())
}

func (d *Document) loadObjectAt(offset int64) (types.Object, error) {
	if d.rb == nil {
		return nil, newErr(StateError, "document has no backing reader")
	}
	if _, err := d.rb.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	vr := newValueReader(d.rb)
	ot, err := vr.s.next()
	if err != nil || ot.kind != tokNumber {
		return nil, newErr(ParseError, "expected object number at xref offset")
	}
	gt, err := vr.s.next()
	if err != nil || gt.kind != tokNumber {
		return nil, newErr(ParseError, "expected generation number at xref offset")
	}
	if t, err := vr.s.next(); err != nil || t.kind != tokKeyword || t.text != "obj" {
		return nil, newErr(ParseError, "expected \"obj\" keyword at xref offset")
	}
	objNr, _, genErr := parseNumberToken(ot.text)
	genNr, _, _ := parseNumberToken(gt.text)
	if genErr != nil {
		return nil, genErr
	}

	obj, err := vr.parseObject(0)
	if err != nil {
		return nil, err
	}
	if sd, ok := obj.(types.StreamDict); ok {
		if err := readStreamRaw(d.rb, &sd); err != nil {
			return nil, wrapErr(IoError, err, "reading stream body")
		}
		return sd, nil
	}

	// Plain dict objects carry their own encrypted strings (streams are
	// decrypted lazily in openStreamForReading instead, once opened).
	if dict, ok := obj.(types.Dict); ok && d.security != nil {
		isEncryptDict := d.encRef != nil && d.encRef.ObjectNumber.Value() == int(objNr)
		if !isEncryptDict {
			if err := d.security.DecryptDict(dict, int(objNr), int(genNr)); err != nil {
				return nil, wrapErr(CryptoError, err, "decrypting object")
			}
		}
		return dict, nil
	}
	return obj, nil
}

func (d *Document) loadCompressedObject(e *xrefEntry) (types.Object, error) {
	container, err := d.GetObject(e.ObjectStreamNr, 0)
	if err != nil {
		return nil, err
	}
	sd, ok := container.(types.StreamDict)
	if !ok {
		return nil, newErr(DataError, "object stream container is not a stream")
	}
	osd := &types.ObjectStreamDict{StreamDict: sd}
	if err := decodeObjectStream(osd); err != nil {
		return nil, err
	}
	return osd.IndexedObject(e.ObjectStreamIdx)
}

// decodeObjectStream unpacks a decoded /Type /ObjStm stream's N
// "objNr offset" prolog pairs into osd.ObjArray, supplementing §9's
// object-streams feature (the PDF 1.5+ compact object container).
func decodeObjectStream(osd *types.ObjectStreamDict) error {
	if osd.ObjArray != nil {
		return nil
	}
	if err := osd.Decode(); err != nil {
		return wrapErr(FilterError, err, "decoding object stream")
	}
	n := osd.N()
	first := osd.First()
	if n == nil || first == nil {
		return newErr(DataError, "object stream missing /N or /First")
	}

	prolog := string(osd.Content[:*first])
	fields := splitFields(prolog)
	if len(fields)%2 != 0 {
		return newErr(DataError, "malformed object stream prolog")
	}

	objs := make(types.Array, 0, *n)
	b := newReadBuffer(bytes.NewReader(osd.Content[*first:]))
	vr := newValueReader(b)
	for i := 0; i+1 < len(fields) && len(objs) < *n; i += 2 {
		obj, err := vr.parseObject(0)
		if err != nil {
			return wrapErr(ParseError, err, "parsing object stream entry")
		}
		objs = append(objs, obj)
	}
	osd.ObjArray = objs
	osd.ObjCount = *n
	osd.FirstObjOffset = *first
	return nil
}

func splitFields(s string) []string {
	var fields []string
	var cur []byte
	for i := 0; i < len(s); i++ {
		if isWhitespace(s[i]) {
			if len(cur) > 0 {
				fields = append(fields, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, s[i])
	}
	if len(cur) > 0 {
		fields = append(fields, string(cur))
	}
	return fields
}

// writePendingObject is called by Stream.Close to frame a just-encoded
// stream object directly onto the write buffer.
func (d *Document) writePendingObject(objNr, genNr int, obj types.Object) error {
	if d.wb == nil {
		return newErr(StateError, "document is not open for writing")
	}
	vw := newValueWriter(d.wb)
	offset, err := vw.writeIndirectObject(objNr, genNr, obj)
	if err != nil {
		d.state = docPoisoned
		return err
	}
	d.written[objNr] = offset
	return nil
}

// CreateObject allocates a new indirect object holding obj, returning
// a reference to it, the C6 "allocate" operation exposed at the
// facade level.
func (d *Document) CreateObject(obj types.Object) (*types.IndirectRef, error) {
	if d.state == docSealed {
		return nil, ErrDocumentSealed
	}
	if d.state == docPoisoned {
		return nil, ErrDocumentPoisoned
	}
	n := d.xref.allocate()
	d.xref.entries[n].Object = obj
	d.xref.entries[n].Loaded = true
	return types.NewIndirectRef(n, 0), nil
}

// OpenStream opens the stream object identified by ref for reading,
// enforcing the single-open-stream-per-document rule (§5). New streams
// are started with CreateStream.
func (d *Document) OpenStream(ref types.IndirectRef) (*Stream, error) {
	obj, err := d.GetObject(ref.ObjectNumber.Value(), ref.GenerationNumber.Value())
	if err != nil {
		return nil, err
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return nil, newErr(DataError, "object is not a stream")
	}
	return openStreamForReading(d, ref.ObjectNumber.Value(), ref.GenerationNumber.Value(), &sd)
}

// CreateStream starts a new stream object for writing, with the given
// dict entries and filter pipeline.
func (d *Document) CreateStream(dict types.Dict, filters []types.Filter) (*Stream, error) {
	return createStreamForWriting(d, dict, filters)
}

// Close finalizes the document: for a document opened for reading,
// closes any still-open stream (per §5) and marks the document sealed;
// the backing reader itself is left to the caller. For one being
// built, it writes every allocated object,
// the trailer, a classic cross-reference table and "%%EOF" to the
// configured writer, then seals it.
func (d *Document) Close() error {
	if d.state == docSealed {
		return nil
	}
	if d.openStream != nil {
		if err := d.openStream.Close(); err != nil {
			return err
		}
	}
	if d.wb == nil {
		d.state = docSealed
		return nil
	}
	if d.state == docPoisoned {
		return ErrDocumentPoisoned
	}

	if err := d.assignFileID(); err != nil {
		d.state = docPoisoned
		return err
	}

	if err := d.writeRemainingObjects(); err != nil {
		d.state = docPoisoned
		return err
	}

	if err := writeClassicXRef(d.wb, d.xref, d.written, d.rootRef, d.infoRef, nil); err != nil {
		d.state = docPoisoned
		return err
	}
	if err := d.wb.Close(); err != nil {
		d.state = docPoisoned
		return err
	}

	d.state = docSealed
	return nil
}

// assignFileID sets the trailer's /ID array: the first element is
// preserved across saves (generated once, by SetPermissions or by the
// first call here, whichever comes first), the second is
// regenerated on every save - spec.md §4.7's file identifier rule.
func (d *Document) assignFileID() error {
	if d.firstID == nil {
		id, err := newFileID()
		if err != nil {
			return err
		}
		d.firstID = id
	}
	second, err := newFileID()
	if err != nil {
		return err
	}
	d.secondID = second
	d.xref.Trailer.Update("ID", fileIDArray(d.firstID, d.secondID))
	return nil
}

func (d *Document) writeRemainingObjects() error {
	vw := newValueWriter(d.wb)
	for n := 1; n < len(d.xref.entries); n++ {
		e := d.xref.entries[n]
		if e == nil || e.Kind != xrefInUse {
			continue
		}
		if _, already := d.written[n]; already {
			continue
		}
		if sd, ok := e.Object.(types.StreamDict); ok && sd.Raw == nil && sd.Content != nil {
			if err := sd.Encode(); err != nil {
				return wrapErr(FilterError, err, "encoding stream before write")
			}
			e.Object = sd
		}

		isEncryptDict := d.encRef != nil && d.encRef.ObjectNumber.Value() == n
		if d.security != nil && !isEncryptDict {
			if dict, ok := e.Object.(types.Dict); ok {
				if err := d.security.EncryptDict(dict, n, e.Generation); err != nil {
					return wrapErr(CryptoError, err, "encrypting object")
				}
			}
		}

		offset, err := vw.writeIndirectObject(n, e.Generation, e.Object)
		if err != nil {
			return err
		}
		d.written[n] = offset
	}
	return nil
}

// CreateWriter begins writing a new document to w, writing the header
// immediately; objects are accumulated and written out by Close.
func (d *Document) CreateWriter(w io.Writer) error {
	d.wb = newWriteBuffer(w)
	return d.wb.Printf("%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", d.version)
}

func decodeEncDict(encDict types.Dict, trailer types.Dict) (security.Enc, error) {
	v := encDict.IntEntry("V")
	r := encDict.IntEntry("R")
	length := encDict.IntEntry("Length")
	if v == nil || r == nil {
		return security.Enc{}, newErr(DataError, "/Encrypt dict missing /V or /R")
	}
	l := 40
	if length != nil {
		l = *length
	}
	e := security.Enc{V: *v, R: *r, L: l}
	if p := encDict.IntEntry("P"); p != nil {
		e.P = int32(*p)
	}
	if o := encDict.HexLiteralEntry("O"); o != nil {
		e.O, _ = o.Bytes()
	}
	if u := encDict.HexLiteralEntry("U"); u != nil {
		e.U, _ = u.Bytes()
	}
	if oe := encDict.HexLiteralEntry("OE"); oe != nil {
		e.OE, _ = oe.Bytes()
	}
	if ue := encDict.HexLiteralEntry("UE"); ue != nil {
		e.UE, _ = ue.Bytes()
	}
	if perms := encDict.HexLiteralEntry("Perms"); perms != nil {
		e.Perms, _ = perms.Bytes()
	}
	if emd := encDict.BooleanEntry("EncryptMetadata"); emd != nil {
		e.Emd = *emd
	} else {
		e.Emd = true
	}
	if ids := trailer.ArrayEntry("ID"); len(ids) > 0 {
		if h, ok := ids[0].(types.HexLiteral); ok {
			e.ID, _ = h.Bytes()
		}
	}
	if cf, ok := encDict.DictEntry("CF"); ok {
		if std, ok := cf.DictEntry("StdCF"); ok {
			if cfm := std.NameEntry("CFM"); cfm != nil && (*cfm == "AESV2" || *cfm == "AESV3") {
				e.NeedAES = true
			}
		}
	}
	return e, nil
}
