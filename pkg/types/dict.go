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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// dictEntry is one (key, value) pair of a Dict, kept in key-sorted order.
type dictEntry struct {
	Key   string
	Value Object
}

// Dict represents a PDF dict object. Unlike a Go map, its entries are
// kept sorted by key at all times so that iteration order - and
// therefore a written-out dict's byte representation - is
// deterministic. The backing slice lives behind a pointer so that
// copies of a Dict value share the same entries, the way a map would.
type Dict struct {
	entries *[]dictEntry
}

// NewDict returns a new, empty Dict.
func NewDict() Dict {
	e := make([]dictEntry, 0)
	return Dict{entries: &e}
}

// DictFromMap builds a Dict from an unordered map, e.g. for literal
// construction in tests; entries are kept sorted as they are inserted.
func DictFromMap(m map[string]Object) Dict {
	d := NewDict()
	for k, v := range m {
		d.Insert(k, v)
	}
	return d
}

func (d Dict) items() []dictEntry {
	if d.entries == nil {
		return nil
	}
	return *d.entries
}

func (d Dict) search(key string) (int, bool) {
	items := d.items()
	i := sort.Search(len(items), func(i int) bool { return items[i].Key >= key })
	if i < len(items) && items[i].Key == key {
		return i, true
	}
	return i, false
}

// Len returns the number of entries in this Dict.
func (d Dict) Len() int {
	return len(d.items())
}

// Keys returns the entry keys in sorted order.
func (d Dict) Keys() []string {
	items := d.items()
	keys := make([]string, len(items))
	for i, e := range items {
		keys[i] = e.Key
	}
	return keys
}

// Clone returns a deep copy of d.
func (d Dict) Clone() Object {
	d1 := NewDict()
	for _, e := range d.items() {
		v := e.Value
		if v != nil {
			v = v.Clone()
		}
		d1.Insert(e.Key, v)
	}
	return d1
}

// Insert adds a new entry to this Dict. Returns false without
// modification if key is already present.
func (d Dict) Insert(key string, value Object) (ok bool) {
	if d.entries == nil {
		panic("types: Insert on zero-value Dict, use NewDict()")
	}
	i, found := d.search(key)
	if found {
		return false
	}
	items := *d.entries
	items = append(items, dictEntry{})
	copy(items[i+1:], items[i:])
	items[i] = dictEntry{Key: key, Value: value}
	*d.entries = items
	return true
}

// InsertInt adds a new int entry to this Dict.
func (d Dict) InsertInt(key string, value int) { d.Insert(key, Integer(value)) }

// InsertFloat adds a new float entry to this Dict.
func (d Dict) InsertFloat(key string, value float64) { d.Insert(key, Float(value)) }

// InsertString adds a new string entry to this Dict.
func (d Dict) InsertString(key, value string) { d.Insert(key, StringLiteral(value)) }

// InsertName adds a new name entry to this Dict.
func (d Dict) InsertName(key, value string) { d.Insert(key, Name(value)) }

// Update modifies an existing (or adds a new) entry of this Dict.
func (d Dict) Update(key string, value Object) {
	if value == nil {
		return
	}
	i, found := d.search(key)
	if found {
		(*d.entries)[i].Value = value
		return
	}
	d.Insert(key, value)
}

// Find returns the Object for given key and whether it was present.
func (d Dict) Find(key string) (value Object, found bool) {
	i, ok := d.search(key)
	if !ok {
		return nil, false
	}
	return d.items()[i].Value, true
}

// Delete removes the entry for key, returning its former value.
func (d Dict) Delete(key string) (value Object) {
	i, found := d.search(key)
	if !found {
		return nil
	}
	items := *d.entries
	value = items[i].Value
	*d.entries = append(items[:i], items[i+1:]...)
	return value
}

// NewIDForPrefix returns the first unused key of the form prefix+N,
// starting the search at i.
func (d Dict) NewIDForPrefix(prefix string, i int) string {
	var id string
	found := true
	for j := i; found; j++ {
		id = prefix + strconv.Itoa(j)
		_, found = d.Find(id)
	}
	return id
}

// Entry returns the value for given key, erroring if required and absent.
func (d Dict) Entry(dictName, key string, required bool) (Object, error) {
	obj, found := d.Find(key)
	if !found || obj == nil {
		if required {
			return nil, errors.Errorf("dict=%s required entry=%s missing", dictName, key)
		}
		return nil, nil
	}
	return obj, nil
}

// BooleanEntry expects and returns a Boolean entry for given key.
func (d Dict) BooleanEntry(key string) *bool {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if bb, ok := value.(Boolean); ok {
		b := bb.Value()
		return &b
	}
	return nil
}

// StringEntry expects and returns a StringLiteral entry for given key.
func (d Dict) StringEntry(key string) *string {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if s, ok := value.(StringLiteral); ok {
		v := string(s)
		return &v
	}
	return nil
}

// NameEntry expects and returns a Name entry for given key.
func (d Dict) NameEntry(key string) *string {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if n, ok := value.(Name); ok {
		v := n.Value()
		return &v
	}
	return nil
}

// IntEntry expects and returns an Integer entry for given key.
func (d Dict) IntEntry(key string) *int {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if n, ok := value.(Integer); ok {
		v := int(n)
		return &v
	}
	return nil
}

// Int64Entry expects and returns an Integer entry as an int64.
func (d Dict) Int64Entry(key string) *int64 {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if n, ok := value.(Integer); ok {
		v := int64(n)
		return &v
	}
	return nil
}

// IndirectRefEntry returns an IndirectRef entry for given key.
func (d Dict) IndirectRefEntry(key string) *IndirectRef {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if ir, ok := value.(IndirectRef); ok {
		return &ir
	}
	return nil
}

// DictEntry expects and returns a Dict entry for given key.
func (d Dict) DictEntry(key string) (Dict, bool) {
	value, found := d.Find(key)
	if !found {
		return Dict{}, false
	}
	sub, ok := value.(Dict)
	return sub, ok
}

// StreamDictEntry expects and returns a StreamDict entry for given key.
func (d Dict) StreamDictEntry(key string) *StreamDict {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if sd, ok := value.(StreamDict); ok {
		return &sd
	}
	return nil
}

// ArrayEntry expects and returns an Array entry for given key.
func (d Dict) ArrayEntry(key string) Array {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if a, ok := value.(Array); ok {
		return a
	}
	return nil
}

// StringLiteralEntry returns a StringLiteral object for given key.
func (d Dict) StringLiteralEntry(key string) *StringLiteral {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if s, ok := value.(StringLiteral); ok {
		return &s
	}
	return nil
}

// HexLiteralEntry returns a HexLiteral object for given key.
func (d Dict) HexLiteralEntry(key string) *HexLiteral {
	value, found := d.Find(key)
	if !found {
		return nil
	}
	if h, ok := value.(HexLiteral); ok {
		return &h
	}
	return nil
}

// StringEntryBytes returns the decoded byte slice for a string-valued key.
func (d Dict) StringEntryBytes(key string) ([]byte, error) {
	if s := d.StringLiteralEntry(key); s != nil {
		return Unescape(s.Value())
	}
	if h := d.HexLiteralEntry(key); h != nil {
		return h.Bytes()
	}
	return nil, nil
}

// Length returns the int64 value of a direct "Length" entry, or - if
// Length is an indirect reference - the referenced object number.
func (d Dict) Length() (*int64, *int) {
	if val := d.Int64Entry("Length"); val != nil {
		return val, nil
	}
	if ref := d.IndirectRefEntry("Length"); ref != nil {
		n := ref.ObjectNumber.Value()
		return nil, &n
	}
	return nil, nil
}

// Type returns the value of the name entry for key "Type".
func (d Dict) Type() *string { return d.NameEntry("Type") }

// Subtype returns the value of the name entry for key "Subtype".
func (d Dict) Subtype() *string { return d.NameEntry("Subtype") }

// Size returns the value of the int entry for key "Size".
func (d Dict) Size() *int { return d.IntEntry("Size") }

// IsObjStm returns true if this dict describes an object stream.
func (d Dict) IsObjStm() bool { return d.Type() != nil && *d.Type() == "ObjStm" }

// W returns the Array for key "W" (xref stream field widths).
func (d Dict) W() Array { return d.ArrayEntry("W") }

// Prev returns the previous xref section offset, if any.
func (d Dict) Prev() *int64 { return d.Int64Entry("Prev") }

// Index returns the Array for key "Index" (xref stream subsections).
func (d Dict) Index() Array { return d.ArrayEntry("Index") }

// N returns the int for key "N" (object stream object count).
func (d Dict) N() *int { return d.IntEntry("N") }

// First returns the int for key "First" (object stream data offset).
func (d Dict) First() *int { return d.IntEntry("First") }

// IsLinearizationParmDict reports whether this dict carries a
// "Linearized" entry.
func (d Dict) IsLinearizationParmDict() bool { return d.IntEntry("Linearized") != nil }

// IncrementBy increments the integer value for given key by i.
func (d Dict) IncrementBy(key string, i int) error {
	v := d.IntEntry(key)
	if v == nil {
		return errors.Errorf("IncrementBy: unknown key: %s", key)
	}
	*v += i
	d.Update(key, Integer(*v))
	return nil
}

// Increment increments the integer value for given key by 1.
func (d Dict) Increment(key string) error { return d.IncrementBy(key, 1) }

func (d Dict) indentedString(level int) string {
	logstr := []string{"<<\n"}
	tabstr := strings.Repeat("\t", level)

	for _, e := range d.items() {
		k, v := e.Key, e.Value
		switch sub := v.(type) {
		case Dict:
			logstr = append(logstr, fmt.Sprintf("%s<%s, %s>\n", tabstr, k, sub.indentedString(level+1)))
		case Array:
			logstr = append(logstr, fmt.Sprintf("%s<%s, %s>\n", tabstr, k, sub.indentedString(level+1)))
		default:
			logstr = append(logstr, fmt.Sprintf("%s<%s, %v>\n", tabstr, k, v))
		}
	}

	logstr = append(logstr, fmt.Sprintf("%s%s", strings.Repeat("\t", level-1), ">>"))
	return strings.Join(logstr, "")
}

func (d Dict) String() string { return d.indentedString(1) }

// PDFString returns the key-sorted string representation as written
// to a PDF file. Two Dicts with identical entries always produce
// byte-identical output.
func (d Dict) PDFString() string {
	logstr := []string{"<<"}

	for _, e := range d.items() {
		k, v := e.Key, e.Value
		if v == nil {
			logstr = append(logstr, fmt.Sprintf("/%s null", k))
			continue
		}
		switch o := v.(type) {
		case Dict:
			logstr = append(logstr, fmt.Sprintf("/%s%s", k, o.PDFString()))
		case Array:
			logstr = append(logstr, fmt.Sprintf("/%s%s", k, o.PDFString()))
		case IndirectRef:
			logstr = append(logstr, fmt.Sprintf("/%s %s", k, o.PDFString()))
		case Name:
			logstr = append(logstr, fmt.Sprintf("/%s%s", k, o.PDFString()))
		case Integer:
			logstr = append(logstr, fmt.Sprintf("/%s %s", k, o.PDFString()))
		case Float:
			logstr = append(logstr, fmt.Sprintf("/%s %s", k, o.PDFString()))
		case Boolean:
			logstr = append(logstr, fmt.Sprintf("/%s %s", k, o.PDFString()))
		case StringLiteral:
			logstr = append(logstr, fmt.Sprintf("/%s%s", k, o.PDFString()))
		case HexLiteral:
			logstr = append(logstr, fmt.Sprintf("/%s%s", k, o.PDFString()))
		default:
			logstr = append(logstr, fmt.Sprintf("/%s %v", k, v))
		}
	}

	logstr = append(logstr, ">>")
	return strings.Join(logstr, "")
}
