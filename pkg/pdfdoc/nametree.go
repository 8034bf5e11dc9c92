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
	"sort"

	"github.com/mechiko/pdfdoc/pkg/types"
)

// NameTree is §9's supplemented name-tree feature: a flat, sorted
// lookup/insert structure over a PDF name tree's leaf /Names array,
// enough to serve /Dests and embedded-file name trees without the
// teacher's balancing-on-overflow Node/Kids intermediate-node
// machinery (pkg/pdfcpu/model/nameTree.go) - a document this package
// builds holds at most a few hundred names, so a single sorted slice
// round-trips through one leaf dict instead of a multi-node tree.
type NameTree struct {
	entries []nameEntry
}

type nameEntry struct {
	Key   string
	Value types.Object
}

// NewNameTree returns an empty name tree.
func NewNameTree() *NameTree { return &NameTree{} }

func (nt *NameTree) search(key string) (int, bool) {
	i := sort.Search(len(nt.entries), func(i int) bool { return nt.entries[i].Key >= key })
	return i, i < len(nt.entries) && nt.entries[i].Key == key
}

// Insert adds key -> value, replacing any existing entry for key.
func (nt *NameTree) Insert(key string, value types.Object) {
	i, found := nt.search(key)
	if found {
		nt.entries[i].Value = value
		return
	}
	nt.entries = append(nt.entries, nameEntry{})
	copy(nt.entries[i+1:], nt.entries[i:])
	nt.entries[i] = nameEntry{Key: key, Value: value}
}

// Lookup returns the value for key, the "lookup by name" operation
// /Dests and embedded-file resolution both reduce to.
func (nt *NameTree) Lookup(key string) (types.Object, bool) {
	i, found := nt.search(key)
	if !found {
		return nil, false
	}
	return nt.entries[i].Value, true
}

// Len returns the number of entries.
func (nt *NameTree) Len() int { return len(nt.entries) }

// ToDict renders the tree as a single leaf /Names array dict,
// "<< /Names [ (k1) v1 (k2) v2 ... ] >>".
func (nt *NameTree) ToDict() types.Dict {
	d := types.NewDict()
	arr := types.Array{}
	for _, e := range nt.entries {
		arr = append(arr, types.StringLiteral(e.Key), e.Value)
	}
	d.Insert("Names", arr)
	return d
}

// NameTreeFromDict parses a leaf /Names array dict back into a
// NameTree. Intermediate (/Kids-bearing) nodes are not supported; this
// mirrors the scope decision in NameTree's doc comment above.
func NameTreeFromDict(d types.Dict) (*NameTree, error) {
	nt := NewNameTree()
	arr := d.ArrayEntry("Names")
	if arr == nil {
		if _, ok := d.Find("Kids"); ok {
			return nil, newErr(DataError, "intermediate name tree nodes are not supported")
		}
		return nt, nil
	}
	if len(arr)%2 != 0 {
		return nil, newErr(DataError, "name tree /Names array has an odd number of elements")
	}
	for i := 0; i+1 < len(arr); i += 2 {
		sl, ok := arr[i].(types.StringLiteral)
		if !ok {
			return nil, newErr(DataError, "name tree key is not a string")
		}
		nt.Insert(string(sl), arr[i+1])
	}
	return nt, nil
}
