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
	"testing"

	"github.com/mechiko/pdfdoc/pkg/types"
)

func TestNameTreeInsertLookup(t *testing.T) {
	nt := NewNameTree()
	nt.Insert("Page3", *types.NewIndirectRef(3, 0))
	nt.Insert("Page1", *types.NewIndirectRef(1, 0))
	nt.Insert("Page2", *types.NewIndirectRef(2, 0))

	v, ok := nt.Lookup("Page2")
	if !ok {
		t.Fatal("Lookup(Page2) missed")
	}
	ref, ok := v.(types.IndirectRef)
	if !ok || ref.ObjectNumber.Value() != 2 {
		t.Errorf("Lookup(Page2) = %#v", v)
	}
	if nt.Len() != 3 {
		t.Errorf("Len() = %d, want 3", nt.Len())
	}
	if _, ok := nt.Lookup("Missing"); ok {
		t.Error("Lookup(Missing) should miss")
	}
}

func TestNameTreeInsertReplacesExisting(t *testing.T) {
	nt := NewNameTree()
	nt.Insert("K", types.Integer(1))
	nt.Insert("K", types.Integer(2))
	if nt.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", nt.Len())
	}
	v, _ := nt.Lookup("K")
	if v != types.Integer(2) {
		t.Errorf("Lookup(K) = %#v, want Integer(2)", v)
	}
}

func TestNameTreeToDictAndBackSortedOrder(t *testing.T) {
	nt := NewNameTree()
	nt.Insert("Zebra", types.Integer(1))
	nt.Insert("Apple", types.Integer(2))

	d := nt.ToDict()
	arr := d.ArrayEntry("Names")
	if len(arr) != 4 {
		t.Fatalf("len(Names) = %d, want 4", len(arr))
	}
	if arr[0] != types.StringLiteral("Apple") {
		t.Errorf("Names[0] = %#v, want (Apple) - tree must iterate in sorted order", arr[0])
	}

	back, err := NameTreeFromDict(d)
	if err != nil {
		t.Fatalf("NameTreeFromDict: %v", err)
	}
	if back.Len() != 2 {
		t.Errorf("round-tripped Len() = %d, want 2", back.Len())
	}
	v, ok := back.Lookup("Zebra")
	if !ok || v != types.Integer(1) {
		t.Errorf("round-tripped Lookup(Zebra) = %#v, ok=%v", v, ok)
	}
}

func TestNameTreeFromDictRejectsKidsNode(t *testing.T) {
	d := types.NewDict()
	d.Insert("Kids", types.Array{})
	if _, err := NameTreeFromDict(d); err == nil {
		t.Error("expected an error for an intermediate (/Kids) name tree node")
	}
}

func TestNameTreeFromEmptyDict(t *testing.T) {
	nt, err := NameTreeFromDict(types.NewDict())
	if err != nil {
		t.Fatalf("NameTreeFromDict: %v", err)
	}
	if nt.Len() != 0 {
		t.Errorf("Len() = %d, want 0", nt.Len())
	}
}
