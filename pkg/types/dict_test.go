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

import "testing"

func TestDictSortedIteration(t *testing.T) {
	d := NewDict()
	d.Insert("Zorro", Name("Z"))
	d.Insert("Annie", Name("A"))
	d.Insert("Mabel", Name("M"))

	got := d.Keys()
	want := []string{"Annie", "Mabel", "Zorro"}
	for i, k := range want {
		if got[i] != k {
			t.Errorf("Keys()[%d] = %s, want %s", i, got[i], k)
		}
	}
}

func TestDictShareBacking(t *testing.T) {
	d1 := NewDict()
	d1.Insert("Type", Name("Catalog"))

	d2 := d1 // value copy, same backing per map-like semantics
	d2.Insert("Version", Name("1.7"))

	if d1.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (copy should share entries)", d1.Len())
	}
}

func TestDictInsertDuplicate(t *testing.T) {
	d := NewDict()
	if !d.Insert("Type", Name("Catalog")) {
		t.Fatal("first insert should succeed")
	}
	if d.Insert("Type", Name("Page")) {
		t.Fatal("inserting an existing key should fail")
	}
	v, _ := d.Find("Type")
	if v != Name("Catalog") {
		t.Errorf("Find(Type) = %v, want Catalog (duplicate insert should not overwrite)", v)
	}
}

func TestDictUpdateAndDelete(t *testing.T) {
	d := NewDict()
	d.Insert("Count", Integer(1))
	d.Update("Count", Integer(2))

	if n := d.IntEntry("Count"); n == nil || *n != 2 {
		t.Errorf("IntEntry(Count) = %v, want 2", n)
	}

	d.Delete("Count")
	if _, found := d.Find("Count"); found {
		t.Error("Count should be gone after Delete")
	}
}

func TestDictPDFStringDeterministic(t *testing.T) {
	d1 := NewDict()
	d1.Insert("B", Integer(2))
	d1.Insert("A", Integer(1))

	d2 := NewDict()
	d2.Insert("A", Integer(1))
	d2.Insert("B", Integer(2))

	if d1.PDFString() != d2.PDFString() {
		t.Errorf("PDFString() mismatch: %s != %s", d1.PDFString(), d2.PDFString())
	}
}

func TestDictClone(t *testing.T) {
	d1 := NewDict()
	d1.Insert("Kids", Array{Integer(1), Integer(2)})

	d2 := d1.Clone().(Dict)
	d2.Update("Kids", Array{Integer(3)})

	a1 := d1.ArrayEntry("Kids")
	if len(a1) != 2 {
		t.Errorf("mutating a clone should not affect the original, got %v", a1)
	}
}

func TestDictIncrement(t *testing.T) {
	d := NewDict()
	d.Insert("Size", Integer(10))
	if err := d.IncrementBy("Size", 5); err != nil {
		t.Fatal(err)
	}
	if n := d.IntEntry("Size"); n == nil || *n != 15 {
		t.Errorf("IntEntry(Size) = %v, want 15", n)
	}
	if err := d.IncrementBy("Missing", 1); err == nil {
		t.Error("IncrementBy on a missing key should error")
	}
}
