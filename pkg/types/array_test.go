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

func TestNewNumberArray(t *testing.T) {
	a := NewNumberArray(1, 2.5, 3)
	want := "[1.00 2.50 3.00]"
	if a.String() != want {
		t.Errorf("String() = %s, want %s", a.String(), want)
	}
}

func TestNewIntegerArray(t *testing.T) {
	a := NewIntegerArray(1, 2, 3)
	if len(a) != 3 {
		t.Fatalf("len = %d, want 3", len(a))
	}
	if a.PDFString() != "[1 2 3]" {
		t.Errorf("PDFString() = %s, want [1 2 3]", a.PDFString())
	}
}

func TestNewStringLiteralArray(t *testing.T) {
	a := NewStringLiteralArray("foo", "bar")
	want := "[(foo) (bar)]"
	if a.PDFString() != want {
		t.Errorf("PDFString() = %s, want %s", a.PDFString(), want)
	}
}

func TestArrayClone(t *testing.T) {
	a1 := NewIntegerArray(1, 2, 3)
	a2 := a1.Clone().(Array)
	a2[0] = Integer(99)
	if a1[0] != Integer(1) {
		t.Error("mutating a clone should not affect the original array")
	}
}
