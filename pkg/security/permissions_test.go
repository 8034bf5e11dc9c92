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

package security

import "testing"

func TestPermissionsRecordEncodeDecode(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}

	p := int32(PermModify | PermPrintHighRes)

	rec, err := writePermissionsRecord(p, true, key)
	if err != nil {
		t.Fatalf("writePermissionsRecord: %v", err)
	}
	if len(rec) != 16 {
		t.Fatalf("expected 16-byte record, got %d", len(rec))
	}

	ok, err := validatePermissionsRecord(rec, p, true, key)
	if err != nil {
		t.Fatalf("validatePermissionsRecord: %v", err)
	}
	if !ok {
		t.Fatal("expected permissions record to validate")
	}

	ok, err = validatePermissionsRecord(rec, p, false, key)
	if err != nil {
		t.Fatalf("validatePermissionsRecord: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched EncryptMetadata flag to fail validation")
	}

	ok, err = validatePermissionsRecord(rec, PermAnnotate, true, key)
	if err != nil {
		t.Fatalf("validatePermissionsRecord: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched permission bits to fail validation")
	}
}
