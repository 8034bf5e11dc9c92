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

// Package security implements the PDF standard security handler: RC4-40
// and RC4-128 (r2-r4), AES-128 (r4, CFM AESV2) and AES-256 (r5/r6, CFM
// AESV3), password padding and file-key derivation, per-object key
// derivation, and O/U/OE/UE/Perms computation and validation.
package security

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrWrongPassword is returned by Unlock when neither the user nor the
// owner password validates against the Enc dictionary.
var ErrWrongPassword = errors.New("pdfdoc: wrong password")

// ErrUnsupportedHandler signals an encrypt dictionary this handler cannot
// authenticate or produce: an unknown combination of V, R and /CF.
var ErrUnsupportedHandler = errors.New("pdfdoc: unsupported security handler")

var pad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var nullPad32 = make([]byte, 32)

// Permission bits, ISO 32000-1 Table 22 / ISO 32000-2 Table 22.
const (
	PermPrintLowRes  = 0x0004
	PermModify       = 0x0008
	PermExtractRev2  = 0x0010
	PermAnnotate     = 0x0020
	PermFillForms    = 0x0100
	PermExtractRev3  = 0x0200
	PermModifyAssem  = 0x0400
	PermPrintHighRes = 0x0800
)

// Enc is the PDF encrypt dictionary's content, parametrized over every
// algorithm revision the standard security handler supports.
type Enc struct {
	V   int    // algorithm version
	R   int    // algorithm revision: 2, 3, 4, 5 or 6
	L   int    // key length in bits
	P   int32  // permission flags, a signed 32-bit bitmask per spec
	O   []byte // owner password digest/hash
	U   []byte // user password digest/hash
	OE  []byte // r>=5: AES-256-wrapped file key, owner path
	UE  []byte // r>=5: AES-256-wrapped file key, user path
	Perms []byte // r>=5: encrypted permission/metadata-exemption record
	ID  []byte // first element of the file's /ID array
	Emd bool   // /EncryptMetadata: false exempts metadata streams (r<=4)

	NeedAES bool // true if /CF names an AESV2 or AESV3 CFM
}

// Handler authenticates passwords against, or computes, a PDF encrypt
// dictionary, and performs per-object RC4/AES en-/decryption once a file
// key has been established via Lock or Unlock.
type Handler struct {
	Enc    Enc
	EncKey []byte // the file encryption key, set by Lock or a successful Unlock
}

// NewHandler returns a Handler configured to authenticate/produce enc.
func NewHandler(enc Enc) *Handler {
	return &Handler{Enc: enc}
}

func perms(p int32) []string {
	list := []string{fmt.Sprintf("permission bits: %012b (x%03X)", uint32(p)&0x0F3C, uint32(p)&0x0F3C)}
	list = append(list,
		fmt.Sprintf("Bit  3: %t (print(rev2), print quality(rev>=3))", p&PermPrintLowRes > 0),
		fmt.Sprintf("Bit  4: %t (modify other than controlled by bits 6,9,11)", p&PermModify > 0),
		fmt.Sprintf("Bit  5: %t (extract(rev2), extract other than controlled by bit 10(rev>=3))", p&PermExtractRev2 > 0),
		fmt.Sprintf("Bit  6: %t (add or modify annotations)", p&PermAnnotate > 0),
		fmt.Sprintf("Bit  9: %t (fill in form fields(rev>=3))", p&PermFillForms > 0),
		fmt.Sprintf("Bit 10: %t (extract(rev>=3))", p&PermExtractRev3 > 0),
		fmt.Sprintf("Bit 11: %t (modify(rev>=3))", p&PermModifyAssem > 0),
		fmt.Sprintf("Bit 12: %t (print high-level(rev>=3))", p&PermPrintHighRes > 0),
	)
	return list
}

// PermissionsList renders p as a human-readable line-per-bit report.
// The handler never enforces these flags on a read; it only reports them.
func PermissionsList(p int32) []string {
	if p == 0 {
		return []string{"Full access"}
	}
	return perms(p)
}
