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

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"math/big"

	"golang.org/x/text/secure/precis"
	"golang.org/x/text/unicode/norm"
)

// validationSalt and keySalt split out of the 48-byte /O or /U entry:
// bytes 0-31 are the hash, 32-39 the validation salt, 40-47 the key salt.
func validationSalt(bb []byte) []byte { return bb[32:40] }
func keySalt(bb []byte) []byte        { return bb[40:] }

// processInput applies the SASLprep profile (RFC 4013) of stringprep
// (RFC 3454) to a password, as ISO 32000-2 Algorithm 2.A requires for
// r=6 before any hashing.
func processInput(input string) ([]byte, error) {
	p := precis.NewIdentifier(
		precis.BidiRule,
		precis.Norm(norm.NFKC),
	)

	output, err := p.String(input)
	if err != nil {
		return nil, err
	}

	return []byte(output), nil
}

func truncate127(b []byte) []byte {
	if len(b) > 127 {
		return b[:127]
	}
	return b
}

func decryptAES256NoIV(key, ciphertext []byte) ([]byte, error) {
	cb, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, 16)
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(cb, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// ValidateUserPasswordAES256 checks userpw for r=5, returning the file key.
func ValidateUserPasswordAES256(userpw string, e Enc) (ok bool, fileKey []byte, err error) {
	upw, err := processInput(userpw)
	if err != nil {
		return false, nil, err
	}
	upw = truncate127(upw)

	s := sha256.Sum256(append(append([]byte{}, upw...), validationSalt(e.U)...))
	if !bytes.HasPrefix(e.U, s[:]) {
		return false, nil, nil
	}

	key := sha256.Sum256(append(append([]byte{}, upw...), keySalt(e.U)...))
	fileKey, err = decryptAES256NoIV(key[:], e.UE)
	return true, fileKey, err
}

// ValidateOwnerPasswordAES256 checks ownerpw for r=5, returning the file key.
func ValidateOwnerPasswordAES256(ownerpw string, e Enc) (ok bool, fileKey []byte, err error) {
	if len(ownerpw) == 0 {
		return false, nil, nil
	}

	opw, err := processInput(ownerpw)
	if err != nil {
		return false, nil, err
	}
	opw = truncate127(opw)

	b := append(append([]byte{}, opw...), validationSalt(e.O)...)
	b = append(b, e.U...)
	s := sha256.Sum256(b)
	if !bytes.HasPrefix(e.O, s[:]) {
		return false, nil, nil
	}

	b = append(append([]byte{}, opw...), keySalt(e.O)...)
	b = append(b, e.U...)
	key := sha256.Sum256(b)
	fileKey, err = decryptAES256NoIV(key[:], e.OE)
	return true, fileKey, err
}

// hashRev6 implements ISO 32000-2 Algorithm 2.B, the iterative hash used
// for r=6 password validation and key derivation.
func hashRev6(input, pw, U []byte) ([]byte, error) {
	mod3 := new(big.Int).SetUint64(3)

	k0 := sha256.Sum256(input)
	k := k0[:]

	var e []byte
	for j := 0; j < 64 || e[len(e)-1] > byte(j-32); j++ {
		bb := append(append([]byte{}, pw...), k...)
		if len(U) > 0 {
			bb = append(bb, U...)
		}

		var k1 []byte
		for i := 0; i < 64; i++ {
			k1 = append(k1, bb...)
		}

		cb, err := aes.NewCipher(k[:16])
		if err != nil {
			return nil, err
		}

		iv := k[16:32]
		e = make([]byte, len(k1))
		cipher.NewCBCEncrypter(cb, iv).CryptBlocks(e, k1)

		r := new(big.Int).Mod(new(big.Int).SetBytes(e[:16]), mod3).Uint64()

		switch r {
		case 0:
			k0 := sha256.Sum256(e)
			k = k0[:]
		case 1:
			k0 := sha512.Sum384(e)
			k = k0[:]
		case 2:
			k0 := sha512.Sum512(e)
			k = k0[:]
		}
	}

	return k[:32], nil
}

// ValidateUserPasswordRev6 checks userpw for r=6, returning the file key.
func ValidateUserPasswordRev6(userpw string, e Enc) (ok bool, fileKey []byte, err error) {
	upw, err := processInput(userpw)
	if err != nil {
		return false, nil, err
	}
	upw = truncate127(upw)

	bb := append(append([]byte{}, upw...), validationSalt(e.U)...)
	s, err := hashRev6(bb, upw, nil)
	if err != nil {
		return false, nil, err
	}
	if !bytes.HasPrefix(e.U, s) {
		return false, nil, nil
	}

	bb = append(append([]byte{}, upw...), keySalt(e.U)...)
	key, err := hashRev6(bb, upw, nil)
	if err != nil {
		return false, nil, err
	}

	fileKey, err = decryptAES256NoIV(key, e.UE)
	return true, fileKey, err
}

// ValidateOwnerPasswordRev6 checks ownerpw for r=6, returning the file key.
func ValidateOwnerPasswordRev6(ownerpw string, e Enc) (ok bool, fileKey []byte, err error) {
	if len(ownerpw) == 0 {
		return false, nil, nil
	}

	opw, err := processInput(ownerpw)
	if err != nil {
		return false, nil, err
	}
	opw = truncate127(opw)

	bb := append(append([]byte{}, opw...), validationSalt(e.O)...)
	bb = append(bb, e.U...)
	s, err := hashRev6(bb, opw, e.U)
	if err != nil {
		return false, nil, err
	}
	if !bytes.HasPrefix(e.O, s) {
		return false, nil, nil
	}

	bb = append(append([]byte{}, opw...), keySalt(e.O)...)
	bb = append(bb, e.U...)
	key, err := hashRev6(bb, opw, e.U)
	if err != nil {
		return false, nil, err
	}

	fileKey, err = decryptAES256NoIV(key, e.OE)
	return true, fileKey, err
}

// computeUAES256 produces the /U and /UE entries for r=5/r=6, ISO
// 32000-2 Algorithm 8 (r=6 replaces SHA-256 with hashRev6 for the
// validation/key hashes; the salt-and-wrap structure is identical).
func computeUAES256(userpw string, fileKey []byte, rev6 bool, randBytes func(n int) ([]byte, error)) (u, ue []byte, err error) {
	upw, err := processInput(userpw)
	if err != nil {
		return nil, nil, err
	}
	upw = truncate127(upw)

	salts, err := randBytes(16)
	if err != nil {
		return nil, nil, err
	}
	vSalt, kSalt := salts[:8], salts[8:]

	var hash []byte
	if rev6 {
		hash, err = hashRev6(append(append([]byte{}, upw...), vSalt...), upw, nil)
	} else {
		h := sha256.Sum256(append(append([]byte{}, upw...), vSalt...))
		hash = h[:]
	}
	if err != nil {
		return nil, nil, err
	}

	u = append(append([]byte{}, hash...), salts...)

	var keyHash []byte
	if rev6 {
		keyHash, err = hashRev6(append(append([]byte{}, upw...), kSalt...), upw, nil)
	} else {
		h := sha256.Sum256(append(append([]byte{}, upw...), kSalt...))
		keyHash = h[:]
	}
	if err != nil {
		return nil, nil, err
	}

	cb, err := aes.NewCipher(keyHash)
	if err != nil {
		return nil, nil, err
	}
	ue = make([]byte, len(fileKey))
	cipher.NewCBCEncrypter(cb, make([]byte, 16)).CryptBlocks(ue, fileKey)

	return u, ue, nil
}

// computeOAES256 produces the /O and /OE entries for r=5/r=6. Must be
// called after computeUAES256 - the hash folds in the already-computed U.
func computeOAES256(ownerpw string, fileKey, u []byte, rev6 bool, randBytes func(n int) ([]byte, error)) (o, oe []byte, err error) {
	opw, err := processInput(ownerpw)
	if err != nil {
		return nil, nil, err
	}
	opw = truncate127(opw)

	salts, err := randBytes(16)
	if err != nil {
		return nil, nil, err
	}
	vSalt, kSalt := salts[:8], salts[8:]

	var hash []byte
	if rev6 {
		hash, err = hashRev6(append(append(append([]byte{}, opw...), vSalt...), u...), opw, u)
	} else {
		h := sha256.Sum256(append(append(append([]byte{}, opw...), vSalt...), u...))
		hash = h[:]
	}
	if err != nil {
		return nil, nil, err
	}

	o = append(append([]byte{}, hash...), salts...)

	var keyHash []byte
	if rev6 {
		keyHash, err = hashRev6(append(append(append([]byte{}, opw...), kSalt...), u...), opw, u)
	} else {
		h := sha256.Sum256(append(append(append([]byte{}, opw...), kSalt...), u...))
		keyHash = h[:]
	}
	if err != nil {
		return nil, nil, err
	}

	cb, err := aes.NewCipher(keyHash)
	if err != nil {
		return nil, nil, err
	}
	oe = make([]byte, len(fileKey))
	cipher.NewCBCEncrypter(cb, make([]byte, 16)).CryptBlocks(oe, fileKey)

	return o, oe, nil
}
