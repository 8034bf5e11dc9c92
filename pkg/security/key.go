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
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"io"

	"github.com/pkg/errors"
)

func padPassword(pw []byte) []byte {
	if len(pw) >= 32 {
		return pw[:32]
	}
	out := make([]byte, 32)
	copy(out, pw)
	copy(out[len(pw):], pad[:32-len(pw)])
	return out
}

// fileKey derives the file encryption key from the user password per
// ISO 32000-1 Algorithm 2, r in {2,3,4}.
func fileKey(userpw string, e Enc) []byte {
	pw := padPassword([]byte(userpw))

	h := md5.New()
	h.Write(pw)
	h.Write(e.O)

	q := uint32(e.P)
	h.Write([]byte{byte(q), byte(q >> 8), byte(q >> 16), byte(q >> 24)})

	h.Write(e.ID)

	if e.R == 4 && !e.Emd {
		h.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}

	key := h.Sum(nil)

	if e.R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key[:e.L/8])
			key = h.Sum(nil)
		}
	}

	if e.R >= 3 {
		key = key[:e.L/8]
	} else {
		key = key[:5]
	}

	return key
}

// ownerKey derives the RC4 key used to obscure the owner password into
// the /O entry, per ISO 32000-1 Algorithm 3 steps a-d.
func ownerKey(ownerpw, userpw string, r, l int) []byte {
	pw := []byte(ownerpw)
	if len(pw) == 0 {
		pw = []byte(userpw)
	}
	pw = padPassword(pw)

	h := md5.New()
	h.Write(pw)
	key := h.Sum(nil)

	if r >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key)
			key = h.Sum(nil)
		}
	}

	if r >= 3 {
		key = key[:l/8]
	} else {
		key = key[:5]
	}

	return key
}

// computeO calculates the owner password digest (/O entry), ISO 32000-1
// Algorithm 3.
func computeO(ownerpw, userpw string, e Enc) ([]byte, error) {
	key := ownerKey(ownerpw, userpw, e.R, e.L)

	o := padPassword([]byte(userpw))

	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	c.XORKeyStream(o, o)

	if e.R >= 3 {
		for i := 1; i <= 19; i++ {
			keynew := xorKeyRound(key, i)
			c, err := rc4.NewCipher(keynew)
			if err != nil {
				return nil, err
			}
			c.XORKeyStream(o, o)
		}
	}

	return o, nil
}

func xorKeyRound(key []byte, i int) []byte {
	keynew := make([]byte, len(key))
	copy(keynew, key)
	for j := range keynew {
		keynew[j] ^= byte(i)
	}
	return keynew
}

// computeU calculates the user password digest (/U entry) and the file
// key, ISO 32000-1 Algorithm 4 (r=2) / Algorithm 5 (r=3,4).
func computeU(userpw string, e Enc) (u, key []byte, err error) {
	key = fileKey(userpw, e)

	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	switch e.R {
	case 2:
		u = make([]byte, 32)
		copy(u, pad)
		c.XORKeyStream(u, u)

	case 3, 4:
		h := md5.New()
		h.Write(pad)
		h.Write(e.ID)
		u = h.Sum(nil)

		c.XORKeyStream(u, u)

		for i := 1; i <= 19; i++ {
			keynew := xorKeyRound(key, i)
			c, err = rc4.NewCipher(keynew)
			if err != nil {
				return nil, nil, err
			}
			c.XORKeyStream(u, u)
		}
	}

	if len(u) < 32 {
		u = append(u, nullPad32[:32-len(u)]...)
	}

	return u, key, nil
}

// ValidateUserPassword checks userpw against e for r in {2,3,4} and, on
// success, returns the derived file key.
func ValidateUserPassword(userpw string, e Enc) (ok bool, key []byte, err error) {
	u, key, err := computeU(userpw, e)
	if err != nil {
		return false, nil, err
	}

	switch e.R {
	case 2:
		ok = bytes.Equal(e.U, u)
	case 3, 4:
		ok = bytes.HasPrefix(e.U, u[:16])
	}

	return ok, key, nil
}

// ValidateOwnerPassword checks ownerpw against e for r in {2,3,4} by
// recovering the user password it was derived from and validating that,
// returning the derived file key on success.
func ValidateOwnerPassword(ownerpw, fallbackUserpw string, e Enc) (ok bool, key []byte, err error) {
	okey := ownerKey(ownerpw, fallbackUserpw, e.R, e.L)

	upw := make([]byte, len(e.O))
	copy(upw, e.O)

	c, err := rc4.NewCipher(okey)
	if err != nil {
		return false, nil, err
	}

	if e.R == 2 {
		c.XORKeyStream(upw, upw)
	} else {
		for i := 19; i >= 0; i-- {
			keynew := xorKeyRound(okey, i)
			c, err := rc4.NewCipher(keynew)
			if err != nil {
				return false, nil, err
			}
			c.XORKeyStream(upw, upw)
		}
	}

	return ValidateUserPassword(string(upw), e)
}

// objectKey derives the per-object RC4/AES key from the file key, ISO
// 32000-1 Algorithm 1 steps a-c.
func objectKey(objNr, genNr int, fileKey []byte, needAES bool) []byte {
	m := md5.New()

	b := append([]byte{}, fileKey...)

	nr := uint32(objNr)
	b = append(b, byte(nr), byte(nr>>8), byte(nr>>16))

	gen := uint16(genNr)
	b = append(b, byte(gen), byte(gen>>8))

	m.Write(b)

	if needAES {
		m.Write([]byte("sAlT"))
	}

	dk := m.Sum(nil)

	l := len(fileKey) + 5
	if l < 16 {
		dk = dk[:l]
	}

	return dk
}

// EncryptBytes encrypts b for (objNr, genNr) using RC4 or AES-CBC,
// deriving the per-object key unless r is 5 or 6 (where the file key is
// used directly).
func EncryptBytes(b []byte, objNr, genNr int, fileKey []byte, needAES bool, r int) ([]byte, error) {
	k := fileKey
	if r != 5 && r != 6 {
		k = objectKey(objNr, genNr, fileKey, needAES)
	}
	if needAES {
		return encryptAESBytes(b, k)
	}
	return applyRC4(b, k)
}

// DecryptBytes is the inverse of EncryptBytes.
func DecryptBytes(b []byte, objNr, genNr int, fileKey []byte, needAES bool, r int) ([]byte, error) {
	k := fileKey
	if r != 5 && r != 6 {
		k = objectKey(objNr, genNr, fileKey, needAES)
	}
	if needAES {
		return decryptAESBytes(b, k)
	}
	return applyRC4(b, k)
}

func applyRC4(b, key []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	c.XORKeyStream(out, b)
	return out, nil
}

// encryptAESBytes PKCS#7-pads b to the AES block size, prepends a fresh
// random IV, and CBC-encrypts.
func encryptAESBytes(b, key []byte) ([]byte, error) {
	l := len(b) % aes.BlockSize
	c := aes.BlockSize
	if l > 0 {
		c = aes.BlockSize - l
	}
	b = append(b, bytes.Repeat([]byte{byte(c)}, c)...)

	data := make([]byte, aes.BlockSize+len(b))
	iv := data[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}

	cb, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	cipher.NewCBCEncrypter(cb, iv).CryptBlocks(data[aes.BlockSize:], b)

	return data, nil
}

// decryptAESBytes consumes the leading 16 bytes of b as the IV,
// CBC-decrypts the remainder, and strips PKCS#7 padding.
func decryptAESBytes(b, key []byte) ([]byte, error) {
	if len(b) < aes.BlockSize {
		return nil, errors.New("pdfdoc: decryptAESBytes: ciphertext too short")
	}
	if len(b)%aes.BlockSize > 0 {
		return nil, errors.New("pdfdoc: decryptAESBytes: ciphertext not a multiple of the block size")
	}

	cb, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, b[:aes.BlockSize])

	data := make([]byte, len(b)-aes.BlockSize)
	cipher.NewCBCDecrypter(cb, iv).CryptBlocks(data, b[aes.BlockSize:])

	// Not every AES ciphertext is correctly padded in the wild.
	if n := len(data); n > 0 && data[n-1] <= aes.BlockSize {
		data = data[:n-int(data[n-1])]
	}

	return data, nil
}
