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
	"io"

	"github.com/mechiko/pdfdoc/pkg/types"
	"github.com/pkg/errors"
)

// randBytes reads n bytes of OS entropy. No insecure fallback.
func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, errors.Wrap(err, "pdfdoc: reading random bytes")
	}
	return b, nil
}

// Unlock tries userpw then ownerpw (falling back to userpw as the
// recovery seed for the owner path, per Algorithm 3 step b), establishing
// h.EncKey on success. A caller wanting the "up to three attempts" policy
// from the spec invokes Unlock itself up to three times; ErrWrongPassword
// on the third failure should surface as an AuthError to the caller.
func (h *Handler) Unlock(userpw, ownerpw string) error {
	ok, key, err := h.validateUser(userpw)
	if err != nil {
		return err
	}
	if !ok {
		ok, key, err = h.validateOwner(ownerpw, userpw)
		if err != nil {
			return err
		}
	}
	if !ok {
		return ErrWrongPassword
	}

	h.EncKey = key
	return nil
}

func (h *Handler) validateUser(userpw string) (bool, []byte, error) {
	switch h.Enc.R {
	case 2, 3, 4:
		return ValidateUserPassword(userpw, h.Enc)
	case 5:
		return ValidateUserPasswordAES256(userpw, h.Enc)
	case 6:
		return ValidateUserPasswordRev6(userpw, h.Enc)
	default:
		return false, nil, ErrUnsupportedHandler
	}
}

func (h *Handler) validateOwner(ownerpw, userpw string) (bool, []byte, error) {
	switch h.Enc.R {
	case 2, 3, 4:
		return ValidateOwnerPassword(ownerpw, userpw, h.Enc)
	case 5:
		return ValidateOwnerPasswordAES256(ownerpw, h.Enc)
	case 6:
		return ValidateOwnerPasswordRev6(ownerpw, h.Enc)
	default:
		return false, nil, ErrUnsupportedHandler
	}
}

// LockParams configures Lock: the revision to produce (2, 3, 4, 5 or 6),
// the key length in bits (40 for r=2, otherwise 128 or 256), the
// permission bitmask, the first element of the file's /ID array, and
// whether /EncryptMetadata is honored (r<=4 only).
type LockParams struct {
	R       int
	KeyLength int
	P       int32
	ID      []byte
	Emd     bool
	NeedAES bool
}

// Lock computes a fresh Enc for (ownerpw, userpw) and returns it with
// the file key, generating the file key via the OS CSPRNG for r>=5 or
// via Algorithm 2 for r<=4.
func Lock(ownerpw, userpw string, p LockParams) (Enc, []byte, error) {
	e := Enc{
		V:   2,
		R:   p.R,
		L:   p.KeyLength,
		P:   p.P,
		ID:  p.ID,
		Emd: p.Emd,
		NeedAES: p.NeedAES,
	}
	if p.R >= 4 {
		e.V = 4
	}
	if p.R >= 5 {
		e.V = 5
	}

	if p.R <= 4 {
		u, key, err := computeU(userpw, e)
		if err != nil {
			return Enc{}, nil, err
		}
		e.U = u

		o, err := computeO(ownerpw, userpw, e)
		if err != nil {
			return Enc{}, nil, err
		}
		e.O = o

		return e, key, nil
	}

	key, err := randBytes(32)
	if err != nil {
		return Enc{}, nil, err
	}

	rev6 := p.R == 6
	u, ue, err := computeUAES256(userpw, key, rev6, randBytes)
	if err != nil {
		return Enc{}, nil, err
	}
	e.U, e.UE = u, ue

	o, oe, err := computeOAES256(ownerpw, key, u, rev6, randBytes)
	if err != nil {
		return Enc{}, nil, err
	}
	e.O, e.OE = o, oe

	return e, key, nil
}

// NewEncryptDict renders e as the PDF /Encrypt dictionary.
func NewEncryptDict(e Enc) types.Dict {
	d := types.NewDict()
	d.InsertName("Filter", "Standard")
	d.InsertInt("V", e.V)
	d.InsertInt("R", e.R)
	d.InsertInt("Length", e.L)
	d.Insert("P", types.Integer(e.P))
	d.Insert("O", types.NewHexLiteral(e.O))
	d.Insert("U", types.NewHexLiteral(e.U))

	if e.R >= 5 {
		d.Insert("OE", types.NewHexLiteral(e.OE))
		d.Insert("UE", types.NewHexLiteral(e.UE))
		if e.Perms != nil {
			d.Insert("Perms", types.NewHexLiteral(e.Perms))
		}
	}

	if e.R == 4 && !e.Emd {
		d.Insert("EncryptMetadata", types.Boolean(false))
	}

	if e.R >= 4 {
		cf := types.NewDict()
		cfm := "V2"
		if e.NeedAES {
			cfm = "AESV2"
			if e.R >= 5 {
				cfm = "AESV3"
			}
		}
		stdCF := types.NewDict()
		stdCF.InsertName("CFM", cfm)
		stdCF.InsertName("AuthEvent", "DocOpen")
		stdCF.InsertInt("Length", e.L/8)
		cf.Insert("StdCF", stdCF)
		d.Insert("CF", cf)
		d.InsertName("StmF", "StdCF")
		d.InsertName("StrF", "StdCF")
	}

	return d
}

// writePermissionsRecord computes the /Perms entry, ISO 32000-2 Algorithm
// 3.10: an AES-256-ECB-equivalent (CBC with a zero IV, one block, so
// equivalent to ECB for a single block) encryption of an 8-byte
// permission bitmask, a 'T' (or 'F' when /EncryptMetadata is false),
// the ASCII marker "adb", and 4 random pad bytes.
func writePermissionsRecord(p int32, emd bool, fileKey []byte) ([]byte, error) {
	b := make([]byte, 16)
	q := uint32(p)
	b[0], b[1], b[2], b[3] = byte(q), byte(q>>8), byte(q>>16), byte(q>>24)
	b[4] = 0xff
	b[5] = 0xff
	b[6] = 0xff
	b[7] = 0xff
	b[8] = 'T'
	if !emd {
		b[8] = 'F'
	}
	b[9], b[10], b[11] = 'a', 'd', 'b'

	rnd, err := randBytes(4)
	if err != nil {
		return nil, err
	}
	copy(b[12:], rnd)

	cb, err := aes.NewCipher(fileKey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	cipher.NewCBCEncrypter(cb, make([]byte, 16)).CryptBlocks(out, b)
	return out, nil
}

// validatePermissionsRecord checks /Perms against p and emd, ISO 32000-2
// Algorithm 3.2a step 5.
func validatePermissionsRecord(perms []byte, p int32, emd bool, fileKey []byte) (bool, error) {
	if len(perms) != 16 {
		return false, errors.New("pdfdoc: /Perms must be 16 bytes")
	}

	cb, err := aes.NewCipher(fileKey)
	if err != nil {
		return false, err
	}
	b := make([]byte, 16)
	cipher.NewCBCDecrypter(cb, make([]byte, 16)).CryptBlocks(b, perms)

	if b[9] != 'a' || b[10] != 'd' || b[11] != 'b' {
		return false, nil
	}

	want := byte('T')
	if !emd {
		want = 'F'
	}
	if b[8] != want {
		return false, nil
	}

	got := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	return got == p, nil
}

func isSignatureDict(d types.Dict) bool {
	ft := d.NameEntry("FT")
	if ft == nil {
		ft = d.NameEntry("Type")
	}
	return ft != nil && (*ft == "Sig" || *ft == "DocTimeStamp")
}

// EncryptDict encrypts every string/hex-literal value in d, recursing
// into nested arrays/dicts, using the per-object key for (objNr, genNr).
// Signature dictionaries are exempted from encrypting /Contents, since
// a signature's byte range is computed over the unencrypted file bytes.
func (h *Handler) EncryptDict(d types.Dict, objNr, genNr int) error {
	isSig := isSignatureDict(d)
	for _, k := range d.Keys() {
		if isSig && k == "Contents" {
			continue
		}
		v, _ := d.Find(k)
		s, err := h.encryptDeepObject(v, objNr, genNr)
		if err != nil {
			return err
		}
		if s != nil {
			d.Update(k, s)
		}
	}
	return nil
}

// DecryptDict is the inverse of EncryptDict.
func (h *Handler) DecryptDict(d types.Dict, objNr, genNr int) error {
	isSig := isSignatureDict(d)
	for _, k := range d.Keys() {
		if isSig && k == "Contents" {
			continue
		}
		v, _ := d.Find(k)
		s, err := h.decryptDeepObject(v, objNr, genNr)
		if err != nil {
			return err
		}
		if s != nil {
			d.Update(k, s)
		}
	}
	return nil
}

func (h *Handler) encryptDeepObject(objIn types.Object, objNr, genNr int) (types.Object, error) {
	if _, ok := objIn.(types.IndirectRef); ok {
		return nil, nil
	}

	switch obj := objIn.(type) {

	case types.StreamDict:
		if err := h.EncryptDict(obj.Dict, objNr, genNr); err != nil {
			return nil, err
		}
		return obj, nil

	case types.Dict:
		if err := h.EncryptDict(obj, objNr, genNr); err != nil {
			return nil, err
		}
		return obj, nil

	case types.Array:
		for i, v := range obj {
			s, err := h.encryptDeepObject(v, objNr, genNr)
			if err != nil {
				return nil, err
			}
			if s != nil {
				obj[i] = s
			}
		}
		return obj, nil

	case types.StringLiteral:
		s, err := h.encryptStringLiteral(obj, objNr, genNr)
		if err != nil {
			return nil, err
		}
		return *s, nil

	case types.HexLiteral:
		s, err := h.encryptHexLiteral(obj, objNr, genNr)
		if err != nil {
			return nil, err
		}
		return *s, nil
	}

	return nil, nil
}

func (h *Handler) decryptDeepObject(objIn types.Object, objNr, genNr int) (types.Object, error) {
	if _, ok := objIn.(types.IndirectRef); ok {
		return nil, nil
	}

	switch obj := objIn.(type) {

	case types.StreamDict:
		if err := h.DecryptDict(obj.Dict, objNr, genNr); err != nil {
			return nil, err
		}
		return obj, nil

	case types.Dict:
		if err := h.DecryptDict(obj, objNr, genNr); err != nil {
			return nil, err
		}
		return obj, nil

	case types.Array:
		for i, v := range obj {
			s, err := h.decryptDeepObject(v, objNr, genNr)
			if err != nil {
				return nil, err
			}
			if s != nil {
				obj[i] = s
			}
		}
		return obj, nil

	case types.StringLiteral:
		s, err := h.decryptStringLiteral(obj, objNr, genNr)
		if err != nil {
			return nil, err
		}
		return *s, nil

	case types.HexLiteral:
		s, err := h.decryptHexLiteral(obj, objNr, genNr)
		if err != nil {
			return nil, err
		}
		return *s, nil
	}

	return nil, nil
}

func (h *Handler) encryptStringLiteral(sl types.StringLiteral, objNr, genNr int) (*types.StringLiteral, error) {
	bb, err := types.Unescape(sl.Value())
	if err != nil {
		return nil, err
	}

	bb, err = EncryptBytes(bb, objNr, genNr, h.EncKey, h.Enc.NeedAES, h.Enc.R)
	if err != nil {
		return nil, err
	}

	s, err := types.Escape(string(bb))
	if err != nil {
		return nil, err
	}

	res := types.StringLiteral(*s)
	return &res, nil
}

func (h *Handler) decryptStringLiteral(sl types.StringLiteral, objNr, genNr int) (*types.StringLiteral, error) {
	if sl.Value() == "" {
		return &sl, nil
	}

	bb, err := types.Unescape(sl.Value())
	if err != nil {
		return nil, err
	}

	bb, err = DecryptBytes(bb, objNr, genNr, h.EncKey, h.Enc.NeedAES, h.Enc.R)
	if err != nil {
		return nil, err
	}

	s, err := types.Escape(string(bb))
	if err != nil {
		return nil, err
	}

	res := types.StringLiteral(*s)
	return &res, nil
}

func (h *Handler) encryptHexLiteral(hl types.HexLiteral, objNr, genNr int) (*types.HexLiteral, error) {
	bb, err := hl.Bytes()
	if err != nil {
		return nil, err
	}

	bb, err = EncryptBytes(bb, objNr, genNr, h.EncKey, h.Enc.NeedAES, h.Enc.R)
	if err != nil {
		return nil, err
	}

	res := types.NewHexLiteral(bb)
	return &res, nil
}

func (h *Handler) decryptHexLiteral(hl types.HexLiteral, objNr, genNr int) (*types.HexLiteral, error) {
	if hl.Value() == "" {
		return &hl, nil
	}

	bb, err := hl.Bytes()
	if err != nil {
		return nil, err
	}

	bb, err = DecryptBytes(bb, objNr, genNr, h.EncKey, h.Enc.NeedAES, h.Enc.R)
	if err != nil {
		return nil, err
	}

	res := types.NewHexLiteral(bb)
	return &res, nil
}

// EncryptStream encrypts a stream's already-filter-encoded raw bytes.
func (h *Handler) EncryptStream(raw []byte, objNr, genNr int) ([]byte, error) {
	return EncryptBytes(raw, objNr, genNr, h.EncKey, h.Enc.NeedAES, h.Enc.R)
}

// DecryptStream is the inverse of EncryptStream.
func (h *Handler) DecryptStream(raw []byte, objNr, genNr int) ([]byte, error) {
	return DecryptBytes(raw, objNr, genNr, h.EncKey, h.Enc.NeedAES, h.Enc.R)
}

// FileID derives a fresh, non-reproducible /ID entry from arbitrary
// document metadata bytes and the current time, MD5-digested. The
// result need not be cryptographically significant; it only has to be
// unlikely to collide across files.
func FileID(seed []byte, nowUnixNano int64) types.HexLiteral {
	var b bytes.Buffer
	b.Write(seed)
	n := uint64(nowUnixNano)
	for i := 0; i < 8; i++ {
		b.WriteByte(byte(n >> (8 * i)))
	}
	sum := md5.Sum(b.Bytes())
	return types.NewHexLiteral(sum[:])
}
