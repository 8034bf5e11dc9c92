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

package security_test

import (
	"testing"

	"github.com/mechiko/pdfdoc/pkg/security"
	"github.com/mechiko/pdfdoc/pkg/types"
	"github.com/stretchr/testify/require"
)

func lockUnlock(t *testing.T, r, keyLength int, needAES bool) {
	t.Helper()

	id, err := func() ([]byte, error) {
		b := make([]byte, 16)
		for i := range b {
			b[i] = byte(i)
		}
		return b, nil
	}()
	require.NoError(t, err)

	enc, key, err := security.Lock("owner-secret", "user-secret", security.LockParams{
		R:         r,
		KeyLength: keyLength,
		P:         security.PermPrintLowRes | security.PermModify,
		ID:        id,
		Emd:       true,
		NeedAES:   needAES,
	})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	h := security.NewHandler(enc)
	require.NoError(t, h.Unlock("user-secret", ""))
	require.Equal(t, key, h.EncKey)

	h2 := security.NewHandler(enc)
	require.NoError(t, h2.Unlock("", "owner-secret"))
	require.Equal(t, key, h2.EncKey)

	h3 := security.NewHandler(enc)
	err = h3.Unlock("wrong-password-entirely", "also-wrong")
	require.ErrorIs(t, err, security.ErrWrongPassword)
}

func TestLockUnlockRC4_40(t *testing.T) {
	lockUnlock(t, 2, 40, false)
}

func TestLockUnlockRC4_128(t *testing.T) {
	lockUnlock(t, 3, 128, false)
}

func TestLockUnlockAES128(t *testing.T) {
	lockUnlock(t, 4, 128, true)
}

func TestLockUnlockAES256_R5(t *testing.T) {
	lockUnlock(t, 5, 256, true)
}

func TestLockUnlockAES256_R6(t *testing.T) {
	lockUnlock(t, 6, 256, true)
}

func TestEncryptDecryptStringLiteralRoundTrip(t *testing.T) {
	enc, key, err := security.Lock("owner", "user", security.LockParams{
		R: 4, KeyLength: 128, P: 0, ID: []byte("0123456789abcdef"), Emd: true, NeedAES: true,
	})
	require.NoError(t, err)

	h := security.NewHandler(enc)
	h.EncKey = key

	d := types.NewDict()
	d.InsertString("Title", "a secret title")

	require.NoError(t, h.EncryptDict(d, 7, 0))
	encrypted, _ := d.Find("Title")
	sl, ok := encrypted.(types.StringLiteral)
	require.True(t, ok)
	require.NotEqual(t, "a secret title", sl.Value())

	require.NoError(t, h.DecryptDict(d, 7, 0))
	decrypted, _ := d.Find("Title")
	require.Equal(t, types.StringLiteral("a secret title"), decrypted)
}

func TestEncryptDictSkipsSignatureContents(t *testing.T) {
	enc, key, err := security.Lock("owner", "user", security.LockParams{
		R: 4, KeyLength: 128, P: 0, ID: []byte("0123456789abcdef"), Emd: true, NeedAES: true,
	})
	require.NoError(t, err)

	h := security.NewHandler(enc)
	h.EncKey = key

	d := types.NewDict()
	d.InsertName("Type", "Sig")
	d.InsertString("Contents", "raw signature bytes")

	require.NoError(t, h.EncryptDict(d, 1, 0))
	contents, _ := d.Find("Contents")
	require.Equal(t, types.StringLiteral("raw signature bytes"), contents)
}

func TestLockRev6Succeeds(t *testing.T) {
	_, key, err := security.Lock("owner", "user", security.LockParams{
		R: 6, KeyLength: 256, P: security.PermModify, ID: []byte("0123456789abcdef"), Emd: true, NeedAES: true,
	})
	require.NoError(t, err)
	_ = key
}

func TestPermissionsListFullAccess(t *testing.T) {
	require.Equal(t, []string{"Full access"}, security.PermissionsList(0))
}

func TestPermissionsListReportsBits(t *testing.T) {
	list := security.PermissionsList(security.PermModify)
	require.Contains(t, list[0], "permission bits")
}

func TestNewEncryptDictRendersFields(t *testing.T) {
	enc, _, err := security.Lock("owner", "user", security.LockParams{
		R: 4, KeyLength: 128, P: 0, ID: []byte("0123456789abcdef"), Emd: true, NeedAES: true,
	})
	require.NoError(t, err)

	d := security.NewEncryptDict(enc)
	require.Equal(t, "Standard", *d.NameEntry("Filter"))
	require.Equal(t, 4, *d.IntEntry("V"))
	require.Equal(t, 4, *d.IntEntry("R"))
}
