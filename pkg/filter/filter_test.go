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

package filter_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/mechiko/pdfdoc/pkg/filter"
	"github.com/stretchr/testify/require"
)

// Encode a test string twice with the same filter, then decode the
// result twice, and expect to land back on the original string.
func encodeDecodeUsingFilterNamed(t *testing.T, filterName string) {
	t.Helper()

	f, err := filter.NewFilter(filterName, nil)
	require.NoError(t, err)

	input := "Hello, Gopher! Hello, Gopher! Hello, Gopher!"

	b1, err := f.Encode(bytes.NewReader([]byte(input)))
	require.NoError(t, err)

	b2, err := f.Encode(b1)
	require.NoError(t, err)

	c1, err := f.Decode(b2)
	require.NoError(t, err)

	c2, err := f.Decode(c1)
	require.NoError(t, err)

	got, err := io.ReadAll(c2)
	require.NoError(t, err)
	require.Equal(t, input, string(got))
}

func TestEncodeDecode(t *testing.T) {
	for _, name := range filter.List() {
		name := name
		t.Run(name, func(t *testing.T) {
			encodeDecodeUsingFilterNamed(t, name)
		})
	}
}

func TestUnsupportedFilter(t *testing.T) {
	_, err := filter.NewFilter("BogusDecode", nil)
	require.ErrorIs(t, err, filter.ErrUnsupportedFilter)
}

func TestPassThroughFilters(t *testing.T) {
	for _, name := range []string{filter.DCT, filter.CCITTFax, filter.JBIG2, filter.JPX} {
		f, err := filter.NewFilter(name, nil)
		require.NoError(t, err)

		raw := []byte{0xFF, 0xD8, 0x00, 0x01, 0x02}
		r, err := f.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, raw, got)
	}
}
