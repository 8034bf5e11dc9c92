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

package filter

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlateRoundTrip(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again")

	f := flate{baseFilter{}}

	enc, err := f.Encode(bytes.NewReader(input))
	require.NoError(t, err)

	dec, err := f.Decode(enc)
	require.NoError(t, err)

	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, input, got)
}

func TestFlateDecodeLength(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")

	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	_, err := w.Write(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f := flate{baseFilter{}}
	dec, err := f.DecodeLength(bytes.NewReader(b.Bytes()), 5)
	require.NoError(t, err)

	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, input[:5], got)
}

// TestFlatePNGUpPredictor exercises the PNG "up" row filter, the
// simplest of the predictor family that differs from raw passthrough.
func TestFlatePNGUpPredictor(t *testing.T) {
	colors, bpc, columns := 1, 8, 4

	rows := [][]byte{
		{10, 20, 30, 40},
		{1, 1, 1, 1},
		{5, 5, 5, 5},
	}

	var raw bytes.Buffer
	prev := make([]byte, columns)
	for _, row := range rows {
		raw.WriteByte(PNGUp)
		for i, v := range row {
			raw.WriteByte(v - prev[i])
		}
		prev = row
	}

	var zbuf bytes.Buffer
	w := zlib.NewWriter(&zbuf)
	_, err := w.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f := flate{baseFilter{parms: map[string]int{
		"Predictor":        PredictorUp,
		"Colors":           colors,
		"BitsPerComponent": bpc,
		"Columns":          columns,
	}}}

	dec, err := f.Decode(bytes.NewReader(zbuf.Bytes()))
	require.NoError(t, err)

	got, err := io.ReadAll(dec)
	require.NoError(t, err)

	var want []byte
	for _, row := range rows {
		want = append(want, row...)
	}
	require.Equal(t, want, got)
}
