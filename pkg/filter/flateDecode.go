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

	"github.com/mechiko/pdfdoc/pkg/log"
	"github.com/pkg/errors"
)

// Portions of the row-prediction logic mirror image/png's reader.go
// readImagePass; PNG filtering is documented at www.w3.org/TR/PNG-Filters.html.

// Predictor algorithm identifiers, as used by the /DecodeParms /Predictor entry.
const (
	PredictorNo      = 1  // No prediction.
	PredictorTIFF    = 2  // TIFF prediction (horizontal differencing) for all rows.
	PredictorNone    = 10 // PNG "none" filter for all rows.
	PredictorSub     = 11 // PNG "sub" filter for all rows.
	PredictorUp      = 12 // PNG "up" filter for all rows.
	PredictorAverage = 13 // PNG "average" filter for all rows.
	PredictorPaeth   = 14 // PNG "paeth" filter for all rows.
	PredictorOptimum = 15 // Best PNG filter chosen per row by the encoder.
)

// For Predictor > 2 (PNG prediction, RFC 2083) the first byte of every
// row names the filter applied to that particular row.
const (
	PNGNone    = 0x00
	PNGSub     = 0x01
	PNGUp      = 0x02
	PNGAverage = 0x03
	PNGPaeth   = 0x04
)

type flate struct {
	baseFilter
}

// Encode implements encoding for a Flate filter.
func (f flate) Encode(r io.Reader) (io.Reader, error) {

	log.Trace.Println("EncodeFlate begin")

	var b bytes.Buffer
	w := zlib.NewWriter(&b)

	written, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	log.Trace.Printf("EncodeFlate end: %d bytes written\n", written)
	return &b, nil
}

// Decode implements decoding for a Flate filter.
func (f flate) Decode(r io.Reader) (io.Reader, error) {
	return f.DecodeLength(r, -1)
}

// DecodeLength decodes the whole stream and returns at most its first
// maxLen bytes of decoded output, or all of it when maxLen < 0.
func (f flate) DecodeLength(r io.Reader, maxLen int64) (io.Reader, error) {

	log.Trace.Println("DecodeFlate begin")

	rc, err := zlib.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "pdfdoc: FlateDecode")
	}
	defer rc.Close()

	out, err := f.decodePostProcess(rc)
	if err != nil {
		return nil, err
	}

	if maxLen >= 0 && int64(out.Len()) > maxLen {
		return bytes.NewBuffer(out.Bytes()[:maxLen]), nil
	}
	return out, nil
}

func passThru(rin io.Reader) (*bytes.Buffer, error) {
	var b bytes.Buffer
	_, err := io.Copy(&b, rin)
	return &b, err
}

func intMemberOf(i int, list []int) bool {
	for _, v := range list {
		if i == v {
			return true
		}
	}
	return false
}

// validateRowFilter checks that row filter f is one the predictor p permits.
func validateRowFilter(f, p int) error {

	switch p {

	case PredictorNone:
		if f != PNGNone {
			return errors.Errorf("pdfdoc: validateRowFilter: expected row filter #%02x, got: #%02x", PNGNone, f)
		}

	case PredictorSub:
		if f != PNGSub {
			return errors.Errorf("pdfdoc: validateRowFilter: expected row filter #%02x, got: #%02x", PNGSub, f)
		}

	case PredictorUp:
		if f != PNGUp {
			return errors.Errorf("pdfdoc: validateRowFilter: expected row filter #%02x, got: #%02x", PNGUp, f)
		}

	case PredictorAverage:
		if f != PNGAverage {
			return errors.Errorf("pdfdoc: validateRowFilter: expected row filter #%02x, got: #%02x", PNGAverage, f)
		}

	case PredictorPaeth:
		if f != PNGPaeth {
			return errors.Errorf("pdfdoc: validateRowFilter: expected row filter #%02x, got: #%02x", PNGPaeth, f)
		}

	case PredictorOptimum:
		if !intMemberOf(f, []int{PNGNone, PNGSub, PNGUp, PNGAverage, PNGPaeth}) {
			return errors.Errorf("pdfdoc: validateRowFilter: PredictorOptimum, unexpected row filter #%02x", f)
		}

	default:
		return errors.Errorf("pdfdoc: validateRowFilter: unexpected predictor #%02x", p)
	}

	return nil
}

// applyHorDiff implements TIFF predictor 2 (8 bits per component only).
func applyHorDiff(row []byte, colors int) ([]byte, error) {
	for i := 1; i < len(row)/colors; i++ {
		for j := 0; j < colors; j++ {
			row[i*colors+j] += row[(i-1)*colors+j]
		}
	}
	return row, nil
}

// filterPaeth undoes the PNG Paeth predictor in place: cdat[i] currently
// holds (original - predictor), and must be restored by adding back the
// predictor chosen among left, above and upper-left.
func filterPaeth(cdat, pdat []byte, bpp int) {
	for i := 0; i < len(cdat); i++ {
		var a, b, c int
		if i >= bpp {
			a = int(cdat[i-bpp])
			c = int(pdat[i-bpp])
		}
		b = int(pdat[i])

		p := a + b - c
		pa := abs(p - a)
		pb := abs(p - b)
		pc := abs(p - c)

		var pr int
		if pa <= pb && pa <= pc {
			pr = a
		} else if pb <= pc {
			pr = b
		} else {
			pr = c
		}

		cdat[i] += byte(pr)
	}
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func processRow(pr, cr []byte, p, colors, bytesPerPixel int) ([]byte, error) {

	if p == PredictorTIFF {
		return applyHorDiff(cr, colors)
	}

	cdat := cr[1:]
	pdat := pr[1:]

	f := int(cr[0])

	if err := validateRowFilter(f, p); err != nil {
		log.Debug.Println(err)
	}

	switch f {

	case PNGNone:

	case PNGSub:
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += cdat[i-bytesPerPixel]
		}

	case PNGUp:
		for i, b := range pdat {
			cdat[i] += b
		}

	case PNGAverage:
		for i := 0; i < bytesPerPixel; i++ {
			cdat[i] += pdat[i] / 2
		}
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += uint8((int(cdat[i-bytesPerPixel]) + int(pdat[i])) / 2)
		}

	case PNGPaeth:
		filterPaeth(cdat, pdat, bytesPerPixel)
	}

	return cdat, nil
}

func (f flate) parameters() (colors, bpc, columns int, err error) {

	colors, found := f.parms["Colors"]
	if !found {
		colors = 1
	} else if colors == 0 {
		return 0, 0, 0, errors.New("pdfdoc: filter FlateDecode: \"Colors\" must be > 0")
	}

	bpc, found = f.parms["BitsPerComponent"]
	if !found {
		bpc = 8
	} else if !intMemberOf(bpc, []int{1, 2, 4, 8, 16}) {
		return 0, 0, 0, errors.Errorf("pdfdoc: filter FlateDecode: unexpected \"BitsPerComponent\": %d", bpc)
	}

	columns, found = f.parms["Columns"]
	if !found {
		columns = 1
	}

	return colors, bpc, columns, nil
}

func (f flate) decodePostProcess(r io.Reader) (*bytes.Buffer, error) {

	predictor, found := f.parms["Predictor"]
	if !found || predictor == PredictorNo {
		return passThru(r)
	}

	if !intMemberOf(predictor, []int{PredictorTIFF, PredictorNone, PredictorSub, PredictorUp, PredictorAverage, PredictorPaeth, PredictorOptimum}) {
		return nil, errors.Errorf("pdfdoc: filter FlateDecode: undefined \"Predictor\" %d", predictor)
	}

	colors, bpc, columns, err := f.parameters()
	if err != nil {
		return nil, err
	}

	bytesPerPixel := (bpc*colors + 7) / 8

	rowSize := bpc * colors * columns / 8
	if predictor != PredictorTIFF {
		rowSize++
	}

	cr := make([]byte, rowSize)
	pr := make([]byte, rowSize)

	var b bytes.Buffer

	for {
		n, err := io.ReadFull(r, cr)
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				return nil, err
			}
			if n == 0 {
				break
			}
		}

		if n != rowSize {
			return nil, errors.Errorf("pdfdoc: filter FlateDecode: read error, expected %d bytes, got: %d", rowSize, n)
		}

		d, err1 := processRow(pr, cr, predictor, colors, bytesPerPixel)
		if err1 != nil {
			return nil, err1
		}

		if _, err1 := b.Write(d); err1 != nil {
			return nil, err1
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}

		pr, cr = cr, pr
	}

	if rowSize > 0 && b.Len()%rowSize > 0 {
		log.Info.Printf("FlateDecode: postprocessing left a partial row: %d bytes, rowSize %d\n", b.Len(), rowSize)
	}

	return &b, nil
}
