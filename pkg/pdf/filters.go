package pdf

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
	tifflzw "golang.org/x/image/tiff/lzw"
)

// ErrUnsupportedFilter is returned for filters that have no decoder.
var ErrUnsupportedFilter = errors.New("pdf: unsupported filter")

// filterAbbreviations maps inline image filter names to their full form.
var filterAbbreviations = map[Name]Name{
	"AHx": "ASCIIHexDecode",
	"A85": "ASCII85Decode",
	"LZW": "LZWDecode",
	"Fl":  "FlateDecode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
	"DCT": "DCTDecode",
}

// imageCodecs are left encoded by DecodeImageData; the image layer handles them.
var imageCodecs = map[Name]bool{
	"DCTDecode":   true,
	"JPXDecode":   true,
	"JBIG2Decode": true,
}

// FilterStage is one entry of a stream's filter chain.
type FilterStage struct {
	Name   Name
	Params Dictionary
}

// Filters returns the filter chain of the stream with abbreviations expanded
// and each filter paired with its DecodeParms.
func (s Stream) Filters() []FilterStage {
	var names []Name
	switch f := s.Dictionary.Get("Filter").(type) {
	case Name:
		names = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := item.(Name); ok {
				names = append(names, n)
			}
		}
	}

	parms := s.Dictionary.Get("DecodeParms")

	stages := make([]FilterStage, len(names))
	for i, n := range names {
		if full, ok := filterAbbreviations[n]; ok {
			n = full
		}
		stages[i].Name = n
		switch p := parms.(type) {
		case Dictionary:
			if i == 0 {
				stages[i].Params = p
			}
		case Array:
			if i < len(p) {
				if d, ok := p[i].(Dictionary); ok {
					stages[i].Params = d
				}
			}
		}
		if stages[i].Params == nil {
			stages[i].Params = Dictionary{}
		}
	}
	return stages
}

// Decode decodes the stream data through its full filter chain.
func (s Stream) Decode() ([]byte, error) {
	data, rest, err := s.decode(false)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return data, fmt.Errorf("filter %s: %w", rest[0].Name, ErrUnsupportedFilter)
	}
	return data, nil
}

// DecodeImageData runs every filter except a trailing image codec (DCT, JPX,
// JBIG2). The codec stage, if any, is returned so the caller can decode it.
func (s Stream) DecodeImageData() ([]byte, *FilterStage, error) {
	data, rest, err := s.decode(true)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) > 0 {
		return data, &rest[0], nil
	}
	return data, nil, nil
}

func (s Stream) decode(stopAtCodec bool) ([]byte, []FilterStage, error) {
	data := s.Data
	stages := s.Filters()
	for i, st := range stages {
		if imageCodecs[st.Name] {
			if stopAtCodec || st.Name != "DCTDecode" {
				return data, stages[i:], nil
			}
			// DCT stays encoded; image decoding happens in the image layer.
			return data, nil, nil
		}
		var err error
		data, err = applyFilter(data, st)
		if err != nil {
			return nil, nil, fmt.Errorf("filter %s: %w", st.Name, err)
		}
	}
	return data, nil, nil
}

// applyFilter applies a single filter to decode data
func applyFilter(data []byte, st FilterStage) ([]byte, error) {
	switch st.Name {
	case "FlateDecode":
		return flateDecode(data, st.Params)
	case "ASCIIHexDecode":
		return asciiHexDecode(data)
	case "ASCII85Decode":
		return ascii85Decode(data)
	case "LZWDecode":
		return lzwDecode(data, st.Params)
	case "RunLengthDecode":
		return runLengthDecode(data)
	case "CCITTFaxDecode":
		return ccittFaxDecode(data, st.Params)
	case "Crypt":
		// Identity crypt filters are handled at load time.
		return data, nil
	default:
		return nil, ErrUnsupportedFilter
	}
}

// flateDecode decompresses zlib data. A truncated stream yields what could be
// recovered.
func flateDecode(data []byte, params Dictionary) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil && len(decoded) == 0 {
		return nil, err
	}
	return applyPredictor(decoded, params)
}

// lzwDecode decodes LZW data. EarlyChange 1 (the default) is the TIFF variant
// of the code width switch; 0 matches the plain MSB variant.
func lzwDecode(data []byte, params Dictionary) ([]byte, error) {
	earlyChange := int64(1)
	if ec, ok := params.GetInt("EarlyChange"); ok {
		earlyChange = ec
	}

	var r io.ReadCloser
	if earlyChange == 0 {
		r = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil && len(decoded) == 0 {
		return nil, err
	}
	return applyPredictor(decoded, params)
}

func predictorParams(params Dictionary) (predictor, colors, bpc, columns int) {
	predictor, colors, bpc, columns = 1, 1, 8, 1
	if v, ok := params.GetInt("Predictor"); ok {
		predictor = int(v)
	}
	if v, ok := params.GetInt("Colors"); ok && v > 0 {
		colors = int(v)
	}
	if v, ok := params.GetInt("BitsPerComponent"); ok && v > 0 {
		bpc = int(v)
	}
	if v, ok := params.GetInt("Columns"); ok && v > 0 {
		columns = int(v)
	}
	return
}

// applyPredictor undoes a TIFF or PNG predictor.
func applyPredictor(data []byte, params Dictionary) ([]byte, error) {
	predictor, colors, bpc, columns := predictorParams(params)
	switch {
	case predictor <= 1:
		return data, nil
	case predictor == 2:
		return tiffPredictor(data, colors, bpc, columns), nil
	default:
		return pngPredictor(data, colors, bpc, columns)
	}
}

// tiffPredictor reverses TIFF predictor 2 (horizontal differencing).
func tiffPredictor(data []byte, colors, bpc, columns int) []byte {
	rowBytes := (columns*colors*bpc + 7) / 8
	if rowBytes == 0 {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start+rowBytes <= len(out); start += rowBytes {
		row := out[start : start+rowBytes]
		switch bpc {
		case 8:
			for i := colors; i < len(row); i++ {
				row[i] += row[i-colors]
			}
		case 16:
			for i := 2 * colors; i+1 < len(row); i += 2 {
				prev := uint16(row[i-2*colors])<<8 | uint16(row[i-2*colors+1])
				cur := uint16(row[i])<<8 | uint16(row[i+1])
				cur += prev
				row[i], row[i+1] = byte(cur>>8), byte(cur)
			}
		default:
			mask := uint32(1)<<uint(bpc) - 1
			prev := make([]uint32, colors)
			for x := 0; x < columns; x++ {
				for c := 0; c < colors; c++ {
					bit := (x*colors + c) * bpc
					v := (readBits(row, bit, bpc) + prev[c]) & mask
					writeBits(row, bit, bpc, v)
					prev[c] = v
				}
			}
		}
	}
	return out
}

func readBits(row []byte, bit, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		b := bit + i
		v <<= 1
		if row[b/8]&(0x80>>uint(b%8)) != 0 {
			v |= 1
		}
	}
	return v
}

func writeBits(row []byte, bit, n int, v uint32) {
	for i := 0; i < n; i++ {
		b := bit + i
		mask := byte(0x80 >> uint(b%8))
		if v&(1<<uint(n-1-i)) != 0 {
			row[b/8] |= mask
		} else {
			row[b/8] &^= mask
		}
	}
}

// pngPredictor reverses PNG row filters. The per-row filter type byte decides
// the filter regardless of the Predictor value.
func pngPredictor(data []byte, colors, bpc, columns int) ([]byte, error) {
	bytesPerPixel := (colors*bpc + 7) / 8
	rowBytes := (columns*colors*bpc + 7) / 8
	stride := rowBytes + 1

	rows := len(data) / stride
	result := make([]byte, rows*rowBytes)
	prevRow := make([]byte, rowBytes)

	for row := 0; row < rows; row++ {
		src := data[row*stride : row*stride+stride]
		dst := result[row*rowBytes : row*rowBytes+rowBytes]
		filterType, rowData := src[0], src[1:]

		switch filterType {
		case 1: // Sub
			for i := 0; i < rowBytes; i++ {
				var left byte
				if i >= bytesPerPixel {
					left = dst[i-bytesPerPixel]
				}
				dst[i] = rowData[i] + left
			}
		case 2: // Up
			for i := 0; i < rowBytes; i++ {
				dst[i] = rowData[i] + prevRow[i]
			}
		case 3: // Average
			for i := 0; i < rowBytes; i++ {
				var left byte
				if i >= bytesPerPixel {
					left = dst[i-bytesPerPixel]
				}
				dst[i] = rowData[i] + byte((int(left)+int(prevRow[i]))/2)
			}
		case 4: // Paeth
			for i := 0; i < rowBytes; i++ {
				var left, upLeft byte
				if i >= bytesPerPixel {
					left = dst[i-bytesPerPixel]
					upLeft = prevRow[i-bytesPerPixel]
				}
				dst[i] = rowData[i] + paethPredictor(left, prevRow[i], upLeft)
			}
		default:
			copy(dst, rowData)
		}
		copy(prevRow, dst)
	}

	return result, nil
}

// paethPredictor implements the Paeth predictor algorithm
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// asciiHexDecode decodes ASCII hex encoded data
func asciiHexDecode(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data)/2)
	var nibble byte
	var hasNibble bool

	for _, b := range data {
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}

		var val byte
		switch {
		case b >= '0' && b <= '9':
			val = b - '0'
		case b >= 'A' && b <= 'F':
			val = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			val = b - 'a' + 10
		default:
			return nil, fmt.Errorf("invalid hex character: %c", b)
		}

		if hasNibble {
			result = append(result, nibble<<4|val)
			hasNibble = false
		} else {
			nibble = val
			hasNibble = true
		}
	}

	if hasNibble {
		result = append(result, nibble<<4)
	}

	return result, nil
}

// ascii85Decode decodes ASCII85 encoded data
func ascii85Decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("<~")) {
		data = data[2:]
	}
	result := make([]byte, 0, len(data)*4/5)
	var tuple uint32
	var count int

	for _, b := range data {
		if b == '~' {
			break
		}
		if isWhitespace(b) {
			continue
		}

		if b == 'z' && count == 0 {
			result = append(result, 0, 0, 0, 0)
			continue
		}

		if b < '!' || b > 'u' {
			return nil, fmt.Errorf("invalid ASCII85 character: %c", b)
		}

		tuple = tuple*85 + uint32(b-'!')
		count++

		if count == 5 {
			result = append(result, byte(tuple>>24), byte(tuple>>16), byte(tuple>>8), byte(tuple))
			tuple = 0
			count = 0
		}
	}

	if count > 0 {
		for i := count; i < 5; i++ {
			tuple = tuple*85 + 84
		}
		for i := 0; i < count-1; i++ {
			result = append(result, byte(tuple>>(24-i*8)))
		}
	}

	return result, nil
}

// runLengthDecode decodes run-length encoded data
func runLengthDecode(data []byte) ([]byte, error) {
	var result []byte

	for i := 0; i < len(data); {
		length := int(data[i])
		i++

		if length == 128 {
			break
		}

		if length < 128 {
			n := length + 1
			if i+n > len(data) {
				return append(result, data[i:]...), nil
			}
			result = append(result, data[i:i+n]...)
			i += n
		} else {
			if i >= len(data) {
				break
			}
			b := data[i]
			i++
			for j := 0; j < 257-length; j++ {
				result = append(result, b)
			}
		}
	}

	return result, nil
}

// ccittFaxDecode decodes Group 3 (1D) and Group 4 fax data. The output is one
// bit per pixel with 0 meaning black unless BlackIs1 is set.
func ccittFaxDecode(data []byte, params Dictionary) ([]byte, error) {
	k, _ := params.GetInt("K")
	columns := int64(1728)
	if v, ok := params.GetInt("Columns"); ok && v > 0 {
		columns = v
	}
	rows := ccitt.AutoDetectHeight
	if v, ok := params.GetInt("Rows"); ok && v > 0 {
		rows = int(v)
	}
	align, _ := params.GetBool("EncodedByteAlign")
	blackIs1, _ := params.GetBool("BlackIs1")

	var sf ccitt.SubFormat
	switch {
	case k < 0:
		sf = ccitt.Group4
	case k == 0:
		sf = ccitt.Group3
	default:
		return nil, fmt.Errorf("mixed 2D Group 3 (K=%d): %w", k, ErrUnsupportedFilter)
	}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, int(columns), rows,
		&ccitt.Options{Align: align, Invert: blackIs1})
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	return out, nil
}
