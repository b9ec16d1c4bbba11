package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// defaultCFFMatrix maps 1000 units to the em when the Top DICT has no
// FontMatrix.
var defaultCFFMatrix = pdf.Matrix{A: 0.001, D: 0.001}

var errCFFData = errors.New("malformed CFF data")

// cffFontMatrix reads the FontMatrix (operator 12 7) from the Top DICT of
// a bare CFF program. go-text parses the charstrings but does not expose
// the matrix.
func cffFontMatrix(data []byte) (pdf.Matrix, error) {
	if len(data) < 4 {
		return pdf.Matrix{}, errCFFData
	}
	pos := int(data[2])
	// Name INDEX, then the Top DICT INDEX
	_, pos, err := cffIndex(data, pos)
	if err != nil {
		return pdf.Matrix{}, err
	}
	top, _, err := cffIndex(data, pos)
	if err != nil {
		return pdf.Matrix{}, err
	}
	if top == nil {
		return pdf.Matrix{}, fmt.Errorf("%w: empty Top DICT INDEX", errCFFData)
	}

	var operands []float64
	for i := 0; i < len(top); {
		b0 := top[i]
		switch {
		case b0 <= 21:
			op := int(b0)
			i++
			if b0 == 12 {
				if i >= len(top) {
					return pdf.Matrix{}, errCFFData
				}
				op = 1200 + int(top[i])
				i++
			}
			if op == 1207 {
				if len(operands) != 6 {
					return pdf.Matrix{}, fmt.Errorf("%w: FontMatrix has %d operands", errCFFData, len(operands))
				}
				v := operands
				m := pdf.Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}
				if m.Determinant() == 0 {
					return pdf.Matrix{}, fmt.Errorf("%w: singular FontMatrix", errCFFData)
				}
				return m, nil
			}
			operands = operands[:0]
		case b0 == 30:
			v, n, err := cffReal(top[i+1:])
			if err != nil {
				return pdf.Matrix{}, err
			}
			operands = append(operands, v)
			i += 1 + n
		default:
			v, n, err := cffInt(top[i:])
			if err != nil {
				return pdf.Matrix{}, err
			}
			operands = append(operands, float64(v))
			i += n
		}
	}
	return defaultCFFMatrix, nil
}

// cffIndex returns the first object of the INDEX at pos and the offset
// just past the INDEX. The object is nil for an empty INDEX.
func cffIndex(data []byte, pos int) ([]byte, int, error) {
	if pos+2 > len(data) {
		return nil, 0, errCFFData
	}
	count := int(binary.BigEndian.Uint16(data[pos:]))
	if count == 0 {
		return nil, pos + 2, nil
	}
	if pos+3 > len(data) {
		return nil, 0, errCFFData
	}
	offSize := int(data[pos+2])
	if offSize < 1 || offSize > 4 {
		return nil, 0, fmt.Errorf("%w: offSize %d", errCFFData, offSize)
	}
	offsets := pos + 3
	dataStart := offsets + (count+1)*offSize - 1
	if dataStart >= len(data) {
		return nil, 0, errCFFData
	}
	offset := func(i int) int {
		v := 0
		for _, b := range data[offsets+i*offSize : offsets+(i+1)*offSize] {
			v = v<<8 | int(b)
		}
		return v
	}
	first, second, last := offset(0), offset(1), offset(count)
	if first < 1 || second < first || last < second || dataStart+last > len(data) {
		return nil, 0, errCFFData
	}
	return data[dataStart+first : dataStart+second], dataStart + last, nil
}

// cffInt decodes an integer DICT operand and returns its byte length.
func cffInt(b []byte) (int, int, error) {
	b0 := int(b[0])
	switch {
	case b0 >= 32 && b0 <= 246:
		return b0 - 139, 1, nil
	case b0 >= 247 && b0 <= 250 && len(b) >= 2:
		return (b0-247)*256 + int(b[1]) + 108, 2, nil
	case b0 >= 251 && b0 <= 254 && len(b) >= 2:
		return -(b0-251)*256 - int(b[1]) - 108, 2, nil
	case b0 == 28 && len(b) >= 3:
		return int(int16(binary.BigEndian.Uint16(b[1:]))), 3, nil
	case b0 == 29 && len(b) >= 5:
		return int(int32(binary.BigEndian.Uint32(b[1:]))), 5, nil
	}
	return 0, 0, fmt.Errorf("%w: operand byte %d", errCFFData, b0)
}

// cffReal decodes the nibbles of a real operand following the 30 prefix.
func cffReal(b []byte) (float64, int, error) {
	var sb strings.Builder
	for i, c := range b {
		for _, nib := range [2]byte{c >> 4, c & 0x0f} {
			switch {
			case nib <= 9:
				sb.WriteByte('0' + nib)
			case nib == 0xa:
				sb.WriteByte('.')
			case nib == 0xb:
				sb.WriteByte('E')
			case nib == 0xc:
				sb.WriteString("E-")
			case nib == 0xe:
				sb.WriteByte('-')
			case nib == 0xf:
				v, err := strconv.ParseFloat(sb.String(), 64)
				if err != nil {
					return 0, 0, fmt.Errorf("%w: real %q", errCFFData, sb.String())
				}
				return v, i + 1, nil
			default:
				return 0, 0, errCFFData
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: unterminated real", errCFFData)
}
