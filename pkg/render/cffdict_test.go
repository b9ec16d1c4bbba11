package render

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// cffWithTopDict builds a bare CFF header, Name INDEX and Top DICT INDEX
func cffWithTopDict(dict ...byte) []byte {
	data := []byte{1, 0, 4, 1}
	data = append(data, 0, 1, 1, 1, 2, 'F')
	data = append(data, 0, 1, 1, 1, byte(1+len(dict)))
	return append(data, dict...)
}

// TestCFFFontMatrix tests reading FontMatrix from the Top DICT
func TestCFFFontMatrix(t *testing.T) {
	// 30 a0 00 5f is the real .0005 and 139 is the integer 0
	half := []byte{30, 0xa0, 0x00, 0x5f}
	var matrix []byte
	matrix = append(matrix, half...)
	matrix = append(matrix, 139, 139)
	matrix = append(matrix, half...)
	matrix = append(matrix, 139, 139, 12, 7)

	tests := []struct {
		name string
		data []byte
		want pdf.Matrix
	}{
		{"font matrix", cffWithTopDict(matrix...), pdf.Matrix{A: 0.0005, D: 0.0005}},
		{"after other entries", cffWithTopDict(append([]byte{248, 20, 17}, matrix...)...), pdf.Matrix{A: 0.0005, D: 0.0005}},
		{"no font matrix", cffWithTopDict(139, 17), defaultCFFMatrix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cffFontMatrix(tt.data)
			if err != nil {
				t.Fatalf("cffFontMatrix failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("Matrix mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestCFFFontMatrixErrors tests truncated and singular dictionaries
func TestCFFFontMatrixErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{1, 0}},
		{"truncated index", []byte{1, 0, 4, 1, 0, 1, 1, 1, 9}},
		{"singular", cffWithTopDict(139, 139, 139, 139, 139, 139, 12, 7)},
		{"missing operands", cffWithTopDict(139, 12, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cffFontMatrix(tt.data); !errors.Is(err, errCFFData) {
				t.Errorf("Expected errCFFData, got %v", err)
			}
		})
	}
}
