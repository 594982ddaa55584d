package similarity_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"reelmatch/internal/similarity"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m, err := similarity.FromRows([][]float32{
		{1, 0.25, 0.5},
		{0.25, 1, 0.75},
		{0.5, 0.75, 1},
	})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	var buf bytes.Buffer
	if err := similarity.Encode(&buf, m); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != 12+9*4 {
		t.Fatalf("unexpected encoded size %d", buf.Len())
	}
	decoded, err := similarity.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Size() != 3 || decoded.At(1, 2) != 0.75 || decoded.At(2, 0) != 0.5 {
		t.Fatalf("unexpected decoded matrix: %v", decoded.Row(1))
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string][]byte{
		"magic":     []byte("NOPE\x01\x00\x00\x00\x00\x00\x00\x00"),
		"version":   []byte("RMSM\x02\x00\x00\x00\x00\x00\x00\x00"),
		"truncated": []byte("RMSM\x01\x00\x00\x00\x02\x00\x00\x00\x00\x00\x80\x3f"),
		"trailing":  []byte("RMSM\x01\x00\x00\x00\x00\x00\x00\x00\xff"),
		"short":     []byte("RMS"),
	}
	for name, data := range cases {
		if _, err := similarity.Decode(bytes.NewReader(data)); !errors.Is(err, similarity.ErrBadFormat) {
			t.Fatalf("%s: expected ErrBadFormat, got %v", name, err)
		}
	}
}

func headerOnly(n uint32) []byte {
	header := []byte("RMSM\x01\x00\x00\x00\x00\x00\x00\x00")
	binary.LittleEndian.PutUint32(header[8:], n)
	return header
}

func TestDecodeHeaderClaimingLargeMatrixFailsWithoutScores(t *testing.T) {
	_, err := similarity.Decode(bytes.NewReader(headerOnly(similarity.MaxSize)))
	if !errors.Is(err, similarity.ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
	if _, err := similarity.Decode(bytes.NewReader(headerOnly(similarity.MaxSize + 1))); !errors.Is(err, similarity.ErrBadFormat) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestFromRowsRejectsRaggedRows(t *testing.T) {
	if _, err := similarity.FromRows([][]float32{{1, 0}, {0}}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestCheckSymmetry(t *testing.T) {
	sym, _ := similarity.FromRows([][]float32{{1, 0.3}, {0.3, 1}})
	if err := sym.CheckSymmetry(1e-6); err != nil {
		t.Fatalf("expected symmetric matrix, got %v", err)
	}

	asym, _ := similarity.FromRows([][]float32{{1, 0.3, 0}, {0.3, 1, 0.1}, {0, 0.2, 1}})
	err := asym.CheckSymmetry(1e-6)
	var asymErr *similarity.AsymmetryError
	if !errors.As(err, &asymErr) {
		t.Fatalf("expected AsymmetryError, got %v", err)
	}
	if asymErr.I != 1 || asymErr.J != 2 {
		t.Fatalf("expected first asymmetric pair (1,2), got (%d,%d)", asymErr.I, asymErr.J)
	}
	if err := asym.CheckSymmetry(0.5); err != nil {
		t.Fatalf("expected tolerance to absorb difference, got %v", err)
	}

	nan := float32(math.NaN())
	withNaN, _ := similarity.FromRows([][]float32{{1, nan}, {nan, 1}})
	if err := withNaN.CheckSymmetry(1); err == nil {
		t.Fatal("expected NaN pair to fail the symmetry check")
	}
}

func TestRowReturnsCopy(t *testing.T) {
	m, _ := similarity.FromRows([][]float32{{1, 0.5}, {0.5, 1}})
	row := m.Row(0)
	row[1] = 99
	if m.At(0, 1) != 0.5 {
		t.Fatal("Row must not expose the underlying data")
	}
}
