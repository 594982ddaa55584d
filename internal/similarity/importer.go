package similarity

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Import formats accepted by ImportFile.
const (
	FormatNPY = "npy"
	FormatCSV = "csv"
)

var npyMagic = []byte("\x93NUMPY")

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([<>=|])(f[48])'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ImportFile reads a square score matrix produced outside reelmatch. An empty
// format is inferred from the file extension.
func ImportFile(path, format string) (*Matrix, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch format {
	case FormatNPY:
		return ReadNPY(file)
	case FormatCSV:
		return ReadCSV(file)
	default:
		return nil, fmt.Errorf("unsupported matrix format %q (use %s or %s)", format, FormatNPY, FormatCSV)
	}
}

// ReadNPY decodes a 2-D float32 or float64 array written by numpy.save in C
// order. float64 scores are narrowed to float32.
func ReadNPY(r io.Reader) (*Matrix, error) {
	br := bufio.NewReader(r)
	header, err := readNPYHeader(br)
	if err != nil {
		return nil, err
	}

	descr := npyDescrRe.FindStringSubmatch(header)
	if descr == nil {
		return nil, fmt.Errorf("%w: npy dtype must be float32 or float64", ErrBadFormat)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if descr[1] == ">" {
		order = binary.BigEndian
	}
	width := 4
	if descr[2] == "f8" {
		width = 8
	}
	if m := npyFortranRe.FindStringSubmatch(header); m == nil || m[1] != "False" {
		return nil, fmt.Errorf("%w: npy array must be C-ordered", ErrBadFormat)
	}
	n, err := npySquareSize(header)
	if err != nil {
		return nil, err
	}

	total := n * n
	data := make([]float32, 0, min(total, decodeChunk))
	buf := make([]byte, width*decodeChunk)
	for len(data) < total {
		chunk := min(total-len(data), decodeChunk)
		if _, err := io.ReadFull(br, buf[:chunk*width]); err != nil {
			return nil, fmt.Errorf("%w: npy data truncated after %d of %d scores: %v", ErrBadFormat, len(data), total, err)
		}
		for i := range chunk {
			if width == 4 {
				data = append(data, math.Float32frombits(order.Uint32(buf[i*4:])))
			} else {
				data = append(data, float32(math.Float64frombits(order.Uint64(buf[i*8:]))))
			}
		}
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: npy has data beyond %dx%d scores", ErrBadFormat, n, n)
	}
	return NewMatrix(n, data)
}

func readNPYHeader(br *bufio.Reader) (string, error) {
	prefix := make([]byte, 8)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return "", fmt.Errorf("%w: read npy preamble: %v", ErrBadFormat, err)
	}
	if !bytes.Equal(prefix[:6], npyMagic) {
		return "", fmt.Errorf("%w: not an npy file", ErrBadFormat)
	}
	var headerLen int
	switch major := prefix[6]; major {
	case 1:
		raw := make([]byte, 2)
		if _, err := io.ReadFull(br, raw); err != nil {
			return "", fmt.Errorf("%w: read npy header length: %v", ErrBadFormat, err)
		}
		headerLen = int(binary.LittleEndian.Uint16(raw))
	case 2, 3:
		raw := make([]byte, 4)
		if _, err := io.ReadFull(br, raw); err != nil {
			return "", fmt.Errorf("%w: read npy header length: %v", ErrBadFormat, err)
		}
		headerLen = int(binary.LittleEndian.Uint32(raw))
	default:
		return "", fmt.Errorf("%w: unsupported npy version %d", ErrBadFormat, major)
	}
	if headerLen > 1<<16 {
		return "", fmt.Errorf("%w: npy header of %d bytes is too large", ErrBadFormat, headerLen)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return "", fmt.Errorf("%w: read npy header: %v", ErrBadFormat, err)
	}
	return string(header), nil
}

func npySquareSize(header string) (int, error) {
	m := npyShapeRe.FindStringSubmatch(header)
	if m == nil {
		return 0, fmt.Errorf("%w: npy header has no shape", ErrBadFormat)
	}
	var dims []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dim, err := strconv.Atoi(part)
		if err != nil || dim < 0 {
			return 0, fmt.Errorf("%w: bad npy shape (%s)", ErrBadFormat, m[1])
		}
		dims = append(dims, dim)
	}
	if len(dims) != 2 || dims[0] != dims[1] {
		return 0, fmt.Errorf("%w: npy shape (%s) is not a square matrix", ErrBadFormat, m[1])
	}
	if dims[0] > MaxSize {
		return 0, fmt.Errorf("%w: size %d exceeds limit %d", ErrBadFormat, dims[0], MaxSize)
	}
	return dims[0], nil
}

// ReadCSV decodes a dense square matrix, one row per line. A leading header
// row is skipped when any of its cells is not a number. A leading index column
// as written by pandas' to_csv (row labels or 0..n-1) is dropped.
func ReadCSV(r io.Reader) (*Matrix, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var rows [][]float32
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %v", ErrBadFormat, line, err)
		}
		row, ok := parseScores(record)
		if !ok {
			if line == 1 && len(rows) == 0 {
				continue
			}
			if indexed, ok := parseScores(record[1:]); ok && len(record) > 1 {
				row = append([]float32{float32(math.NaN())}, indexed...)
			} else {
				return nil, fmt.Errorf("%w: csv line %d has a non-numeric score", ErrBadFormat, line)
			}
		}
		if len(rows) >= MaxSize {
			return nil, fmt.Errorf("%w: more than %d rows", ErrBadFormat, MaxSize)
		}
		rows = append(rows, row)
	}

	n := len(rows)
	if n > 0 && hasIndexColumn(rows) {
		for i, row := range rows {
			rows[i] = row[1:]
		}
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: csv row %d has %d scores, want %d for a %dx%d matrix", ErrBadFormat, i+1, len(row), n, n, n)
		}
	}
	return FromRows(rows)
}

func parseScores(record []string) ([]float32, bool) {
	row := make([]float32, len(record))
	for i, cell := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 32)
		if err != nil {
			return nil, false
		}
		row[i] = float32(v)
	}
	return row, true
}

// hasIndexColumn reports whether every row carries one extra leading cell
// holding either a label or its zero-based row number.
func hasIndexColumn(rows [][]float32) bool {
	for i, row := range rows {
		if len(row) != len(rows)+1 {
			return false
		}
		if first := row[0]; !math.IsNaN(float64(first)) && first != float32(i) {
			return false
		}
	}
	return true
}
