package similarity

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// File layout: magic "RMSM", uint32 version, uint32 n, then n*n
// little-endian float32 scores in row-major order.
var fileMagic = [4]byte{'R', 'M', 'S', 'M'}

const (
	fileVersion = 1
	headerSize  = 12
	// MaxSize bounds n. A 20000-movie matrix is 1.6 GB on disk.
	MaxSize = 20_000
	// decodeChunk is how many scores Decode reads per step. Storage grows
	// with the scores actually read, never with the size the header claims.
	decodeChunk = 4096
)

// ErrBadFormat marks data that is not a similarity matrix file.
var ErrBadFormat = errors.New("invalid similarity matrix file")

// Encode writes m in the on-disk format.
func Encode(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	header := make([]byte, headerSize)
	copy(header[0:4], fileMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], fileVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(m.Size()))
	if _, err := bw.Write(header); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, score := range m.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(score))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadHeader validates the file header and returns the matrix size n.
func ReadHeader(r io.Reader) (int, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, fmt.Errorf("%w: read header: %v", ErrBadFormat, err)
	}
	if [4]byte(header[0:4]) != fileMagic {
		return 0, fmt.Errorf("%w: bad magic %q", ErrBadFormat, header[0:4])
	}
	if version := binary.LittleEndian.Uint32(header[4:8]); version != fileVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, version)
	}
	n := int(binary.LittleEndian.Uint32(header[8:12]))
	if n > MaxSize {
		return 0, fmt.Errorf("%w: size %d exceeds limit %d", ErrBadFormat, n, MaxSize)
	}
	return n, nil
}

// FileSize is the encoded length of an n by n matrix.
func FileSize(n int) int64 {
	return headerSize + 4*int64(n)*int64(n)
}

// Decode reads a matrix written by Encode.
func Decode(r io.Reader) (*Matrix, error) {
	br := bufio.NewReader(r)
	n, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	total := n * n
	data := make([]float32, 0, min(total, decodeChunk))
	buf := make([]byte, 4*decodeChunk)
	for len(data) < total {
		chunk := min(total-len(data), decodeChunk)
		if _, err := io.ReadFull(br, buf[:chunk*4]); err != nil {
			return nil, fmt.Errorf("%w: truncated scores after %d of %d: %v", ErrBadFormat, len(data), total, err)
		}
		for i := range chunk {
			data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after %d scores", ErrBadFormat, total)
	}
	return NewMatrix(n, data)
}

// DecodeFile decodes f from the start after checking that its length matches
// the size its header declares.
func DecodeFile(f *os.File) (*Matrix, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat matrix file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind matrix file: %w", err)
	}
	n, err := ReadHeader(f)
	if err != nil {
		return nil, err
	}
	if want := FileSize(n); info.Size() != want {
		return nil, fmt.Errorf("%w: %d bytes on disk, header declares %dx%d (%d bytes)", ErrBadFormat, info.Size(), n, n, want)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind matrix file: %w", err)
	}
	return Decode(f)
}
