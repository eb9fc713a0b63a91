package index

import (
	"bytes"

	loupeio "github.com/user/loupe/internal/io"
)

const scanChunk = 64 * 1024

// LineIndex stores the byte offset of every line start in a mapped file.
// Offsets are built once with a sequential scan and extended incrementally
// when the file grows.
type LineIndex struct {
	offsets []int64
	file    *loupeio.MappedFile
}

// Build scans the file and builds a line offset index
func Build(file *loupeio.MappedFile) (*LineIndex, error) {
	idx := &LineIndex{
		offsets: make([]int64, 0, int(file.Size()/100)+1),
		file:    file,
	}
	idx.offsets = append(idx.offsets, 0)

	if err := idx.scan(0, file.Size()); err != nil {
		return nil, err
	}
	return idx, nil
}

// scan appends offsets for every newline in [from, to)
func (idx *LineIndex) scan(from, to int64) error {
	buf := make([]byte, scanChunk)

	pos := from
	for pos < to {
		n := scanChunk
		if pos+int64(n) > to {
			n = int(to - pos)
		}

		read, err := idx.file.ReadAt(buf[:n], pos)
		if err != nil {
			return err
		}

		chunk := buf[:read]
		off := 0
		for {
			nl := bytes.IndexByte(chunk[off:], '\n')
			if nl == -1 {
				break
			}
			lineStart := pos + int64(off) + int64(nl) + 1
			if lineStart < to {
				idx.offsets = append(idx.offsets, lineStart)
			}
			off += nl + 1
		}

		pos += int64(read)
	}
	return nil
}

// Extend indexes lines appended after oldSize, for files that grew.
func (idx *LineIndex) Extend(oldSize int64) error {
	return idx.scan(oldSize, idx.file.Size())
}

// LineCount returns the total number of lines
func (idx *LineIndex) LineCount() int {
	return len(idx.offsets)
}

// Line returns the content of line lineNum (0-based), without the trailing
// newline. Out-of-range requests return nil.
func (idx *LineIndex) Line(lineNum int) ([]byte, error) {
	if lineNum < 0 || lineNum >= len(idx.offsets) {
		return nil, nil
	}

	start := idx.offsets[lineNum]
	end := idx.file.Size()
	if lineNum+1 < len(idx.offsets) {
		end = idx.offsets[lineNum+1]
	}

	content, err := idx.file.ReadRange(start, end)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(content, "\r\n"), nil
}

// Lines returns lines [start, start+count), clamped to the index.
func (idx *LineIndex) Lines(start, count int) ([][]byte, error) {
	if start < 0 {
		start = 0
	}
	if start >= len(idx.offsets) {
		return nil, nil
	}
	if start+count > len(idx.offsets) {
		count = len(idx.offsets) - start
	}

	lines := make([][]byte, count)
	for i := 0; i < count; i++ {
		line, err := idx.Line(start + i)
		if err != nil {
			return nil, err
		}
		lines[i] = line
	}
	return lines, nil
}
