package csvimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// newCSVReader wraps r in a csv.Reader that tolerates ragged rows and a
// leading UTF-8 byte order mark.
func newCSVReader(r io.Reader) *csv.Reader {
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	header := make([]string, len(h))
	for i := range h {
		header[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(header[i]) {
			return nil, fmt.Errorf("invalid header encoding")
		}
	}
	return header, nil
}

// columnPositions maps each expected column to its index in header, or -1
// when the header does not name it.
func columnPositions(header, expected []string) []int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	pos := make([]int, len(expected))
	for i, name := range expected {
		if p, ok := idx[name]; ok {
			pos[i] = p
		} else {
			pos[i] = -1
		}
	}
	return pos
}

func missingColumns(pos []int, expected []string) []string {
	var out []string
	for i, p := range pos {
		if p < 0 {
			out = append(out, expected[i])
		}
	}
	return out
}
