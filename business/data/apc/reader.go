package apc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// defaultChunkRows is how many raw lines are cleaned and appended at a time,
// so arbitrarily large files never need to be held in memory at once.
const defaultChunkRows = 100000

// rawRow holds one raw line's columns coerced to their declared types.
type rawRow struct {
	line   int
	ints   map[string]int64
	floats map[string]float64
	strs   map[string]string
}

func (r *rawRow) intAt(name string) int64 {
	return r.ints[name]
}

func (r *rawRow) floatAt(name string) float64 {
	return r.floats[name]
}

func (r *rawRow) strAt(name string) string {
	return r.strs[name]
}

// fieldText slices one column's bytes out of a raw line, tolerating short
// lines, and trims the surrounding padding.
func fieldText(line string, col rawColumn) string {
	if col.start >= len(line) {
		return ""
	}
	end := col.end
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[col.start:end])
}

// parseRawRow coerces the leading columnsToRead columns of a line to their
// declared types. Empty numeric fields read as zero; any other coercion
// failure means the fixed-width layout no longer matches the input and is
// returned as an error.
func parseRawRow(line string, lineNumber int) (*rawRow, error) {
	row := rawRow{
		line:   lineNumber,
		ints:   make(map[string]int64, columnsToRead),
		floats: make(map[string]float64),
		strs:   make(map[string]string),
	}
	for _, col := range rawLayout[:columnsToRead] {
		text := fieldText(line, col)
		switch col.kind {
		case colInt:
			if text == "" {
				row.ints[col.name] = 0
				continue
			}
			v, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: unable to parse column %s from %q: %w",
					lineNumber, col.name, text, err)
			}
			row.ints[col.name] = v
		case colFloat:
			if text == "" {
				row.floats[col.name] = 0
				continue
			}
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: unable to parse column %s from %q: %w",
					lineNumber, col.name, text, err)
			}
			row.floats[col.name] = v
		case colString:
			if len(text) > col.width {
				text = text[:col.width]
			}
			row.strs[col.name] = text
		}
	}
	return &row, nil
}

// chunkReader yields the raw lines of an STP file a bounded number of rows at
// a time, skipping the banner rows at the top.
type chunkReader struct {
	scanner   *bufio.Scanner
	chunkRows int
	line      int
	skipped   bool
}

func newChunkReader(r io.Reader, chunkRows int) *chunkReader {
	if chunkRows <= 0 {
		chunkRows = defaultChunkRows
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	return &chunkReader{scanner: scanner, chunkRows: chunkRows}
}

// next reads up to chunkRows lines. It returns io.EOF once the input is
// exhausted and no lines remain.
func (c *chunkReader) next() ([]string, []int, error) {
	if !c.skipped {
		for i := 0; i < headerRows; i++ {
			if !c.scanner.Scan() {
				if err := c.scanner.Err(); err != nil {
					return nil, nil, err
				}
				return nil, nil, io.EOF
			}
			c.line++
		}
		c.skipped = true
	}
	var lines []string
	var lineNumbers []int
	for len(lines) < c.chunkRows && c.scanner.Scan() {
		c.line++
		text := c.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, text)
		lineNumbers = append(lineNumbers, c.line)
	}
	if err := c.scanner.Err(); err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, io.EOF
	}
	return lines, lineNumbers, nil
}
