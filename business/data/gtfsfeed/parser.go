package gtfsfeed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// feedParser wraps one csv file of a feed with typed column access. Column
// coercion failures are collected with the line they happened on and surface
// through rowErr.
type feedParser struct {
	filename string
	line     int
	reader   *csv.Reader
	headers  []string
	current  []string
	errors   []error
}

func newFeedParser(r io.Reader, filename string) (*feedParser, error) {
	reader := csv.NewReader(r)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header of %s: %w", filename, err)
	}
	stripBOM(headers)
	return &feedParser{
		filename: filename,
		line:     1,
		reader:   reader,
		headers:  headers,
	}, nil
}

func stripBOM(headers []string) {
	if len(headers) == 0 || len(headers[0]) == 0 {
		return
	}
	runes := []rune(headers[0])
	if runes[0] == '\uFEFF' {
		headers[0] = string(runes[1:])
	}
}

// nextLine advances to the next row, returning io.EOF at the end of the file.
func (p *feedParser) nextLine() error {
	var err error
	p.current, err = p.reader.Read()
	p.line++
	return err
}

func (p *feedParser) rowErr() error {
	if len(p.errors) > 0 {
		return fmt.Errorf("in file %v, line %v: %v", p.filename, p.line, p.errors)
	}
	return nil
}

func (p *feedParser) addErr(err error) {
	p.errors = append(p.errors, err)
}

func indexOf(name string, elements []string) int {
	for i, value := range elements {
		if name == value {
			return i
		}
	}
	return -1
}

// findValue retrieves one column's raw string. A missing column or empty
// value is nil when optional, an error otherwise.
func (p *feedParser) findValue(name string, optional bool) (*string, error) {
	index := indexOf(name, p.headers)
	if index < 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to find header: %s", name)
	}
	if len(p.current) <= index {
		return nil, fmt.Errorf("row is too short to hold column %v at %v", name, index)
	}
	value := p.current[index]
	if len(value) == 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("missing required value in column %v", name)
	}
	return &value, nil
}

func (p *feedParser) getString(name string, optional bool) string {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.addErr(err)
	}
	if value == nil {
		return ""
	}
	return *value
}

func (p *feedParser) getInt(name string, optional bool) int64 {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.addErr(err)
	}
	if value == nil {
		return 0
	}
	result, err := strconv.ParseInt(*value, 10, 64)
	if err != nil {
		p.addErr(fmt.Errorf("unable to parse column %s: %w", name, err))
		return 0
	}
	return result
}

func (p *feedParser) getFloat(name string, optional bool) float64 {
	value := p.getFloatPointer(name, optional)
	if value == nil {
		return 0
	}
	return *value
}

func (p *feedParser) getFloatPointer(name string, optional bool) *float64 {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.addErr(err)
	}
	if value == nil {
		return nil
	}
	result, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		p.addErr(fmt.Errorf("unable to parse column %s: %w", name, err))
		return nil
	}
	return &result
}

// getDate retrieves a YYYYMMDD service date column.
func (p *feedParser) getDate(name string, optional bool) time.Time {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.addErr(err)
	}
	if value == nil {
		return time.Time{}
	}
	result, err := time.Parse("20060102", *value)
	if err != nil {
		p.addErr(fmt.Errorf("unable to parse column %s: %w", name, err))
		return time.Time{}
	}
	return result
}
