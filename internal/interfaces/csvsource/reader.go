// Package csvsource reads roster exports and tournament result lists.
package csvsource

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding of an input file.
type Encoding string

const (
	EncodingLatin1      Encoding = "latin1"
	EncodingWindows1252 Encoding = "cp1252"
	EncodingUTF8        Encoding = "utf-8"
)

func ParseEncoding(raw string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return EncodingLatin1, nil
	case "cp1252", "windows-1252":
		return EncodingWindows1252, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	default:
		return "", errors.Newf("unsupported encoding %q", raw)
	}
}

// SkippedLine is an input line that could not be turned into a row.
type SkippedLine struct {
	Line   int
	Reason string
}

func decode(r io.Reader, enc Encoding) io.Reader {
	switch enc {
	case EncodingUTF8:
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder().Reader(r)
	default:
		return charmap.ISO8859_1.NewDecoder().Reader(r)
	}
}

// table is a header-addressed CSV reader.
type table struct {
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func newTable(r io.Reader, delimiter rune, required ...string) (*table, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("input is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	t := &table{reader: reader, columns: make(map[string]int, len(header)), line: 1}
	for i, name := range header {
		key := headerKey(name)
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}
	for _, name := range required {
		if _, ok := t.columns[headerKey(name)]; !ok {
			return nil, errors.Newf("missing column %q", name)
		}
	}
	return t, nil
}

// next returns the following record, or io.EOF.
func (t *table) next() (record, error) {
	fields, err := t.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return record{}, io.EOF
		}
		return record{}, errors.Wrapf(err, "read line %d", t.line+1)
	}
	t.line++
	return record{table: t, fields: fields, line: t.line}, nil
}

type record struct {
	table  *table
	fields []string
	line   int
}

func (r record) get(column string) string {
	idx, ok := r.table.columns[headerKey(column)]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

func (r record) blank() bool {
	for _, f := range r.fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func headerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}
