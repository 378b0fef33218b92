// Package importer runs bulk CSV imports of ledger entries, fiscal adjustments and
// chart of accounts rows with per-row failure isolation and a dry-run mode.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Line is one non-blank data line. Number is 1-based and excludes the header.
type Line struct {
	Number int
	Fields []string
	Err    error
}

// Source is a decoded upload split into header and data lines.
type Source struct {
	Delimiter rune
	Header    []string
	Lines     []Line
}

// ReadLines decodes r, detects the delimiter from the header and splits every
// data line into fields. Blank lines are dropped but keep their numbering slot.
func ReadLines(r io.Reader) (Source, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Source{}, fmt.Errorf("importer: read upload: %w", err)
	}
	text, err := decode(raw)
	if err != nil {
		return Source{}, err
	}
	physical := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	headerAt := -1
	for i, line := range physical {
		if strings.TrimSpace(line) != "" {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return Source{}, shared.ErrEmptyFile
	}

	src := Source{Delimiter: detectDelimiter(physical[headerAt])}
	header, err := split(physical[headerAt], src.Delimiter)
	if err != nil {
		return Source{}, shared.NewFieldError(shared.ErrMalformedRow, "header", "header line cannot be parsed: %v", err)
	}
	src.Header = header
	for i, line := range physical[headerAt+1:] {
		if strings.TrimSpace(strings.TrimRight(line, "\r")) == "" {
			continue
		}
		fields, err := split(line, src.Delimiter)
		if err != nil {
			err = shared.NewFieldError(shared.ErrMalformedRow, "", "line cannot be parsed: %v", err)
		}
		src.Lines = append(src.Lines, Line{Number: i + 1, Fields: fields, Err: err})
	}
	return src, nil
}

func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("importer: decode upload: %w", err)
	}
	return string(decoded), nil
}

func detectDelimiter(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

func split(line string, delimiter rune) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimRight(line, "\r")))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	fields, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}
