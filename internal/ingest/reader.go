package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrUnreadableFile is returned when no ingestion format could read a file.
	ErrUnreadableFile = errors.New("unreadable file")

	// ErrEmptyInput is returned when a readable file holds no data rows.
	ErrEmptyInput = errors.New("empty input")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a rectangular row-set. Every cell is text; numeric
// interpretation is left to the caller.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the index of the first header cell equal to name after
// trimming whitespace, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// Reader turns CSV and XLSX files into Tables.
type Reader struct {
	cfg Config
}

// NewReader creates a Reader. Zero-valued fields of cfg fall back to the
// defaults of DefaultConfig.
func NewReader(cfg Config) *Reader {
	return &Reader{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (r *Reader) Config() Config {
	return r.cfg
}

// Read reads path into a Table whose first record is the header.
func (r *Reader) Read(path string) (*Table, error) {
	records, err := r.ReadRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyInput)
	}
	return newTable(records[0], records[1:]), nil
}

// ReadRecords reads path without header semantics.
func (r *Reader) ReadRecords(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return r.readWorkbook(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, filepath.Base(path), err)
	}
	return r.parseDelimited(filepath.Base(path), data)
}

// ParseDelimited runs the format ladder over in-memory content.
func (r *Reader) ParseDelimited(name string, data []byte) ([][]string, error) {
	return r.parseDelimited(name, data)
}

func (r *Reader) parseDelimited(name string, data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var lastErr error
	for _, format := range r.cfg.Formats {
		records, err := r.tryFormat(data, format)
		if err != nil {
			lastErr = err
			log.Debug().Str("file", name).Str("format", format.String()).Err(err).Msg("ingest: format rejected")
			continue
		}
		log.Debug().Str("file", name).Str("format", format.String()).Int("records", len(records)).Msg("ingest: format accepted")
		return records, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no formats configured")
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, name, lastErr)
}

func (r *Reader) tryFormat(data []byte, format Format) ([][]string, error) {
	text, err := decode(data, format.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = format.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	minRecords := 2
	if r.cfg.Headerless {
		minRecords = 1
	}
	if len(records) < minRecords {
		return nil, errors.New("no data rows")
	}
	if len(records[0]) == 1 && r.containsOtherDelimiter(records[0][0], format.Delimiter) {
		return nil, fmt.Errorf("single column header %q looks delimited by another separator", records[0][0])
	}

	if r.cfg.LocaleNumbers {
		for _, rec := range records[1:] {
			for i, cell := range rec {
				rec[i] = CanonicalNumber(cell)
			}
		}
	}
	return records, nil
}

func (r *Reader) containsOtherDelimiter(cell string, current rune) bool {
	for _, f := range r.cfg.Formats {
		if f.Delimiter != current && strings.ContainsRune(cell, f.Delimiter) {
			return true
		}
	}
	return false
}

func decode(data []byte, enc Encoding) (string, error) {
	switch enc {
	case EncodingUTF8, "":
		if !utf8.Valid(data) {
			return "", errors.New("invalid utf-8 byte sequence")
		}
		return string(data), nil
	case EncodingLatin1:
		return decodeWith(data, charmap.ISO8859_1.NewDecoder())
	case EncodingWindows1252:
		return decodeWith(data, charmap.Windows1252.NewDecoder())
	default:
		return "", fmt.Errorf("unsupported encoding %q", enc)
	}
}

func decodeWith(data []byte, t transform.Transformer) (string, error) {
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), t))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var (
	groupedNumberRe = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d+)?$`)
	commaDecimalRe  = regexp.MustCompile(`^-?\d+,\d+$`)
)

// CanonicalNumber rewrites a locale-formatted number (period thousands,
// comma decimal) into plain float syntax. Any other text is returned as is.
func CanonicalNumber(cell string) string {
	v := strings.TrimSpace(cell)
	switch {
	case groupedNumberRe.MatchString(v):
		v = strings.ReplaceAll(v, ".", "")
		return strings.Replace(v, ",", ".", 1)
	case commaDecimalRe.MatchString(v):
		return strings.Replace(v, ",", ".", 1)
	}
	return cell
}

func newTable(header []string, rows [][]string) *Table {
	width := len(header)
	t := &Table{
		Header: append([]string(nil), header...),
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		rect := make([]string, width)
		copy(rect, row)
		t.Rows = append(t.Rows, rect)
	}
	return t
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
