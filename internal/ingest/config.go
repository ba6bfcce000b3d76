package ingest

import "strings"

// Encoding names a text encoding tried when decoding delimited files.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingLatin1      Encoding = "latin1"
	EncodingWindows1252 Encoding = "cp1252"
)

// Format is one (delimiter, encoding) combination of the CSV ladder.
type Format struct {
	Delimiter rune
	Encoding  Encoding
}

func (f Format) String() string {
	return string(f.Delimiter) + "/" + string(f.Encoding)
}

// SentinelValues are the spreadsheet error markers and non-finite literals
// that the default cell interpreter reads as zero.
var SentinelValues = []string{
	"NAN",
	"INF",
	"-INF",
	"#N/A",
	"#DIV/0!",
	"#VALUE!",
	"#REF!",
	"#NAME?",
	"#NUM!",
	"#NULL!",
}

var sentinelSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SentinelValues))
	for _, v := range SentinelValues {
		set[v] = struct{}{}
	}
	return set
}()

// CellInterpreter maps a raw workbook cell value to the text handed to the
// normalizer. It is invoked once per data cell.
type CellInterpreter func(raw string) string

// SentinelInterpreter returns "0" for any value in SentinelValues and the raw
// value otherwise.
func SentinelInterpreter(raw string) string {
	if IsSentinel(raw) {
		return "0"
	}
	return raw
}

// IsSentinel reports whether v is one of SentinelValues, ignoring case and
// surrounding whitespace.
func IsSentinel(v string) bool {
	_, ok := sentinelSet[strings.ToUpper(strings.TrimSpace(v))]
	return ok
}

// Config controls how the Reader interprets input files.
type Config struct {
	// Formats is the ordered ladder of delimiter/encoding pairs tried for
	// delimited text input. The first one that parses wins.
	Formats []Format

	// LocaleNumbers canonicalises cells written with period thousands
	// grouping and comma decimals ("1.234,5" -> "1234.5").
	LocaleNumbers bool

	// CellInterpreter is applied to every workbook data cell.
	CellInterpreter CellInterpreter

	// Sheet selects the workbook sheet; empty means the first sheet.
	Sheet string

	// Headerless accepts delimited input with a single record, for lookup
	// files that carry no header row.
	Headerless bool
}

// CommaOnlyFormats is the comma ladder used for headerless lookup files.
func CommaOnlyFormats() []Format {
	return []Format{
		{Delimiter: ',', Encoding: EncodingUTF8},
		{Delimiter: ',', Encoding: EncodingLatin1},
		{Delimiter: ',', Encoding: EncodingWindows1252},
	}
}

// DefaultFormats is the comma/semicolon x UTF-8/Latin-1/Windows-1252 ladder.
func DefaultFormats() []Format {
	return []Format{
		{Delimiter: ',', Encoding: EncodingUTF8},
		{Delimiter: ';', Encoding: EncodingUTF8},
		{Delimiter: ',', Encoding: EncodingLatin1},
		{Delimiter: ';', Encoding: EncodingLatin1},
		{Delimiter: ',', Encoding: EncodingWindows1252},
		{Delimiter: ';', Encoding: EncodingWindows1252},
	}
}

// SemicolonFirstFormats is the ladder used for reference files that are
// normally exported with semicolons.
func SemicolonFirstFormats() []Format {
	return []Format{
		{Delimiter: ';', Encoding: EncodingUTF8},
		{Delimiter: ',', Encoding: EncodingUTF8},
		{Delimiter: ';', Encoding: EncodingLatin1},
		{Delimiter: ',', Encoding: EncodingLatin1},
		{Delimiter: ';', Encoding: EncodingWindows1252},
		{Delimiter: ',', Encoding: EncodingWindows1252},
	}
}

// DefaultConfig returns the configuration used for store PO files.
func DefaultConfig() Config {
	return Config{
		Formats:         DefaultFormats(),
		LocaleNumbers:   true,
		CellInterpreter: SentinelInterpreter,
	}
}

func (c Config) withDefaults() Config {
	if len(c.Formats) == 0 {
		c.Formats = DefaultFormats()
	}
	if c.CellInterpreter == nil {
		c.CellInterpreter = SentinelInterpreter
	}
	return c
}
