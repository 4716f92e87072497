package transcode

import (
	"regexp"

	"github.com/jor0105/datafin/internal/columnar"
)

// row is the columnar representation of one CSV record. CVM source files
// carry different headers per document family and year, so rather than a
// family-specific struct per shard, every record is stored as a
// header-to-field map — the shard's schema is uniform across every family
// this package transcodes.
type row struct {
	Values map[string]string `parquet:"values"`
}

var commaDecimal = regexp.MustCompile(`^-?\d+,\d+$`)

// normalizeDecimal rewrites a CVM-style comma-decimal numeral ("1234,56")
// to its dot-decimal form; anything else passes through unchanged.
func normalizeDecimal(field string) string {
	if !commaDecimal.MatchString(field) {
		return field
	}
	out := make([]byte, len(field))
	copy(out, field)
	for i, b := range out {
		if b == ',' {
			out[i] = '.'
		}
	}
	return string(out)
}

func toRow(headers, fields []string) row {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if i >= len(fields) {
			break
		}
		values[h] = normalizeDecimal(fields[i])
	}
	return row{Values: values}
}

func writeShard(path string, rows []row, chunkSize int) error {
	return columnar.WriteAll[row](path, rows, chunkSize)
}
