// Package quotes implements the fixed-width COTAHIST record parser and the
// aggregator that walks selected ZIP archives, filters by instrument class
// and year range, and writes the consolidated columnar output.
package quotes

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one decoded COTAHIST data row (record type "01").
type Record struct {
	Date          time.Time
	BDI           string
	Ticker        string
	TPMERC        string
	ShortName     string
	Specification string
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Avg           decimal.Decimal
	Close         decimal.Decimal
	BestBuy       decimal.Decimal
	BestSell      decimal.Decimal
	Trades        int64
	Quantity      int64
	Volume        decimal.Decimal
	ISIN          string
}

const recordLength = 245

// field layout, half-open byte intervals per spec.md §4.7.
var (
	fieldDate   = [2]int{2, 10}
	fieldBDI    = [2]int{10, 12}
	fieldTicker = [2]int{12, 24}
	fieldTPMERC = [2]int{24, 27}
	fieldShort  = [2]int{27, 39}
	fieldSpec   = [2]int{39, 49}
	fieldOpen   = [2]int{56, 69}
	fieldHigh   = [2]int{69, 82}
	fieldLow    = [2]int{82, 95}
	fieldAvg    = [2]int{95, 108}
	fieldClose  = [2]int{108, 121}
	fieldBuy    = [2]int{121, 134}
	fieldSell   = [2]int{134, 147}
	fieldTrades = [2]int{147, 152}
	fieldQty    = [2]int{152, 170}
	fieldVolume = [2]int{170, 188}
	fieldISIN   = [2]int{230, 242}
)

// Parse decodes one COTAHIST line. Header ("00") and trailer ("99") lines
// yield (nil, nil). Lines whose TPMERC is not in accepted also yield
// (nil, nil) — the filter is applied here, not by the caller, so
// "parse(l) == nil iff tpmerc(l) not in accepted" holds for every full-length
// type-01 line with a valid date. A type-01 line whose date field does not
// parse also yields (nil, nil).
func Parse(line string, accepted map[string]struct{}) (*Record, error) {
	if len(line) < recordLength {
		// Tolerate a trailing newline already stripped and short final
		// lines; anything shorter than the layout cannot be a data row.
		return nil, nil
	}

	recordType := line[0:2]
	if recordType == "00" || recordType == "99" {
		return nil, nil
	}
	if recordType != "01" {
		return nil, nil
	}

	tpmerc := strings.TrimSpace(slice(line, fieldTPMERC))
	if _, ok := accepted[tpmerc]; !ok {
		return nil, nil
	}

	date, err := time.Parse("20060102", slice(line, fieldDate))
	if err != nil {
		return nil, nil
	}

	r := &Record{
		Date:          date,
		BDI:           strings.TrimSpace(slice(line, fieldBDI)),
		Ticker:        strings.TrimSpace(slice(line, fieldTicker)),
		TPMERC:        tpmerc,
		ShortName:     strings.TrimSpace(slice(line, fieldShort)),
		Specification: strings.TrimSpace(slice(line, fieldSpec)),
		Open:          decimalCents(slice(line, fieldOpen)),
		High:          decimalCents(slice(line, fieldHigh)),
		Low:           decimalCents(slice(line, fieldLow)),
		Avg:           decimalCents(slice(line, fieldAvg)),
		Close:         decimalCents(slice(line, fieldClose)),
		BestBuy:       decimalCents(slice(line, fieldBuy)),
		BestSell:      decimalCents(slice(line, fieldSell)),
		Trades:        intField(slice(line, fieldTrades)),
		Quantity:      intField(slice(line, fieldQty)),
		Volume:        decimalCents(slice(line, fieldVolume)),
		ISIN:          strings.TrimSpace(slice(line, fieldISIN)),
	}
	return r, nil
}

func slice(line string, r [2]int) string {
	return line[r[0]:r[1]]
}

// decimalCents parses an integer field whose value carries two implicit
// fraction digits, returning it as an exact decimal.Decimal — never through
// a binary-float intermediate. Empty/whitespace-only fields decode to zero.
func decimalCents(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return decimal.Zero
	}
	return decimal.New(n, -2)
}

func intField(raw string) int64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
