package quotes

import (
	"github.com/jor0105/datafin/internal/columnar"
)

// row is the on-disk columnar representation of a Record. decimal.Decimal
// does not carry a reflection-visible schema parquet-go can infer, so prices
// are stored as their exact decimal string form — never through a float64
// intermediate. This package does not convert rows back into Records.
type row struct {
	Date          string `parquet:"date"`
	BDI           string `parquet:"bdi"`
	Ticker        string `parquet:"ticker"`
	TPMERC        string `parquet:"tpmerc"`
	ShortName     string `parquet:"short_name"`
	Specification string `parquet:"specification"`
	Open          string `parquet:"open"`
	High          string `parquet:"high"`
	Low           string `parquet:"low"`
	Avg           string `parquet:"avg"`
	Close         string `parquet:"close"`
	BestBuy       string `parquet:"best_buy"`
	BestSell      string `parquet:"best_sell"`
	Trades        int64  `parquet:"trades"`
	Quantity      int64  `parquet:"quantity"`
	Volume        string `parquet:"volume"`
	ISIN          string `parquet:"isin"`
}

func toRow(r Record) row {
	return row{
		Date:          r.Date.Format("2006-01-02"),
		BDI:           r.BDI,
		Ticker:        r.Ticker,
		TPMERC:        r.TPMERC,
		ShortName:     r.ShortName,
		Specification: r.Specification,
		Open:          r.Open.String(),
		High:          r.High.String(),
		Low:           r.Low.String(),
		Avg:           r.Avg.String(),
		Close:         r.Close.String(),
		BestBuy:       r.BestBuy.String(),
		BestSell:      r.BestSell.String(),
		Trades:        r.Trades,
		Quantity:      r.Quantity,
		Volume:        r.Volume.String(),
		ISIN:          r.ISIN,
	}
}

func toRows(records []Record) []row {
	out := make([]row, len(records))
	for i, r := range records {
		out[i] = toRow(r)
	}
	return out
}

// WriteEmpty writes a valid, zero-row columnar file at path.
func WriteEmpty(path string) error {
	return columnar.WriteEmpty[row](path)
}

// WriteShard writes records to path in chunkSize-row batches.
func WriteShard(path string, records []Record, chunkSize int) error {
	return columnar.WriteAll[row](path, toRows(records), chunkSize)
}

// Consolidate merges shardPaths, in order, into one columnar file at
// outputPath via an atomic rename.
func Consolidate(shardPaths []string, outputPath string) error {
	return columnar.Consolidate[row](shardPaths, outputPath)
}
