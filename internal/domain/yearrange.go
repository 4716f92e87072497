package domain

import "time"

// FamilyMinYear is the earliest year each document family publishes data for.
var FamilyMinYear = map[DocumentFamily]int{
	CGVN: 2018,
	FCA:  2010,
	IPE:  2010,
	VLMO: 2018,
	FRE:  2010,
	DFP:  2010,
	ITR:  2011,
	CAD:  2010,
}

// CotahistMinYear is the earliest year the B3 COTAHIST archives cover.
const CotahistMinYear = 1986

// YearRange is an immutable, validated (initial, last) pair.
type YearRange struct {
	initial int
	last    int
}

// NewYearRange validates and constructs a YearRange against minYear and the
// current year (nowFn lets tests and CLI callers pin "now" instead of
// reaching for a wall-clock read inside the constructor).
func NewYearRange(initial, last, minYear int, nowFn func() time.Time) (YearRange, error) {
	if nowFn == nil {
		nowFn = time.Now
	}
	currentYear := nowFn().Year()

	if initial < minYear {
		return YearRange{}, New(KindInvalidFirstYear,
			"initial year is before the earliest year this family publishes")
	}
	if initial > last {
		return YearRange{}, New(KindInvalidFirstYear,
			"initial year must not be after last year")
	}
	if last > currentYear {
		return YearRange{}, New(KindInvalidLastYear,
			"last year must not be in the future")
	}
	if last < minYear {
		return YearRange{}, New(KindInvalidLastYear,
			"last year is before the earliest year this family publishes")
	}
	return YearRange{initial: initial, last: last}, nil
}

// Initial returns the first year of the range.
func (r YearRange) Initial() int { return r.initial }

// Last returns the final year of the range.
func (r YearRange) Last() int { return r.last }

// Years returns every year in the range, inclusive, in ascending order.
func (r YearRange) Years() []int {
	years := make([]int, 0, r.last-r.initial+1)
	for y := r.initial; y <= r.last; y++ {
		years = append(years, y)
	}
	return years
}

// Contains reports whether year falls within the range, inclusive.
func (r YearRange) Contains(year int) bool {
	return year >= r.initial && year <= r.last
}
