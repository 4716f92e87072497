package domain

import (
	"strconv"
	"strings"
)

// DocumentFamily is one of the CVM fundamental-statement archive families.
type DocumentFamily string

const (
	CGVN DocumentFamily = "CGVN"
	FCA  DocumentFamily = "FCA"
	IPE  DocumentFamily = "IPE"
	VLMO DocumentFamily = "VLMO"
	FRE  DocumentFamily = "FRE"
	DFP  DocumentFamily = "DFP"
	ITR  DocumentFamily = "ITR"
	CAD  DocumentFamily = "CAD"
)

// AllDocumentFamilies lists every recognised family — CAD last, since it
// carries no year.
var AllDocumentFamilies = []DocumentFamily{CGVN, FCA, IPE, VLMO, FRE, DFP, ITR, CAD}

// ParseDocumentFamily validates a user-supplied family code and returns the
// matching DocumentFamily, case-insensitively.
func ParseDocumentFamily(name string) (DocumentFamily, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, f := range AllDocumentFamilies {
		if string(f) == upper {
			return f, nil
		}
	}
	return "", New(KindInvalidDocName, "unrecognised document family: "+name)
}

// URLPrefix returns the CVM path segment preceding "<year>.zip" for
// year-partitioned families; CAD has no year suffix and is handled
// separately by ArchiveURL.
func (f DocumentFamily) URLPrefix() string {
	return "DOC/" + string(f) + "/DADOS/" + strings.ToLower(string(f)) + "_cia_aberta_"
}

// HasYearSuffix reports whether archives of this family are partitioned by
// year; only CAD (the single master registry CSV) is not.
func (f DocumentFamily) HasYearSuffix() bool {
	return f != CAD
}

const cvmBaseURL = "https://dados.cvm.gov.br/dados/CIA_ABERTA/"

// ArchiveURL builds the download URL for one (family, year) archive. year is
// ignored for CAD.
func (f DocumentFamily) ArchiveURL(year int) string {
	if !f.HasYearSuffix() {
		return cvmBaseURL + "CAD/DADOS/cad_cia_aberta.csv"
	}
	return cvmBaseURL + f.URLPrefix() + strconv.Itoa(year) + ".zip"
}
