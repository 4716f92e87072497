package domain

import "strings"

// InstrumentClass is one of the B3 COTAHIST instrument groupings.
type InstrumentClass string

const (
	Acoes           InstrumentClass = "ações"
	ETF             InstrumentClass = "etf"
	Opcoes          InstrumentClass = "opções"
	Termo           InstrumentClass = "termo"
	ExercicioOpcoes InstrumentClass = "exercicio_opcoes"
	Forward         InstrumentClass = "forward"
	Leilao          InstrumentClass = "leilao"
)

// tpmercByClass maps each instrument class to the TPMERC codes (field
// [24,27) of a COTAHIST data row) that belong to it. ações and etf share the
// 010 code. Filtering is on TPMERC alone; BDI is not consulted, so requesting
// either class accepts every 010 row.
var tpmercByClass = map[InstrumentClass][]string{
	Acoes:           {"010"},
	ETF:             {"010"},
	Opcoes:          {"070", "080"},
	Termo:           {"030"},
	ExercicioOpcoes: {"012", "013"},
	Forward:         {"040"},
	Leilao:          {"017", "042", "110", "190"},
}

// AllInstrumentClasses lists every recognised class.
var AllInstrumentClasses = []InstrumentClass{Acoes, ETF, Opcoes, Termo, ExercicioOpcoes, Forward, Leilao}

// ParseInstrumentClass validates a user-supplied asset-class name.
func ParseInstrumentClass(name string) (InstrumentClass, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range AllInstrumentClasses {
		if string(c) == lower {
			return c, nil
		}
	}
	return "", New(KindInvalidAssetsName, "unrecognised instrument class: "+name)
}

// ParseInstrumentClasses validates a non-empty list of class names and
// returns the accepted-TPMERC filter set the parser applies per record.
// An empty list is EmptyAssetList; any single invalid entry fails the whole
// call with InvalidAssetsName and no partial set is returned.
func ParseInstrumentClasses(names []string) (map[string]struct{}, error) {
	if len(names) == 0 {
		return nil, New(KindEmptyAssetList, "at least one instrument class is required")
	}
	accepted := make(map[string]struct{})
	for _, name := range names {
		class, err := ParseInstrumentClass(name)
		if err != nil {
			return nil, err
		}
		for _, code := range tpmercByClass[class] {
			accepted[code] = struct{}{}
		}
	}
	return accepted, nil
}
