// Package normalize maps the heterogeneous field names found in source
// datasets onto the fixed canonical field set the composer works with.
package normalize

import "github.com/uzsteam/xmlator/internal/model"

// Canonical field names. These are the only keys the composer understands.
const (
	FieldBSN                  = "BSN"
	FieldNaam                 = "Naam"
	FieldGebDatum             = "Geb_datum"
	FieldLoonheffingennr      = "Loonheffingennr"
	FieldIban                 = "Iban"
	FieldBic                  = "Bic"
	FieldDatEersteAoDag       = "DatEersteAoDag"
	FieldIndDirecteUitkering  = "IndDirecteUitkering"
	FieldCdRedenAangifteAo    = "CdRedenAangifteAo"
	FieldCdRedenZiekmelding   = "CdRedenZiekmelding"
	FieldIndWerkdagOpZaterdag = "IndWerkdagOpZaterdag"
	FieldIndWerkdagOpZondag   = "IndWerkdagOpZondag"
)

// synonyms lists, per canonical field, the source keys tried in priority
// order. The first present non-empty value wins. The table is explicit and
// ordered so normalization is total and exhaustively testable.
var synonyms = [][2][]string{
	{{FieldBSN}, {"BSN", "Burgerservicenr", "burgerservicenr", "bsn"}},
	{{FieldNaam}, {"Naam", "naam"}},
	{{FieldGebDatum}, {"Geb_datum", "Geboortedat", "Geboortedatum", "geb_datum", "geboortedatum"}},
	{{FieldLoonheffingennr}, {"Loonheffingennr", "Loonheffingennummer", "loonheffingennr"}},
	{{FieldIban}, {"Iban", "IBAN", "Rekeningnummer"}},
	{{FieldBic}, {"Bic", "BIC"}},
	{{FieldDatEersteAoDag}, {"DatEersteAoDag", "dateersteaodag"}},
	{{FieldIndDirecteUitkering}, {"IndDirecteUitkering", "inddirecteuitkering"}},
	{{FieldCdRedenAangifteAo}, {"CdRedenAangifteAo", "cdredenaangifteao"}},
	{{FieldCdRedenZiekmelding}, {"CdRedenZiekmelding", "cdredenziekmelding"}},
	{{FieldIndWerkdagOpZaterdag}, {"IndWerkdagOpZaterdag", "indwerkdagopzaterdag"}},
	{{FieldIndWerkdagOpZondag}, {"IndWerkdagOpZondag", "indwerkdagopzondag"}},
}

// Canonical derives the canonical field set from one record. It is a pure
// function: the record is never mutated and values pass through unmodified —
// source values are authoritative, so no trimming or reformatting happens
// here. Every canonical field is present in the result, empty when no synonym
// carried a value.
func Canonical(rec model.Record) model.CanonicalFields {
	out := make(model.CanonicalFields, len(synonyms))
	for _, entry := range synonyms {
		canonical := entry[0][0]
		out[canonical] = ""
		for _, key := range entry[1] {
			if v, ok := rec.Fields[key]; ok && v != "" {
				out[canonical] = v
				break
			}
		}
	}
	return out
}

// Fields returns the canonical field names in table order.
func Fields() []string {
	out := make([]string, len(synonyms))
	for i, entry := range synonyms {
		out[i] = entry[0][0]
	}
	return out
}
