// Package message composes serialized XML documents for the registered
// message types from canonical fields, generated references, and caller
// overrides.
package message

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/uzsteam/xmlator/internal/model"
	"github.com/uzsteam/xmlator/internal/refgen"
)

const (
	nsSOAP = "http://schemas.xmlsoap.org/soap/envelope/"
	nsUWVH = "http://schemas.uwv.nl/UwvML/Header-v0202"
	nsBody = "http://schemas.uwv.nl/UwvML/Berichten/UwvZwMeldingInternBody-v0428"
)

// References holds the three transactional reference numbers minted for one
// message. They are pairwise unique across the process lifetime.
type References struct {
	GegevensUitwisselingsnr string
	BerichtReferentienr     string
	TransactieReferentienr  string
}

// Message is the in-memory result of one compose call: the serialized
// document plus the resolved field map for logging.
type Message struct {
	Type   string
	XML    []byte
	Fields map[string]string
	Refs   References
}

// Composer fills message skeletons. It owns the reference generator so every
// composed message gets fresh references.
type Composer struct {
	refs *refgen.Generator
	now  func() time.Time
}

// NewComposer constructs a Composer.
func NewComposer(refs *refgen.Generator) *Composer {
	return &Composer{refs: refs, now: time.Now}
}

// Compose builds the document for messageType. Placeholder precedence is
// overrides > canonical fields > skeleton defaults; a placeholder with no
// value from any source becomes an explicit empty element so the output is
// always structurally complete.
func (c *Composer) Compose(messageType string, fields model.CanonicalFields, overrides map[string]string) (*Message, error) {
	sk, err := Lookup(messageType)
	if err != nil {
		return nil, fmt.Errorf("compose %q: %w", messageType, err)
	}

	resolved := make(map[string]string)
	val := func(key string) string {
		if v, ok := overrides[key]; ok && v != "" {
			resolved[key] = v
			return v
		}
		if v, ok := fields[key]; ok && v != "" {
			resolved[key] = v
			return v
		}
		v := sk.defaultFor(key)
		resolved[key] = v
		return v
	}

	refs := References{
		GegevensUitwisselingsnr: c.refs.Next(refgen.KindGegevensUitwisseling),
		BerichtReferentienr:     c.refs.Next(refgen.KindBerichtReferentie),
		TransactieReferentienr:  c.refs.Next(refgen.KindTransactieReferentie),
	}
	// Caller overrides win even for references; the default is a freshly
	// minted unique value.
	if v := overrides["GegevensUitwisselingsnr"]; v != "" {
		refs.GegevensUitwisselingsnr = v
	}
	if v := overrides["BerichtReferentienr"]; v != "" {
		refs.BerichtReferentienr = v
	}
	if v := overrides["TransactieReferentienr"]; v != "" {
		refs.TransactieReferentienr = v
	}
	resolved["GegevensUitwisselingsnr"] = refs.GegevensUitwisselingsnr
	resolved["BerichtReferentienr"] = refs.BerichtReferentienr
	resolved["TransactieReferentienr"] = refs.TransactieReferentienr

	stamp := c.now().Format("2006-01-02T15:04:05-07:00")
	sent := val("DatTijdVersturenBericht")
	if sent == "" {
		sent = stamp
		resolved["DatTijdVersturenBericht"] = sent
	}
	created := val("DatTijdAanmaakBericht")
	if created == "" {
		created = stamp
		resolved["DatTijdAanmaakBericht"] = created
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("SOAP-ENV:Envelope")
	env.CreateAttr("xmlns:SOAP-ENV", nsSOAP)
	env.CreateAttr("xmlns:uwvh", nsUWVH)
	env.CreateAttr("xmlns", nsBody)

	header := env.CreateElement("SOAP-ENV:Header")
	uwvHeader := header.CreateElement("uwvh:UwvMLHeader")

	route := uwvHeader.CreateElement("RouteInformatie")
	bron := route.CreateElement("Bron")
	bron.CreateElement("ApplicatieNaam").SetText(val("BronApplicatie"))
	bron.CreateElement("DatTijdVersturenBericht").SetText(sent)
	bestemming := route.CreateElement("Bestemming")
	bestemming.CreateElement("ApplicatieNaam").SetText(val("BestemmingApplicatie"))
	route.CreateElement("GegevensUitwisselingsnr").SetText(refs.GegevensUitwisselingsnr)
	route.CreateElement("RefnrGegevensUitwisselingsExtern").SetText(val("RefnrGegevensUitwisselingsExtern"))

	bericht := uwvHeader.CreateElement("BerichtIdentificatie")
	bericht.CreateElement("BerichtReferentienr").SetText(refs.BerichtReferentienr)
	berichtType := bericht.CreateElement("BerichtType")
	berichtType.CreateElement("BerichtNaam").SetText(val("BerichtNaam"))
	berichtType.CreateElement("VersieMajor").SetText(val("VersieMajor"))
	berichtType.CreateElement("VersieMinor").SetText(val("VersieMinor"))
	berichtType.CreateElement("Buildnr").SetText(val("Buildnr"))
	berichtType.CreateElement("CommunicatieType").SetText(val("CommunicatieType"))
	berichtType.CreateElement("CommunicatieElement").SetText(val("CommunicatieElement"))
	bericht.CreateElement("DatTijdAanmaakBericht").SetText(created)
	bericht.CreateElement("IndTestbericht").SetText(val("IndTestbericht"))

	trans := uwvHeader.CreateElement("Transactie")
	trans.CreateElement("TransactieReferentienr").SetText(refs.TransactieReferentienr)
	trans.CreateElement("Volgordenr").SetText(val("Volgordenr"))
	trans.CreateElement("IndLaatsteBericht").SetText(val("IndLaatsteBericht"))

	body := env.CreateElement("SOAP-ENV:Body")
	inner := body.CreateElement("UwvZwMeldingInternBody")
	inner.CreateElement("CdBerichtType").SetText(val("CdBerichtType"))
	inner.CreateElement("IndAlleenControleUzs").SetText(val("IndAlleenControleUzs"))

	ket := inner.CreateElement("Ketenpartij")
	ket.CreateElement("FiscaalNr").SetText(val("FiscaalNr"))
	ket.CreateElement("Loonheffingennr").SetText(val("Loonheffingennr"))
	ket.CreateElement("Naam").SetText(val("OrganisatieNaam"))
	ket.CreateElement("CdRolKetenpartij").SetText(val("CdRolKetenpartij"))
	ket.CreateElement("CdSrtIndiener").SetText(val("CdSrtIndiener"))
	ket.CreateElement("NaamSoftwarePakket").SetText(val("NaamSoftwarePakket"))
	ket.CreateElement("VersieSoftwarePakket").SetText(val("VersieSoftwarePakket"))
	ket.CreateElement("VolgNr").SetText(val("VolgNr"))

	persoon := inner.CreateElement("NatuurlijkPersoon")
	persoon.CreateElement("Burgerservicenr").SetText(val("BSN"))
	persoon.CreateElement("Geboortedat").SetText(FormatDateYYYYMMDD(val("Geb_datum")))
	voornaam, voorletters, achternaam := splitName(val("Naam"))
	persoon.CreateElement("EersteVoornaam").SetText(voornaam)
	persoon.CreateElement("Voorletters").SetText(voorletters)
	persoon.CreateElement("SignificantDeelVanDeAchternaam").SetText(achternaam)

	melding := inner.CreateElement("MeldingZiekte")
	melding.CreateElement("DatEersteAoDag").SetText(FormatDateYYYYMMDD(val("DatEersteAoDag")))
	melding.CreateElement("IndDirecteUitkering").SetText(val("IndDirecteUitkering"))
	melding.CreateElement("CdRedenAangifteAo").SetText(val("CdRedenAangifteAo"))
	melding.CreateElement("CdRedenZiekmelding").SetText(val("CdRedenZiekmelding"))
	melding.CreateElement("IndWerkdagOpZaterdag").SetText(val("IndWerkdagOpZaterdag"))
	melding.CreateElement("IndWerkdagOpZondag").SetText(val("IndWerkdagOpZondag"))

	eenheid := inner.CreateElement("AdministratieveEenheid")
	eenheid.CreateElement("Loonheffingennr").SetText(val("Loonheffingennr"))
	eenheid.CreateElement("Naam").SetText(val("OrganisatieNaam"))
	bank := eenheid.CreateElement("Bankrekening")
	bank.CreateElement("Bankrekeningnr").SetText(val("Bankrekeningnr"))
	bank.CreateElement("Bic").SetText(val("Bic"))
	bank.CreateElement("Iban").SetText(val("Iban"))

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}
	return &Message{
		Type:   messageType,
		XML:    data,
		Fields: resolved,
		Refs:   refs,
	}, nil
}

// splitName derives first name, initials, and significant surname from the
// single Naam field, mirroring how the historical generator filled
// NatuurlijkPersoon.
func splitName(naam string) (voornaam, voorletters, achternaam string) {
	parts := strings.Fields(naam)
	if len(parts) == 0 {
		return "", "", ""
	}
	voornaam = parts[0]
	if len(parts) == 1 {
		return voornaam, string([]rune(parts[0])[0]), ""
	}
	var b strings.Builder
	for _, p := range parts[:len(parts)-1] {
		b.WriteString(string([]rune(p)[0]))
	}
	return voornaam, b.String(), strings.Join(parts[1:], " ")
}
