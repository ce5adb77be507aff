package message

import "errors"

// ErrUnknownType is returned when no skeleton is registered for the requested
// message type.
var ErrUnknownType = errors.New("unknown message type")

// Skeleton describes one registered message type: the shared v0428 envelope
// shape plus the type-specific placeholder defaults. Defaults sit at the
// bottom of the fill precedence (overrides > canonical fields > defaults).
type Skeleton struct {
	Type     string
	Defaults map[string]string
}

// commonDefaults apply to every registered type unless the type overrides the
// key in its own Defaults map.
var commonDefaults = map[string]string{
	"BronApplicatie":       "Digipoort",
	"BestemmingApplicatie": "UZS",
	"BerichtNaam":          "UwvZwMeldingInternBody",
	"VersieMajor":          "04",
	"VersieMinor":          "28",
	"Buildnr":              "01",
	"CommunicatieType":     "Melding",
	"CommunicatieElement":  "Melding",
	"IndTestbericht":       "2",
	"Volgordenr":           "1",
	"IndLaatsteBericht":    "1",
	"IndAlleenControleUzs": "2",
	"CdRolKetenpartij":     "01",
	"CdSrtIndiener":        "WG",
	"NaamSoftwarePakket":   "XMLator",
	"VersieSoftwarePakket": "0.1",
	"VolgNr":               "1",
}

var skeletons = map[string]Skeleton{
	"ZBM": {
		Type:     "ZBM",
		Defaults: map[string]string{"CdBerichtType": "OTP3"},
	},
	"VM": {
		Type:     "VM",
		Defaults: map[string]string{"CdBerichtType": "VM"},
	},
	"Digipoort": {
		Type:     "Digipoort",
		Defaults: map[string]string{"CdBerichtType": "OTP3", "CdSrtIndiener": "IB"},
	},
}

// Lookup returns the skeleton for a message type.
func Lookup(messageType string) (Skeleton, error) {
	sk, ok := skeletons[messageType]
	if !ok {
		return Skeleton{}, ErrUnknownType
	}
	return sk, nil
}

// Types lists the registered message types.
func Types() []string {
	out := make([]string, 0, len(skeletons))
	for t := range skeletons {
		out = append(out, t)
	}
	return out
}

func (sk Skeleton) defaultFor(key string) string {
	if v, ok := sk.Defaults[key]; ok {
		return v
	}
	return commonDefaults[key]
}
