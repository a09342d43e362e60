package phone

// Plan describes one country's numbering rules: how long a national number
// is, which two-digit prefixes are mobile, and which landline prefixes map
// to a named area.
type Plan struct {
	CountryCode    string // digits only, e.g. "94"
	NationalLength int    // significant digits after the country code
	TrunkPrefix    string // leading digit of the local form, e.g. "0"
	MobilePrefixes []string
	AreaCodes      map[string]string // landline prefix -> area name
}

// DefaultPlan returns the Sri Lankan numbering plan.
func DefaultPlan() Plan {
	return Plan{
		CountryCode:    "94",
		NationalLength: 9,
		TrunkPrefix:    "0",
		MobilePrefixes: []string{"70", "71", "72", "74", "75", "76", "77", "78"},
		AreaCodes: map[string]string{
			"11": "Colombo",
			"33": "Gampaha",
			"34": "Kalutara",
			"81": "Kandy",
			"66": "Matale",
			"52": "Nuwara Eliya",
			"91": "Galle",
			"41": "Matara",
			"47": "Hambantota",
			"21": "Jaffna/Kilinochchi",
			"23": "Mannar",
			"24": "Vavuniya/Mullaitivu",
			"65": "Batticaloa",
			"63": "Ampara",
			"26": "Trincomalee",
			"37": "Kurunegala",
			"32": "Puttalam",
			"25": "Anuradhapura",
			"27": "Polonnaruwa",
			"55": "Badulla/Monaragala",
			"45": "Ratnapura",
			"35": "Kegalle",
		},
	}
}

func (p Plan) isMobilePrefix(prefix string) bool {
	for _, m := range p.MobilePrefixes {
		if prefix == m {
			return true
		}
	}
	return false
}
