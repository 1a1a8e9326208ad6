package gdelt

import (
	"sort"
	"strings"
)

// FIPS 10-4 country codes used by the event store. This covers the markets
// the pipeline is pointed at; unknown codes fall back to the code itself.
var countryNames = map[string]string{
	"AF": "Afghanistan",
	"AG": "Algeria",
	"AR": "Argentina",
	"AS": "Australia",
	"BA": "Bahrain",
	"BG": "Bangladesh",
	"BR": "Brazil",
	"BU": "Bulgaria",
	"CB": "Cambodia",
	"CH": "China",
	"CI": "Chile",
	"CO": "Colombia",
	"EG": "Egypt",
	"EN": "Estonia",
	"ET": "Ethiopia",
	"EZ": "Czechia",
	"FR": "France",
	"GH": "Ghana",
	"GM": "Germany",
	"GR": "Greece",
	"HU": "Hungary",
	"ID": "Indonesia",
	"IN": "India",
	"IR": "Iran",
	"IS": "Israel",
	"IT": "Italy",
	"IZ": "Iraq",
	"JA": "Japan",
	"JO": "Jordan",
	"KE": "Kenya",
	"KS": "South Korea",
	"KU": "Kuwait",
	"LE": "Lebanon",
	"MO": "Morocco",
	"MX": "Mexico",
	"MY": "Malaysia",
	"NG": "Niger",
	"NI": "Nigeria",
	"PE": "Peru",
	"PK": "Pakistan",
	"PL": "Poland",
	"PO": "Portugal",
	"QA": "Qatar",
	"RO": "Romania",
	"RP": "Philippines",
	"RS": "Russia",
	"SA": "Saudi Arabia",
	"SF": "South Africa",
	"SG": "Senegal",
	"SN": "Singapore",
	"SP": "Spain",
	"SW": "Sweden",
	"SZ": "Switzerland",
	"TH": "Thailand",
	"TS": "Tunisia",
	"TU": "Turkey",
	"TW": "Taiwan",
	"TZ": "Tanzania",
	"UK": "United Kingdom",
	"UP": "Ukraine",
	"US": "United States",
	"UY": "Uruguay",
	"VE": "Venezuela",
	"VM": "Vietnam",
}

// CountryName resolves a FIPS 10-4 code to a display name.
func CountryName(code string) string {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if name, ok := countryNames[normalized]; ok {
		return name
	}
	return normalized
}

// ValidCountry reports whether the code is a known FIPS 10-4 code.
func ValidCountry(code string) bool {
	_, ok := countryNames[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Country pairs a FIPS 10-4 code with its display name.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Countries lists the supported countries sorted by code.
func Countries() []Country {
	out := make([]Country, 0, len(countryNames))
	for code, name := range countryNames {
		out = append(out, Country{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
